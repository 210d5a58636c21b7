package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cutline/internal/backend"
	"cutline/internal/config"
	"cutline/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerLiftsComponentIntoHeader(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	noColor := false
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
		Color:       &noColor,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "simple_layer")
	component.Info("layer recalculated", logging.Int("clips", 3), logging.ClockTime("end", 2*backend.Second))

	content := readLog(t, logPath)
	if !strings.Contains(content, "INFO [simple_layer] – layer recalculated") {
		t.Fatalf("expected component in header, got %q", content)
	}
	if !strings.Contains(content, "    clips: 3\n") {
		t.Fatalf("expected indented field, got %q", content)
	}
	if !strings.Contains(content, "    end: 0:00:02.000000000\n") {
		t.Fatalf("expected clock time field, got %q", content)
	}
	if strings.Contains(content, "component:") {
		t.Fatalf("component should not be repeated as a field: %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("expected no color codes, got %q", content)
	}
}

func TestConsoleLoggerColorsLevelsWhenForced(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "color.log")
	color := true
	logger, err := logging.New(logging.Options{OutputPaths: []string{logPath}, Color: &color})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("careful")

	if content := readLog(t, logPath); !strings.Contains(content, "\x1b[33mWARN\x1b[0m") {
		t.Fatalf("expected yellow warn label, got %q", content)
	}
}

func TestDebugLevelIncludesSource(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("bound")

	if content := readLog(t, logPath); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information at debug level, got %q", content)
	}
}

func TestJSONLoggerUsesCanonicalKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("track object added", logging.String("object", "video-source-1"))

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
	if record["object"] != "video-source-1" {
		t.Fatalf("unexpected object field %v", record["object"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewFromConfigTeesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "cutline.log")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")

	content := readLog(t, cfg.Logging.File)
	if strings.Contains(content, "dropped") {
		t.Fatalf("info line should be filtered at warn level: %q", content)
	}
	if !strings.Contains(content, `"msg":"kept"`) {
		t.Fatalf("expected warn line in JSON file, got %q", content)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "layer arrangement is not playable", "layer_invalid",
		logging.String(logging.FieldImpact, "preview disabled"),
		logging.Error(errors.New("adjacent transitions")),
	)

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldEventType] != "layer_invalid" {
		t.Fatalf("unexpected event type %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] != "check logs for details" {
		t.Fatalf("expected default hint, got %v", record[logging.FieldErrorHint])
	}
	if record[logging.FieldImpact] != "preview disabled" {
		t.Fatalf("caller impact should win, got %v", record[logging.FieldImpact])
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	ctx := logging.WithCommand(logging.WithCorrelationID(context.Background(), "abc123"), "arrange")
	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected two fields, got %v", fields)
	}
	if fields[0].Key != logging.FieldCorrelationID || fields[0].Value.String() != "abc123" {
		t.Fatalf("unexpected correlation field %v", fields[0])
	}
	if logging.WithContext(context.Background(), nil) == nil {
		t.Fatal("expected nop logger for nil input")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should never be enabled")
	}
}
