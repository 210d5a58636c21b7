package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cutline/internal/backend"
	"cutline/internal/config"
)

func TestLoadDefaultConfigWithoutFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	want := filepath.Join(tempHome, ".config", "cutline", "config.toml")
	if resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if cfg.Timeline.LayerHeight != 1000 {
		t.Fatalf("unexpected layer height: %d", cfg.Timeline.LayerHeight)
	}
	if cfg.Timeline.NotifyQueueSize != 256 {
		t.Fatalf("unexpected queue size: %d", cfg.Timeline.NotifyQueueSize)
	}
	if cfg.TransitionDuration() != 500*time.Millisecond {
		t.Fatalf("unexpected transition duration: %s", cfg.TransitionDuration())
	}
	if !cfg.Tracks.EnableVideo || !cfg.Tracks.EnableAudio {
		t.Fatal("expected both tracks enabled by default")
	}
	if cfg.Backend.Name != "memory" {
		t.Fatalf("unexpected backend: %q", cfg.Backend.Name)
	}
}

func TestLoadProjectConfigWhenHomeConfigMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)

	content := "[timeline]\nlayer_height = 50\n"
	if err := os.WriteFile(filepath.Join(project, "cutline.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected project config to be found")
	}
	if filepath.Base(resolved) != "cutline.toml" {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Timeline.LayerHeight != 50 {
		t.Fatalf("expected layer height from project config, got %d", cfg.Timeline.LayerHeight)
	}
}

func TestLoadCustomPathNormalizesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "custom.toml")
	payload := struct {
		Logging  config.Logging  `toml:"logging"`
		Timeline config.Timeline `toml:"timeline"`
		Backend  config.Backend  `toml:"backend"`
	}{
		Logging:  config.Logging{Format: " JSON ", Level: "Debug", File: "~/logs/cutline.log"},
		Timeline: config.Timeline{NotifyQueueSize: 8, DefaultTransitionDuration: "2s"},
		Backend:  config.Backend{Name: "Memory", FailRoles: []string{" Transition ", ""}},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.Logging.File != filepath.Join(tempHome, "logs", "cutline.log") {
		t.Fatalf("logging.file not expanded: %q", cfg.Logging.File)
	}
	if cfg.Timeline.LayerHeight != 1000 {
		t.Fatalf("expected default layer height, got %d", cfg.Timeline.LayerHeight)
	}
	if cfg.Timeline.NotifyQueueSize != 8 {
		t.Fatalf("unexpected queue size %d", cfg.Timeline.NotifyQueueSize)
	}
	if cfg.TransitionDuration() != 2*time.Second {
		t.Fatalf("unexpected transition duration %s", cfg.TransitionDuration())
	}
	roles := cfg.FailRoles()
	if len(roles) != 1 || roles[0] != backend.RoleTransition {
		t.Fatalf("unexpected fail roles: %v", roles)
	}
}

func TestLoadEnvOverridesLogLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CUTLINE_LOG_LEVEL", "WARN")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env level, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[timeline]\nlayer_hieght = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "defaults"},
		{
			name:    "bad format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "bad level",
			mutate:  func(c *config.Config) { c.Logging.Level = "trace" },
			wantErr: "logging.level",
		},
		{
			name:    "zero layer height",
			mutate:  func(c *config.Config) { c.Timeline.LayerHeight = -1 },
			wantErr: "timeline.layer_height",
		},
		{
			name:    "huge queue",
			mutate:  func(c *config.Config) { c.Timeline.NotifyQueueSize = 1 << 20 },
			wantErr: "timeline.notify_queue_size",
		},
		{
			name:    "unparseable transition",
			mutate:  func(c *config.Config) { c.Timeline.DefaultTransitionDuration = "soon" },
			wantErr: "timeline.default_transition_duration",
		},
		{
			name:    "negative transition",
			mutate:  func(c *config.Config) { c.Timeline.DefaultTransitionDuration = "-1s" },
			wantErr: "must be positive",
		},
		{
			name: "no tracks",
			mutate: func(c *config.Config) {
				c.Tracks.EnableAudio = false
				c.Tracks.EnableVideo = false
			},
			wantErr: "tracks",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *config.Config) { c.Backend.Name = "gstreamer" },
			wantErr: "backend.name",
		},
		{
			name:    "unknown fail role",
			mutate:  func(c *config.Config) { c.Backend.FailRoles = []string{"overlay"} },
			wantErr: "backend.fail_roles",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Timeline.LayerHeight != config.Default().Timeline.LayerHeight {
		t.Fatalf("sample layer height drifted from defaults: %d", cfg.Timeline.LayerHeight)
	}
}
