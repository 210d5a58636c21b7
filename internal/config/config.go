package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// File receives a JSON copy of every log line when set.
	File string `toml:"file"`
}

// Timeline contains configuration for the timeline model.
type Timeline struct {
	// LayerHeight is the number of priorities each layer reserves.
	LayerHeight int `toml:"layer_height"`
	// NotifyQueueSize bounds the per-track queue of backend changes.
	NotifyQueueSize int `toml:"notify_queue_size"`
	// DefaultTransitionDuration is a Go duration string, e.g. "500ms".
	DefaultTransitionDuration string `toml:"default_transition_duration"`
}

// Tracks contains configuration for the tracks created by the CLI.
type Tracks struct {
	VideoCaps   string `toml:"video_caps"`
	AudioCaps   string `toml:"audio_caps"`
	EnableVideo bool   `toml:"enable_video"`
	EnableAudio bool   `toml:"enable_audio"`
}

// Backend selects and tunes the composition backend.
type Backend struct {
	Name string `toml:"name"`
	// FailRoles makes node creation fail for the listed roles. Used to
	// exercise rollback paths.
	FailRoles []string `toml:"fail_roles"`
}

// Config encapsulates all configuration values for cutline.
//
// Configuration sections by subsystem:
//   - Logging: log format, level, and optional JSON file copy
//   - Timeline: layer priority height, queue size, transition default
//   - Tracks: which tracks the CLI creates and their caps
//   - Backend: composition backend selection and failure injection
type Config struct {
	Logging  Logging  `toml:"logging"`
	Timeline Timeline `toml:"timeline"`
	Tracks   Tracks   `toml:"tracks"`
	Backend  Backend  `toml:"backend"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config is normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// TransitionDuration parses Timeline.DefaultTransitionDuration. Invalid
// values are rejected by Validate, so callers of a loaded Config can ignore
// the fallback.
func (c *Config) TransitionDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeline.DefaultTransitionDuration)
	if err != nil {
		d, _ = time.ParseDuration(defaultTransitionDuration)
	}
	return d
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
