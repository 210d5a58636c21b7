package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cutline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a validated default config whose log file, when
// enabled, lives in a per-test temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfgVal := config.Default()
	builder := &configBuilder{
		t:       t,
		baseDir: t.TempDir(),
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithLogFile enables the JSON log copy under the test temp directory.
func WithLogFile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.File = filepath.Join(b.baseDir, "logs", "cutline.log")
	}
}

// WithLayerHeight overrides the number of priorities each layer reserves.
func WithLayerHeight(height int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Timeline.LayerHeight = height
	}
}

// WithQueueSize overrides the per-track change queue capacity.
func WithQueueSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Timeline.NotifyQueueSize = size
	}
}

// WithTracks selects which tracks the arrange command builds.
func WithTracks(video, audio bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracks.EnableVideo = video
		b.cfg.Tracks.EnableAudio = audio
	}
}

// WithLogLevel sets logging.level.
func WithLogLevel(level string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.Level = level
	}
}

// WithFailRoles makes the memory backend refuse nodes for the given roles.
func WithFailRoles(roles ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.FailRoles = append([]string(nil), roles...)
	}
}

// WriteConfig encodes cfg as TOML into a temp file and returns its path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
