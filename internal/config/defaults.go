package config

const (
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLayerHeight        = 1000
	defaultNotifyQueueSize    = 256
	defaultTransitionDuration = "500ms"
	defaultVideoCaps          = "video/x-raw"
	defaultAudioCaps          = "audio/x-raw"
	defaultBackendName        = "memory"
	defaultConfigPath         = "~/.config/cutline/config.toml"
	projectConfigName         = "cutline.toml"
	maxNotifyQueueSize        = 1 << 16
	maxLayerHeight            = 1 << 20
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Timeline: Timeline{
			LayerHeight:               defaultLayerHeight,
			NotifyQueueSize:           defaultNotifyQueueSize,
			DefaultTransitionDuration: defaultTransitionDuration,
		},
		Tracks: Tracks{
			VideoCaps:   defaultVideoCaps,
			AudioCaps:   defaultAudioCaps,
			EnableVideo: true,
			EnableAudio: true,
		},
		Backend: Backend{
			Name: defaultBackendName,
		},
	}
}
