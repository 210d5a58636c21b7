package timeline

import (
	"log/slog"

	"cutline/internal/config"
	"cutline/internal/logging"
)

const (
	defaultLayerHeight uint32 = 1000
	defaultQueueSize          = 256
)

// Option configures tracks, layers and timelines.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	layerHeight uint32
	queueSize   int
}

func buildOptions(opts []Option) options {
	o := options{
		layerHeight: defaultLayerHeight,
		queueSize:   defaultQueueSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.layerHeight == 0 {
		o.layerHeight = defaultLayerHeight
	}
	if o.queueSize <= 0 {
		o.queueSize = defaultQueueSize
	}
	return o
}

// WithLogger sets the base logger. Components derive their own component
// loggers from it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLayerHeight sets how many priority levels each layer reserves.
func WithLayerHeight(height uint32) Option {
	return func(o *options) { o.layerHeight = height }
}

// WithQueueSize sets the capacity of each track's backend change queue.
func WithQueueSize(size int) Option {
	return func(o *options) { o.queueSize = size }
}

// OptionsFromConfig translates the [timeline] config section.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) []Option {
	opts := []Option{WithLogger(logger)}
	if cfg == nil {
		return opts
	}
	if cfg.Timeline.LayerHeight > 0 {
		opts = append(opts, WithLayerHeight(uint32(cfg.Timeline.LayerHeight)))
	}
	if cfg.Timeline.NotifyQueueSize > 0 {
		opts = append(opts, WithQueueSize(cfg.Timeline.NotifyQueueSize))
	}
	return opts
}
