package config

import (
	"errors"
	"fmt"
	"time"

	"cutline/internal/backend"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validateTracks(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateTimeline() error {
	if c.Timeline.LayerHeight < 1 || c.Timeline.LayerHeight > maxLayerHeight {
		return fmt.Errorf("timeline.layer_height must be between 1 and %d", maxLayerHeight)
	}
	if c.Timeline.NotifyQueueSize < 1 || c.Timeline.NotifyQueueSize > maxNotifyQueueSize {
		return fmt.Errorf("timeline.notify_queue_size must be between 1 and %d", maxNotifyQueueSize)
	}
	d, err := time.ParseDuration(c.Timeline.DefaultTransitionDuration)
	if err != nil {
		return fmt.Errorf("timeline.default_transition_duration: %w", err)
	}
	if d <= 0 {
		return errors.New("timeline.default_transition_duration must be positive")
	}
	return nil
}

func (c *Config) validateTracks() error {
	if !c.Tracks.EnableVideo && !c.Tracks.EnableAudio {
		return errors.New("tracks: at least one of enable_video or enable_audio must be true")
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.Name != defaultBackendName {
		return fmt.Errorf("backend.name: unsupported backend %q (available: %s)", c.Backend.Name, defaultBackendName)
	}
	for _, role := range c.Backend.FailRoles {
		if _, ok := backend.ParseRole(role); !ok {
			return fmt.Errorf("backend.fail_roles: unknown role %q", role)
		}
	}
	return nil
}

// FailRoles returns the parsed backend.fail_roles entries.
func (c *Config) FailRoles() []backend.Role {
	roles := make([]backend.Role, 0, len(c.Backend.FailRoles))
	for _, value := range c.Backend.FailRoles {
		if role, ok := backend.ParseRole(value); ok {
			roles = append(roles, role)
		}
	}
	return roles
}
