package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	c.normalizeTimeline()
	c.normalizeTracks()
	c.normalizeBackend()
	return nil
}

func (c *Config) normalizeLogging() error {
	if value, ok := os.LookupEnv("CUTLINE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Logging.File))
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}

func (c *Config) normalizeTimeline() {
	if c.Timeline.LayerHeight == 0 {
		c.Timeline.LayerHeight = defaultLayerHeight
	}
	if c.Timeline.NotifyQueueSize == 0 {
		c.Timeline.NotifyQueueSize = defaultNotifyQueueSize
	}
	c.Timeline.DefaultTransitionDuration = strings.TrimSpace(c.Timeline.DefaultTransitionDuration)
	if c.Timeline.DefaultTransitionDuration == "" {
		c.Timeline.DefaultTransitionDuration = defaultTransitionDuration
	}
}

func (c *Config) normalizeTracks() {
	c.Tracks.VideoCaps = strings.TrimSpace(c.Tracks.VideoCaps)
	if c.Tracks.VideoCaps == "" {
		c.Tracks.VideoCaps = defaultVideoCaps
	}
	c.Tracks.AudioCaps = strings.TrimSpace(c.Tracks.AudioCaps)
	if c.Tracks.AudioCaps == "" {
		c.Tracks.AudioCaps = defaultAudioCaps
	}
}

func (c *Config) normalizeBackend() {
	c.Backend.Name = strings.ToLower(strings.TrimSpace(c.Backend.Name))
	if c.Backend.Name == "" {
		c.Backend.Name = defaultBackendName
	}
	roles := c.Backend.FailRoles[:0]
	for _, role := range c.Backend.FailRoles {
		if trimmed := strings.ToLower(strings.TrimSpace(role)); trimmed != "" {
			roles = append(roles, trimmed)
		}
	}
	c.Backend.FailRoles = roles
}
