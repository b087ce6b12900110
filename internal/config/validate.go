package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateStream(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePlayback() error {
	if c.Playback.DisplayFPS <= 0 {
		return errors.New("playback.display_fps must be positive")
	}
	if c.Playback.SecondsPerSecond < 0 {
		return errors.New("playback.seconds_per_second must not be negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Lookahead < 1 {
		return errors.New("cache.lookahead must be at least 1")
	}
	if c.Cache.Lookbehind < 0 {
		return errors.New("cache.lookbehind must not be negative")
	}
	return nil
}

func (c *Config) validateStream() error {
	if c.Stream.Enabled && c.Stream.Listen == "" {
		return errors.New("stream.listen must be set when stream.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
}
