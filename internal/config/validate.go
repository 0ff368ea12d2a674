package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRenderer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateView()
}

func (c *Config) validateRenderer() error {
	if c.Renderer.Name == "" {
		return errors.New("renderer.name must be set")
	}
	if strings.ContainsAny(c.Renderer.Name, `/\`) {
		return fmt.Errorf("renderer.name %q must not contain path separators", c.Renderer.Name)
	}
	switch c.Renderer.Spawner {
	case SpawnerExec:
		if c.Renderer.Path == "" {
			return errors.New("renderer.path must be set when renderer.spawner is exec")
		}
	case SpawnerSystemd:
		if c.Renderer.SystemdUnit == "" {
			return errors.New("renderer.systemd_unit must be set when renderer.spawner is systemd")
		}
	default:
		return fmt.Errorf("renderer.spawner: unsupported value %q (want %s or %s)", c.Renderer.Spawner, SpawnerExec, SpawnerSystemd)
	}
	if c.Renderer.RuntimeDir == "" {
		return errors.New("renderer.runtime_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 || c.Notifications.RequestTimeout > maxNotifyRequestTimeoutInSec {
		return fmt.Errorf("notifications.request_timeout must be between 0 and %d seconds", maxNotifyRequestTimeoutInSec)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Bind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Bind); err != nil {
		return fmt.Errorf("metrics.bind %q: %w", c.Metrics.Bind, err)
	}
	return nil
}

func (c *Config) validateView() error {
	if c.View.Width < minViewWidth {
		return fmt.Errorf("view.width must be at least %d", minViewWidth)
	}
	return nil
}
