package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRenderer(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.View.AccentColor = strings.TrimSpace(c.View.AccentColor)
	if c.View.AccentColor == "" {
		c.View.AccentColor = defaultViewAccentColor
	}
	if c.View.Width == 0 {
		c.View.Width = defaultViewWidth
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRenderer() error {
	c.Renderer.Name = strings.TrimSpace(c.Renderer.Name)
	c.Renderer.Spawner = strings.ToLower(strings.TrimSpace(c.Renderer.Spawner))
	if c.Renderer.Spawner == "" {
		c.Renderer.Spawner = defaultSpawner
	}
	c.Renderer.SystemdUnit = strings.TrimSpace(c.Renderer.SystemdUnit)

	path := strings.TrimSpace(c.Renderer.Path)
	switch {
	case path == "":
		c.Renderer.Path = ""
	case strings.ContainsRune(path, '/') || strings.HasPrefix(path, "~"):
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("renderer.path: %w", err)
		}
		c.Renderer.Path = expanded
	default:
		// Bare names resolve through PATH so the server path check compares
		// absolute paths. Unresolvable names are kept and fail at spawn time.
		if resolved, err := exec.LookPath(path); err == nil {
			if abs, err := filepath.Abs(resolved); err == nil {
				resolved = abs
			}
			c.Renderer.Path = resolved
		} else {
			c.Renderer.Path = path
		}
	}

	runtimeDir := strings.TrimSpace(c.Renderer.RuntimeDir)
	if runtimeDir == "" {
		runtimeDir = defaultRuntimeDir()
	}
	expanded, err := expandPath(runtimeDir)
	if err != nil {
		return fmt.Errorf("renderer.runtime_dir: %w", err)
	}
	c.Renderer.RuntimeDir = expanded
	return nil
}

func defaultRuntimeDir() string {
	if base, ok := os.LookupEnv(runtimeDirEnv); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, runtimeDirName)
	}
	return filepath.Join(os.TempDir(), runtimeDirName+"-"+strconv.Itoa(os.Getuid()))
}

func (c *Config) normalizeHistory() error {
	path := strings.TrimSpace(c.History.Path)
	if path == "" {
		path = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	c.History.Path = expanded
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(ntfyTopicEnv); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	c.Notifications.DialogCommand = strings.TrimSpace(c.Notifications.DialogCommand)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
