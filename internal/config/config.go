package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Renderer describes which renderer executable to launch and how.
type Renderer struct {
	Name          string   `toml:"name"`
	Path          string   `toml:"path"`
	Args          []string `toml:"args"`
	SkipPathCheck bool     `toml:"skip_path_check"`
	AppendDisplay bool     `toml:"append_display"`
	Spawner       string   `toml:"spawner"`
	SystemdUnit   string   `toml:"systemd_unit"`
	RuntimeDir    string   `toml:"runtime_dir"`
}

// Paths contains directories for persistent state and logs.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications controls how fatal renderer errors reach the user.
type Notifications struct {
	SuppressErrorDialog bool   `toml:"suppress_error_dialog"`
	DialogCommand       string `toml:"dialog_command"`
	NtfyTopic           string `toml:"ntfy_topic"`
	RequestTimeout      int    `toml:"request_timeout"`
}

// History contains configuration for the launch journal.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Metrics contains configuration for the Prometheus endpoint.
type Metrics struct {
	Bind string `toml:"bind"`
}

// View contains presentation settings used inside the renderer process.
type View struct {
	Width       int    `toml:"width"`
	Color       bool   `toml:"color"`
	AccentColor string `toml:"accent_color"`
}

// Config encapsulates all configuration values for overlay.
//
// Configuration sections by subsystem:
//   - Renderer: renderer name, executable, spawner and runtime directory
//   - Paths: state and log directories
//   - Logging: log format, level, and retention
//   - Notifications: error dialog and ntfy reporting
//   - History: SQLite launch journal
//   - Metrics: Prometheus bind address
//   - View: candidate window presentation
type Config struct {
	Renderer      Renderer      `toml:"renderer"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	Metrics       Metrics       `toml:"metrics"`
	View          View          `toml:"view"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
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

	projectPath, err := filepath.Abs("overlay.toml")
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

// EnsureDirectories creates the state, log and runtime directories. The
// runtime directory holds sockets and is private to the user.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if err := os.MkdirAll(c.Renderer.RuntimeDir, 0o700); err != nil {
		return fmt.Errorf("create runtime directory %q: %w", c.Renderer.RuntimeDir, err)
	}
	return nil
}

// RendererName returns the name used for the renderer's sockets, pid file and
// lock. When append_display is set the desktop name is appended so that each
// display gets its own renderer.
func (c *Config) RendererName() string {
	name := strings.TrimSpace(c.Renderer.Name)
	if !c.Renderer.AppendDisplay {
		return name
	}
	display := desktopName()
	if display == "" {
		return name
	}
	return name + "." + display
}

// HistoryPath returns the journal location, or "" when the journal is disabled.
func (c *Config) HistoryPath() string {
	if !c.History.Enabled {
		return ""
	}
	return c.History.Path
}

func desktopName() string {
	for _, key := range []string{"DISPLAY", "WAYLAND_DISPLAY"} {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return sanitizeName(value)
		}
	}
	return ""
}

// sanitizeName keeps names usable as a single path component.
func sanitizeName(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, value)
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
