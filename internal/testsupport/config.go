package testsupport

import (
	"path/filepath"
	"testing"

	"overlay/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The runtime directory is kept short so Unix socket paths stay within the
// kernel's limit.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Renderer.Name = "renderer"
	cfgVal.Renderer.AppendDisplay = false
	cfgVal.Renderer.Path = filepath.Join(base, "bin", "overlayd")
	cfgVal.Renderer.RuntimeDir = ShortTempDir(t)
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRendererName overrides the renderer name on the test config.
func WithRendererName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Renderer.Name = name
	}
}

// WithStubRenderer writes an executable shell script as the renderer binary.
func WithStubRenderer(body string) ConfigOption {
	return func(b *configBuilder) {
		WriteScript(b.t, b.cfg.Renderer.Path, body)
	}
}

// WithSuppressedErrors disables error reporting on the test config.
func WithSuppressedErrors() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.SuppressErrorDialog = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
