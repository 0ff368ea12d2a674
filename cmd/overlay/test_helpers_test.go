package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"overlay/internal/config"
	"overlay/internal/ipc"
	"overlay/internal/namedevent"
	"overlay/internal/protocol"
	"overlay/internal/rendererd"
	"overlay/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	endpoint   ipc.Endpoint
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Renderer.SkipPathCheck = true
	cfg.Notifications.SuppressErrorDialog = true

	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "overlay", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		endpoint:   ipc.NewEndpoint(cfg.Renderer.RuntimeDir, cfg.Renderer.Name),
	}
}

type recordingDrawer struct {
	mu   sync.Mutex
	cmds []protocol.Command
}

func (d *recordingDrawer) Render(cmd protocol.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = append(d.cmds, cmd)
	return nil
}

func (d *recordingDrawer) Commands() []protocol.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.Command(nil), d.cmds...)
}

// startRenderer serves the env's renderer name in-process and returns a
// channel that yields Run's result.
func startRenderer(t *testing.T, env *cliTestEnv, drawer rendererd.Drawer) <-chan error {
	t.Helper()

	listener := namedevent.Listen(env.endpoint.EventPath())
	if !listener.Available() {
		t.Fatalf("listen for ready event: %v", listener.Err())
	}
	t.Cleanup(func() { listener.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	r := rendererd.New(rendererd.Options{
		Endpoint: env.endpoint,
		Drawer:   drawer,
		Info: ipc.ServerInfo{
			ProtocolVersion: protocol.ProtocolVersion,
			ProductVersion:  protocol.ProductVersion,
			Executable:      env.cfg.Renderer.Path,
		},
	})
	errCh := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		errCh <- r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	})

	if got := listener.Wait(5*time.Second, 0); got != namedevent.Signaled {
		t.Fatalf("ready event = %s, want signaled", got)
	}
	return errCh
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, strings.NewReader(""))
}

func runCLIWithInput(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(stdin)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[renderer]
name = %q
path = %q
runtime_dir = %q
append_display = false
skip_path_check = %t

[paths]
state_dir = %q
log_dir = %q

[history]
path = %q

[logging]
format = "json"
level = "debug"

[notifications]
suppress_error_dialog = %t
`,
		cfg.Renderer.Name,
		cfg.Renderer.Path,
		cfg.Renderer.RuntimeDir,
		cfg.Renderer.SkipPathCheck,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.History.Path,
		cfg.Notifications.SuppressErrorDialog,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
