package spawn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"overlay/internal/config"
)

// ErrUnsupported is returned by New for an unknown spawner name.
var ErrUnsupported = errors.New("unsupported spawner")

// ProcessSpawner starts a renderer and returns its pid.
type ProcessSpawner interface {
	Spawn(ctx context.Context, path string, args []string) (int, error)
}

// New selects the spawner named by the configuration.
func New(cfg *config.Config) (ProcessSpawner, error) {
	if cfg == nil {
		return ExecSpawner{}, nil
	}
	switch cfg.Renderer.Spawner {
	case config.SpawnerExec, "":
		return ExecSpawner{}, nil
	case config.SpawnerSystemd:
		return SystemdSpawner{Unit: cfg.Renderer.SystemdUnit}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, cfg.Renderer.Spawner)
	}
}

// ExecSpawner runs the executable directly in its own session so it survives
// the controlling terminal. The child is reaped in the background.
type ExecSpawner struct {
	// Env is appended to the current environment.
	Env []string
}

// Spawn implements ProcessSpawner.
func (s ExecSpawner) Spawn(_ context.Context, path string, args []string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("renderer path is empty")
	}
	cmd := exec.Command(path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start renderer %s: %w", path, err)
	}
	pid := cmd.Process.Pid
	go func() {
		_ = cmd.Wait()
	}()
	return pid, nil
}

// SystemdSpawner starts a systemd user unit. The executable path is ignored;
// the unit decides what runs.
type SystemdSpawner struct {
	Unit string
	// Systemctl overrides the systemctl binary, mainly for tests.
	Systemctl string
}

// Spawn implements ProcessSpawner.
func (s SystemdSpawner) Spawn(ctx context.Context, _ string, _ []string) (int, error) {
	if strings.TrimSpace(s.Unit) == "" {
		return 0, errors.New("systemd unit is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.run(ctx, "--user", "start", s.Unit); err != nil {
		return 0, fmt.Errorf("start unit %s: %w", s.Unit, err)
	}
	out, err := s.run(ctx, "--user", "show", "-p", "MainPID", "--value", s.Unit)
	if err != nil {
		return 0, fmt.Errorf("query unit %s pid: %w", s.Unit, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse unit %s pid %q: %w", s.Unit, strings.TrimSpace(out), err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unit %s has no main process", s.Unit)
	}
	return pid, nil
}

func (s SystemdSpawner) run(ctx context.Context, args ...string) (string, error) {
	bin := s.Systemctl
	if bin == "" {
		bin = "systemctl"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
