package notifications

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// dialogReporter launches an external error dialog. The dialog outlives the
// call; only the start is checked.
type dialogReporter struct {
	command []string
}

func (d *dialogReporter) ReportRendererError(_ context.Context, errorType string) error {
	if len(d.command) == 0 {
		return errors.New("dialog command is empty")
	}
	args := append(append([]string(nil), d.command[1:]...), "--error_type="+errorType)
	cmd := exec.Command(d.command[0], args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start error dialog: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
