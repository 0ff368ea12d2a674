package ipc

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ReadPID returns the pid recorded for the endpoint's renderer.
func ReadPID(endpoint Endpoint) (int, error) {
	data, err := os.ReadFile(endpoint.PIDPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("read renderer pid file %q: %w", endpoint.PIDPath(), err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("renderer pid file %q holds no pid", endpoint.PIDPath())
	}
	return pid, nil
}

// WritePID records pid for the endpoint's renderer.
func WritePID(endpoint Endpoint, pid int) error {
	return os.WriteFile(endpoint.PIDPath(), []byte(strconv.Itoa(pid)), 0o600)
}

// TerminateServer kills the renderer registered under the endpoint's name and
// removes its pid file and socket. It returns the pid that was signalled.
func TerminateServer(endpoint Endpoint) (int, error) {
	pid, err := ReadPID(endpoint)
	if err != nil {
		return 0, err
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	if err := unix.Kill(pid, unix.SIGKILL); err != nil {
		if !errors.Is(err, unix.ESRCH) {
			return 0, fmt.Errorf("kill renderer process %d: %w", pid, err)
		}
		cleanupServerFiles(endpoint)
		return 0, ErrNotRunning
	}
	cleanupServerFiles(endpoint)
	return pid, nil
}

func cleanupServerFiles(endpoint Endpoint) {
	for _, path := range []string{endpoint.PIDPath(), endpoint.SocketPath()} {
		_ = os.Remove(path)
	}
}
