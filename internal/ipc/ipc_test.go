package ipc_test

import (
	"context"
	"errors"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"overlay/internal/ipc"
	"overlay/internal/logging"
	"overlay/internal/protocol"
	"overlay/internal/testsupport"
)

type recordingHandler struct {
	mu       sync.Mutex
	commands []protocol.Command
	delay    time.Duration
	err      error
}

func (h *recordingHandler) Exec(_ context.Context, cmd protocol.Command) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
	return h.err
}

func (h *recordingHandler) received() []protocol.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]protocol.Command(nil), h.commands...)
}

const fakeExecutable = "/opt/overlay/bin/overlayd"

func startServer(t *testing.T, handler ipc.Handler, info ipc.ServerInfo) ipc.Endpoint {
	t.Helper()

	endpoint := ipc.NewEndpoint(testsupport.ShortTempDir(t), "renderer")
	if info.Executable == "" {
		info.Executable = fakeExecutable
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, endpoint, handler, info, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return endpoint
}

func TestOpenAndCall(t *testing.T) {
	handler := &recordingHandler{}
	endpoint := startServer(t, handler, ipc.ServerInfo{ProductVersion: "1.2.3"})

	client := ipc.Open(endpoint, fakeExecutable, time.Second)
	t.Cleanup(func() { client.Close() })

	if !client.Connected() {
		t.Fatalf("expected connected client, last error %s", client.LastError())
	}
	if client.ServerProtocolVersion() != protocol.ProtocolVersion {
		t.Fatalf("protocol version = %d", client.ServerProtocolVersion())
	}
	if client.ServerProductVersion() != "1.2.3" {
		t.Fatalf("product version = %q", client.ServerProductVersion())
	}
	if client.Info().PID != os.Getpid() {
		t.Fatalf("pid = %d, want %d", client.Info().PID, os.Getpid())
	}

	cmd := protocol.NewUpdate(protocol.Output{Preedit: "henkan", Candidates: []protocol.Candidate{{Value: "変換"}}})
	if err := client.Call(cmd, time.Second); err != nil {
		t.Fatalf("Call: %v", err)
	}
	got := handler.received()
	if len(got) != 1 || got[0].Kind != protocol.Update || got[0].Output.Candidates[0].Value != "変換" {
		t.Fatalf("unexpected commands: %+v", got)
	}
	if client.LastError() != ipc.ErrorNone {
		t.Fatalf("last error = %s", client.LastError())
	}
}

func TestOpenServerPathCheck(t *testing.T) {
	endpoint := startServer(t, &recordingHandler{}, ipc.ServerInfo{})

	tests := []struct {
		name          string
		expected      string
		wantConnected bool
	}{
		{"check disabled", "", true},
		{"same path", fakeExecutable, true},
		{"other installation", "/usr/local/bin/overlayd", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := ipc.Open(endpoint, tc.expected, time.Second)
			defer client.Close()
			if client.Connected() != tc.wantConnected {
				t.Fatalf("connected = %v, want %v", client.Connected(), tc.wantConnected)
			}
			if client.ServerProtocolVersion() != protocol.ProtocolVersion {
				t.Fatalf("versions should be readable after handshake, got %d", client.ServerProtocolVersion())
			}
		})
	}
}

func TestOpenWithoutServer(t *testing.T) {
	endpoint := ipc.NewEndpoint(testsupport.ShortTempDir(t), "missing")
	client := ipc.Open(endpoint, "", 200*time.Millisecond)
	if client.Connected() {
		t.Fatal("expected disconnected client")
	}
	if client.LastError() != ipc.ErrorOther {
		t.Fatalf("last error = %s, want other", client.LastError())
	}
	if err := client.Call(protocol.Command{Kind: protocol.Noop}, time.Second); !errors.Is(err, ipc.ErrNotConnected) {
		t.Fatalf("Call error = %v, want ErrNotConnected", err)
	}
}

func TestOpenHandshakeTimeout(t *testing.T) {
	endpoint := ipc.NewEndpoint(testsupport.ShortTempDir(t), "silent")
	listener, err := net.Listen("unix", endpoint.SocketPath())
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		listener.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close()
		}
	})
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	client := ipc.Open(endpoint, "", 100*time.Millisecond)
	if client.Connected() {
		t.Fatal("expected handshake to fail")
	}
	if client.LastError() != ipc.ErrorTimeout {
		t.Fatalf("last error = %s, want timeout", client.LastError())
	}
}

func TestCallTimeout(t *testing.T) {
	handler := &recordingHandler{delay: 300 * time.Millisecond}
	endpoint := startServer(t, handler, ipc.ServerInfo{})

	client := ipc.Open(endpoint, "", time.Second)
	defer client.Close()
	err := client.Call(protocol.NewHide(), 50*time.Millisecond)
	if !errors.Is(err, ipc.ErrCallTimeout) {
		t.Fatalf("Call error = %v, want ErrCallTimeout", err)
	}
	if client.LastError() != ipc.ErrorTimeout {
		t.Fatalf("last error = %s, want timeout", client.LastError())
	}
	if client.Connected() {
		t.Fatal("timed out channel should be disconnected")
	}
}

func TestCallRejected(t *testing.T) {
	handler := &recordingHandler{err: errors.New("busy")}
	endpoint := startServer(t, handler, ipc.ServerInfo{})

	client := ipc.Open(endpoint, "", time.Second)
	defer client.Close()
	err := client.Call(protocol.Command{Kind: protocol.Noop}, time.Second)
	if err == nil || !strings.Contains(err.Error(), "busy") {
		t.Fatalf("expected rejection error, got %v", err)
	}
	if client.LastError() != ipc.ErrorNone {
		t.Fatalf("rejection is not a channel error, got %s", client.LastError())
	}
}

func TestTerminateServer(t *testing.T) {
	endpoint := ipc.NewEndpoint(testsupport.ShortTempDir(t), "victim")
	if _, err := ipc.TerminateServer(endpoint); !errors.Is(err, ipc.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning without pid file, got %v", err)
	}

	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep unavailable: %v", err)
	}
	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()

	if err := ipc.WritePID(endpoint, cmd.Process.Pid); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	if err := os.WriteFile(endpoint.SocketPath(), nil, 0o600); err != nil {
		t.Fatalf("write fake socket: %v", err)
	}

	pid, err := ipc.TerminateServer(endpoint)
	if err != nil {
		t.Fatalf("TerminateServer: %v", err)
	}
	if pid != cmd.Process.Pid {
		t.Fatalf("pid = %d, want %d", pid, cmd.Process.Pid)
	}
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("process survived termination")
	}
	for _, path := range []string{endpoint.PIDPath(), endpoint.SocketPath()} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed", path)
		}
	}
}

func TestTerminateServerRefusesSelf(t *testing.T) {
	endpoint := ipc.NewEndpoint(testsupport.ShortTempDir(t), "self")
	if err := ipc.WritePID(endpoint, os.Getpid()); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	if _, err := ipc.TerminateServer(endpoint); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}
