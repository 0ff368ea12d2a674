package rendererd_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"overlay/internal/ipc"
	"overlay/internal/namedevent"
	"overlay/internal/protocol"
	"overlay/internal/rendererd"
	"overlay/internal/testsupport"
)

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

const fakeExecutable = "/opt/overlay/bin/overlayd"

func startRenderer(t *testing.T, endpoint ipc.Endpoint, drawer rendererd.Drawer) (<-chan error, context.CancelFunc) {
	t.Helper()

	listener := namedevent.Listen(endpoint.EventPath())
	if !listener.Available() {
		t.Fatalf("listen for ready event: %v", listener.Err())
	}
	t.Cleanup(func() { listener.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	r := rendererd.New(rendererd.Options{
		Endpoint: endpoint,
		Drawer:   drawer,
		Info:     ipc.ServerInfo{ProductVersion: "9.9.9", Executable: fakeExecutable},
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
	return errCh, cancel
}

func TestRunServesAndShutsDown(t *testing.T) {
	endpoint := ipc.NewEndpoint(testsupport.ShortTempDir(t), "renderer.:7")
	drawer := &recordingDrawer{}
	errCh, _ := startRenderer(t, endpoint, drawer)

	pid, err := ipc.ReadPID(endpoint)
	if err != nil || pid <= 0 {
		t.Fatalf("ReadPID = %d, %v", pid, err)
	}

	ch := ipc.Open(endpoint, fakeExecutable, time.Second)
	defer ch.Close()
	if !ch.Connected() {
		t.Fatalf("expected connected channel, last error %s", ch.LastError())
	}
	if ch.ServerProductVersion() != "9.9.9" || ch.ServerProtocolVersion() != protocol.ProtocolVersion {
		t.Fatalf("unexpected handshake: %+v", ch.Info())
	}

	for _, cmd := range []protocol.Command{
		{Kind: protocol.Noop},
		protocol.NewUpdate(protocol.Output{Preedit: "a"}),
		protocol.NewHide(),
	} {
		if err := ch.Call(cmd, time.Second); err != nil {
			t.Fatalf("Call(%s): %v", cmd.Kind, err)
		}
	}
	if got := drawer.Commands(); len(got) != 2 {
		t.Fatalf("expected 2 drawn updates, got %d", len(got))
	}

	if err := ch.Call(protocol.Command{Kind: protocol.Shutdown}, time.Second); err != nil {
		t.Fatalf("Call(shutdown): %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("renderer did not stop after shutdown")
	}
	if _, err := ipc.ReadPID(endpoint); err == nil {
		t.Fatal("pid file should be removed on exit")
	}
}

func TestRunRejectsSecondInstance(t *testing.T) {
	endpoint := ipc.NewEndpoint(testsupport.ShortTempDir(t), "renderer")
	startRenderer(t, endpoint, nil)

	second := rendererd.New(rendererd.Options{Endpoint: endpoint})
	err := second.Run(context.Background())
	if !errors.Is(err, rendererd.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	endpoint := ipc.NewEndpoint(testsupport.ShortTempDir(t), "renderer")
	errCh, cancel := startRenderer(t, endpoint, nil)
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("renderer did not stop after cancel")
	}
}
