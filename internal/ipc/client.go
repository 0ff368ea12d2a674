package ipc

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"time"

	"overlay/internal/protocol"
)

// DefaultDialTimeout bounds connect plus handshake when opening a channel.
const DefaultDialTimeout = 500 * time.Millisecond

// Factory opens JSON-RPC channels to renderers living in Dir.
type Factory struct {
	Dir         string
	DialTimeout time.Duration
}

// NewChannel implements ChannelFactory.
func (f Factory) NewChannel(name, expectedPath string) Channel {
	return Open(NewEndpoint(f.Dir, name), expectedPath, f.DialTimeout)
}

// Client provides RPC access to one renderer.
type Client struct {
	endpoint Endpoint
	conn     net.Conn
	client   *rpc.Client

	connected bool
	lastErr   ErrorKind
	info      HandshakeResponse
}

// Open dials the renderer socket and performs the handshake. It never fails;
// inspect Connected and LastError on the result.
func Open(endpoint Endpoint, expectedPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	c := &Client{endpoint: endpoint}

	conn, err := net.DialTimeout("unix", endpoint.SocketPath(), timeout)
	if err != nil {
		c.lastErr = classify(err)
		return c
	}
	c.conn = conn
	c.client = rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))

	var info HandshakeResponse
	if err := c.call("Renderer.Handshake", HandshakeRequest{}, &info, timeout); err != nil {
		c.fail(err)
		return c
	}
	c.info = info

	if expectedPath != "" && !samePath(info.Executable, expectedPath) {
		// A renderer from a different installation owns the name.
		c.lastErr = ErrorOther
		c.shutdownConn()
		return c
	}
	c.connected = true
	return c
}

// Connected reports whether a live, accepted server is on the other end.
func (c *Client) Connected() bool { return c.connected }

// LastError reports the most recent channel-level failure.
func (c *Client) LastError() ErrorKind { return c.lastErr }

// ServerProtocolVersion returns the handshake protocol version, or 0.
func (c *Client) ServerProtocolVersion() int { return c.info.ProtocolVersion }

// ServerProductVersion returns the handshake product version, or "".
func (c *Client) ServerProductVersion() string { return c.info.ProductVersion }

// Info returns the full handshake response.
func (c *Client) Info() HandshakeResponse { return c.info }

// Call delivers cmd and waits at most timeout for the acknowledgement.
func (c *Client) Call(cmd protocol.Command, timeout time.Duration) error {
	if !c.connected {
		return ErrNotConnected
	}
	var resp ExecResponse
	if err := c.call("Renderer.Exec", ExecRequest{Command: cmd}, &resp, timeout); err != nil {
		c.fail(err)
		return err
	}
	c.lastErr = ErrorNone
	if !resp.Accepted {
		return fmt.Errorf("renderer rejected %s command: %s", cmd.Kind, resp.Message)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.connected = false
	return c.shutdownConn()
}

func (c *Client) call(method string, args, reply any, timeout time.Duration) error {
	call := c.client.Go(method, args, reply, make(chan *rpc.Call, 1))
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case done := <-call.Done:
		return done.Error
	case <-timer.C:
		return ErrCallTimeout
	}
}

func (c *Client) fail(err error) {
	c.lastErr = classify(err)
	c.connected = false
	c.shutdownConn()
}

func (c *Client) shutdownConn() error {
	var err error
	if c.client != nil {
		err = c.client.Close()
		c.client = nil
		c.conn = nil
	} else if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	if errors.Is(err, rpc.ErrShutdown) {
		return nil
	}
	return err
}

func classify(err error) ErrorKind {
	if err == nil {
		return ErrorNone
	}
	if errors.Is(err, ErrCallTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}
	return ErrorOther
}

func samePath(a, b string) bool {
	return canonicalPath(a) == canonicalPath(b)
}

func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return filepath.Clean(path)
}
