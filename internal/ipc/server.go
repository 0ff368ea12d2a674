package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"sync"

	"overlay/internal/logging"
	"overlay/internal/protocol"
)

// Handler executes commands received by the renderer.
type Handler interface {
	Exec(ctx context.Context, cmd protocol.Command) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, cmd protocol.Command) error

// Exec implements Handler.
func (f HandlerFunc) Exec(ctx context.Context, cmd protocol.Command) error { return f(ctx, cmd) }

// ServerInfo overrides what the handshake reports. Zero fields fall back to
// the compiled-in versions and the running executable.
type ServerInfo struct {
	ProtocolVersion int
	ProductVersion  string
	Executable      string
}

// Server exposes the renderer over JSON-RPC on a Unix domain socket.
type Server struct {
	endpoint  Endpoint
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer binds the endpoint's socket and registers the Renderer service.
func NewServer(ctx context.Context, endpoint Endpoint, handler Handler, info ServerInfo, logger *slog.Logger) (*Server, error) {
	if handler == nil {
		return nil, errors.New("ipc server requires handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if info.ProtocolVersion == 0 {
		info.ProtocolVersion = protocol.ProtocolVersion
	}
	if info.ProductVersion == "" {
		info.ProductVersion = protocol.ProductVersion
	}
	if info.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		info.Executable = exe
	}
	if resolved, err := filepath.EvalSymlinks(info.Executable); err == nil {
		info.Executable = resolved
	}

	path := endpoint.SocketPath()
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	svc := &service{
		handler: handler,
		logger:  logger,
		ctx:     serverCtx,
		info: HandshakeResponse{
			Name:            endpoint.Name,
			ProtocolVersion: info.ProtocolVersion,
			ProductVersion:  info.ProductVersion,
			PID:             os.Getpid(),
			Executable:      info.Executable,
		},
	}
	if err := rpcServer.RegisterName("Renderer", svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		endpoint:  endpoint,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.endpoint.SocketPath()))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "clients may fail to reach the renderer"),
					logging.String(logging.FieldErrorHint, "check runtime directory permissions and restart the renderer"))
				continue
			}
			if !s.track(conn, true) {
				_ = conn.Close()
				return
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server, drops open connections and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.endpoint.SocketPath()); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.endpoint.SocketPath()),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale socket may make clients wait for a dead renderer"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or run overlay shutdown --force"))
	}
}

// track registers or forgets a connection. Registration fails once Close has
// started so no connection outlives the server.
func (s *Server) track(conn net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !add {
		delete(s.conns, conn)
		return true
	}
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

type service struct {
	handler Handler
	logger  *slog.Logger
	ctx     context.Context
	info    HandshakeResponse
}

func (s *service) Handshake(_ HandshakeRequest, resp *HandshakeResponse) error {
	*resp = s.info
	return nil
}

func (s *service) Exec(req ExecRequest, resp *ExecResponse) error {
	s.logger.Debug("command received",
		logging.String("command_kind", req.Command.Kind.String()),
		logging.Bool("visible", req.Command.Visible))
	if err := s.handler.Exec(s.ctx, req.Command); err != nil {
		resp.Accepted = false
		resp.Message = err.Error()
		return nil
	}
	resp.Accepted = true
	return nil
}
