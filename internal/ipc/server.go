package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/metrics"
	"github.com/troia/halo/internal/platform"
)

// maxRequestSize bounds a single request line.
const maxRequestSize = 1 << 20

// Service is the daemon behind the socket. Every method returns the
// configuration version the call observed alongside its result.
type Service interface {
	Show(ctx context.Context, anchor *platform.Point) (VisibilityData, uint64, error)
	Hide(ctx context.Context) (VisibilityData, uint64, error)
	Toggle(ctx context.Context) (VisibilityData, uint64, error)
	Run(ctx context.Context, req engine.Request) (engine.Outcome, uint64, error)
	Select(ctx context.Context, dir config.Direction) (SelectData, uint64, error)
	Close(ctx context.Context, dir config.Direction) (CloseData, uint64, error)
	Slots(ctx context.Context) (SlotsData, uint64, error)
	Status(ctx context.Context) (StatusData, uint64, error)
	Reload(ctx context.Context) (ReloadData, uint64, error)
	Rebuild(ctx context.Context) (RebuildData, uint64, error)
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	service      Service
	logger       *slog.Logger
	recorder     metrics.Recorder
	ctx          context.Context
	conns        sync.WaitGroup
	active       map[net.Conn]struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a server for socketPath. A stale socket file left by a
// previous instance is removed when Start binds.
func NewServer(socketPath string, service Service, logger *slog.Logger, recorder metrics.Recorder) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Server{
		socketPath: socketPath,
		service:    service,
		logger:     logger,
		recorder:   recorder,
		active:     make(map[net.Conn]struct{}),
	}
}

func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections. Requests run with ctx, not
// with the lifetime of the client connection.
func (s *Server) Start(ctx context.Context) error {
	if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("another daemon is already listening on %s", s.socketPath)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}
	s.listener = listener
	s.ctx = ctx

	s.logger.Info("IPC server listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			shuttingDown := s.shuttingDown
			s.shutdownMu.Unlock()
			if shuttingDown {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		s.shutdownMu.Lock()
		if s.shuttingDown {
			s.shutdownMu.Unlock()
			conn.Close()
			return
		}
		s.active[conn] = struct{}{}
		s.conns.Add(1)
		s.shutdownMu.Unlock()

		go func() {
			defer s.conns.Done()
			defer func() {
				s.shutdownMu.Lock()
				delete(s.active, conn)
				s.shutdownMu.Unlock()
			}()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection serves newline-delimited requests in arrival order until
// the client hangs up.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxRequestSize)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.handleLine(line)

		data, err := resp.Marshal()
		if err != nil {
			s.logger.Error("failed to marshal response", "id", resp.ID, "error", err)
			return
		}
		data = append(data, '\n')
		if _, err := writer.Write(data); err == nil {
			err = writer.Flush()
		}
		if err != nil {
			s.logger.Debug("failed to send response", "id", resp.ID, "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Debug("IPC read error", "error", err)
	}
}

func (s *Server) handleLine(line []byte) *Response {
	start := time.Now()
	req, err := ParseRequest(line)
	if err != nil {
		s.recorder.ObserveRequest("invalid", StatusError, time.Since(start))
		return NewErrorResponse(err)
	}

	resp := s.handleCommand(req)
	resp.ID = req.ID

	s.recorder.ObserveRequest(string(req.Command), resp.Status, time.Since(start))
	if resp.Status == StatusError {
		s.logger.Warn("IPC request failed", "id", req.ID, "command", req.Command, "kind", resp.Kind, "error", resp.Error)
	} else {
		s.logger.Debug("IPC request", "id", req.ID, "command", req.Command, "version", resp.Version, "elapsed", time.Since(start))
	}
	return resp
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	switch req.Command {
	case CommandShow:
		var p ShowPayload
		if err := DecodePayload(req, &p); err != nil {
			return NewErrorResponse(err)
		}
		return reply(s.service.Show(ctx, p.Anchor))
	case CommandHide:
		return reply(s.service.Hide(ctx))
	case CommandToggle:
		return reply(s.service.Toggle(ctx))
	case CommandRun:
		var p engine.Request
		if err := DecodePayload(req, &p); err != nil {
			return NewErrorResponse(err)
		}
		return reply(s.service.Run(ctx, p))
	case CommandSelect:
		p, err := decodeDirection(req)
		if err != nil {
			return NewErrorResponse(err)
		}
		return reply(s.service.Select(ctx, p.Direction))
	case CommandClose:
		p, err := decodeDirection(req)
		if err != nil {
			return NewErrorResponse(err)
		}
		return reply(s.service.Close(ctx, p.Direction))
	case CommandSlots:
		return reply(s.service.Slots(ctx))
	case CommandStatus:
		return reply(s.service.Status(ctx))
	case CommandReload:
		return reply(s.service.Reload(ctx))
	case CommandRebuild:
		return reply(s.service.Rebuild(ctx))
	default:
		return NewErrorResponse(fmt.Errorf("%w: unknown command %q", ErrBadRequest, req.Command))
	}
}

func decodeDirection(req *Request) (DirectionPayload, error) {
	var p struct {
		Direction *config.Direction `json:"direction"`
	}
	if err := DecodePayload(req, &p); err != nil {
		return DirectionPayload{}, err
	}
	if p.Direction == nil {
		return DirectionPayload{}, fmt.Errorf("%w: %s requires a direction", ErrBadRequest, req.Command)
	}
	return DirectionPayload{Direction: *p.Direction}, nil
}

func reply[T any](data T, version uint64, err error) *Response {
	if err != nil {
		resp := NewErrorResponse(err)
		resp.Version = version
		return resp
	}
	resp, merr := NewOKResponse(data)
	if merr != nil {
		resp = NewErrorResponse(merr)
	}
	resp.Version = version
	return resp
}

// Stop closes the listener and every open connection, waits for their
// handlers to return, and removes the socket file.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	for conn := range s.active {
		conn.Close()
	}
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.conns.Wait()
	os.Remove(s.socketPath)
}
