package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/anjeleno/rdx-rivendell/pkg/eventlog"
	"github.com/anjeleno/rdx-rivendell/pkg/ipcauth"
	"github.com/anjeleno/rdx-rivendell/pkg/logging"
	"github.com/anjeleno/rdx-rivendell/pkg/security"
)

// maxLineBytes bounds one request line.
const maxLineBytes = 1 << 20

// Server owns the Unix socket listener and dispatches requests into the
// Engine. When a TokenManager is configured every request must carry a
// valid peer token.
type Server struct {
	engine   Engine
	events   *eventlog.Log
	auth     *ipcauth.TokenManager
	log      logging.Logger
	validate *validator.Validate
	input    *security.InputValidator

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]bool
	closed   bool
}

// NewServer creates a server. auth may be nil for the local-only mode.
func NewServer(engine Engine, events *eventlog.Log, auth *ipcauth.TokenManager, log logging.Logger) *Server {
	return &Server{
		engine:   engine,
		events:   events,
		auth:     auth,
		log:      log.With(logging.Component("ipc")),
		validate: validator.New(),
		input:    security.NewInputValidator(),
		conns:    make(map[net.Conn]bool),
	}
}

// Listen binds the socket, replacing a stale file from a previous run.
func (s *Server) Listen(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		l.Close()
		return err
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.log.Info("ipc listening", logging.Path(path))
	return nil
}

// Serve accepts connections until Close. Each connection gets its own
// goroutine; requests on one connection are handled in arrival order.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return errors.New("ipc server not listening")
	}

	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || ctx.Err() != nil {
				return nil
			}
			s.log.Warn("accept failed", logging.Error(err))
			continue
		}

		s.mu.Lock()
		s.conns[conn] = true
		s.mu.Unlock()
		go s.handleConn(ctx, conn)
	}
}

// Close stops the listener and drops every connection.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	return err
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	var writeMu sync.Mutex
	writeLine := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_, err = conn.Write(append(data, '\n'))
		return err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			writeLine(Response{Type: "response", OK: false, Error: "malformed request"})
			continue
		}
		resp := s.dispatch(ctx, writeLine, &req)
		if err := writeLine(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, writeLine func(any) error, req *Request) Response {
	resp := Response{Type: "response", ID: req.ID}

	if err := s.validate.Struct(req); err != nil {
		resp.Error = "invalid request"
		return resp
	}
	if s.auth != nil {
		if _, err := s.auth.Verify(req.Token); err != nil {
			resp.Error = "unauthorized"
			return resp
		}
	}

	result, err := s.call(ctx, writeLine, req)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = "internal error"
		return resp
	}
	resp.OK = true
	resp.Result = data
	return resp
}

func (s *Server) call(ctx context.Context, writeLine func(any) error, req *Request) (any, error) {
	switch req.Method {
	case MethodGetAudioDevices:
		devs, err := s.engine.ScanDevices(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(devs))
		for _, d := range devs {
			names = append(names, d.Name)
		}
		return names, nil

	case MethodScanDevices:
		return s.engine.ScanDevices(ctx)

	case MethodIsRunning:
		return s.engine.IsRunning(ctx), nil

	case MethodStartWithDevice:
		p, err := s.nameParams(req)
		if err != nil {
			return nil, err
		}
		return nil, s.engine.StartWithDevice(ctx, p.Name)

	case MethodGetAvailableProfiles:
		profiles := s.engine.Profiles()
		names := make([]string, 0, len(profiles))
		for _, p := range profiles {
			names = append(names, p.Name)
		}
		return names, nil

	case MethodGetProfiles:
		return s.engine.Profiles(), nil

	case MethodLoadProfile:
		p, err := s.nameParams(req)
		if err != nil {
			return nil, err
		}
		return nil, s.engine.LoadProfile(ctx, p.Name)

	case MethodSwitchInput:
		var p SwitchParams
		if err := s.decodeParams(req, &p); err != nil {
			return nil, err
		}
		if err := s.input.ValidateIdentifier(p.Source); err != nil {
			return nil, err
		}
		return nil, s.engine.SwitchInput(ctx, p.Source, p.Target)

	case MethodEnumerateInputSources:
		return s.engine.EnumerateInputSources(), nil

	case MethodGetStatus:
		return s.engine.Status(ctx), nil

	case MethodGetGraph:
		return s.engine.Graph(ctx), nil

	case MethodDisconnectAllFrom:
		p, err := s.nameParams(req)
		if err != nil {
			return nil, err
		}
		return nil, s.engine.DisconnectAllFrom(ctx, p.Name)

	case MethodEmergencyDisconnect:
		return nil, s.engine.EmergencyDisconnect(ctx)

	case MethodSubscribe:
		sub := s.events.Subscribe(ctx)
		go func() {
			for ev := range sub.Channel() {
				if err := writeLine(EventLine{Type: "event", Event: ev}); err != nil {
					sub.Unsubscribe()
					return
				}
			}
		}()
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown method %q", req.Method)
	}
}

func (s *Server) nameParams(req *Request) (*NameParams, error) {
	var p NameParams
	if err := s.decodeParams(req, &p); err != nil {
		return nil, err
	}
	if err := s.input.ValidateIdentifier(p.Name); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Server) decodeParams(req *Request, v any) error {
	if len(req.Params) == 0 {
		return errors.New("missing params")
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		return errors.New("malformed params")
	}
	return s.validate.Struct(v)
}
