// Package server accepts client connections and drives the
// read-frame-dispatch-respond loop over them, strictly one connection at
// a time.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/Smattr/alfred/internal/config"
	"github.com/Smattr/alfred/internal/engine"
	"github.com/Smattr/alfred/internal/logger"
	"github.com/Smattr/alfred/internal/metrics"
	"github.com/Smattr/alfred/internal/protocol"
)

// ErrNotStarted is returned when Serve is called before Start.
var ErrNotStarted = errors.New("server not started")

// Executor runs one request's statement text against the backing store,
// streaming each result row through emit before returning the terminal
// outcome.
type Executor interface {
	Execute(ctx context.Context, text string, emit engine.RowFunc) error
}

// Server owns the listening socket and the single active connection. The
// serving flow and the shutdown signal path may touch both; the mutex and
// running flag keep every close single-owner.
type Server struct {
	cfg      *config.Config
	logger   *logger.Logger
	executor Executor
	metrics  *metrics.Collector

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
	running  bool
}

// New creates a Server. Call Start to bind and Serve to accept.
func New(cfg *config.Config, exec Executor, log *logger.Logger, collector *metrics.Collector) *Server {
	return &Server{
		cfg:      cfg,
		logger:   log,
		executor: exec,
		metrics:  collector,
	}
}

// Start binds and listens on the configured address. Failure here is a
// startup error; the caller is expected to exit.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr(), err)
	}

	s.listener = listener
	s.running = true
	s.logger.Info("Listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts and serves connections until Stop is called, one at a
// time: no connection is accepted while another is being served. It
// returns nil after Stop; any other accept failure is fatal and comes
// back to the caller.
func (s *Server) Serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return ErrNotStarted
	}

	for {
		s.logger.Debug("Waiting for connection on %s", listener.Addr())
		conn, err := listener.Accept()
		if err != nil {
			if s.stopped() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.conn = conn
		s.mu.Unlock()

		s.serve(conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}
}

// Stop closes the listener and any connection being served, unblocking
// Serve. It may be called from the shutdown signal path at any phase of
// the main flow and is safe to call more than once.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.listener != nil {
		s.listener.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}

	s.logger.Info("Server stopped")
	return nil
}

func (s *Server) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.running
}

// serve drives one connection from accept to disconnect.
func (s *Server) serve(conn net.Conn) {
	s.logger.Debug("Connection from %s", conn.RemoteAddr())
	s.metrics.ConnectionOpened()

	var (
		framer = protocol.NewFramer(s.cfg.MaxRequest)
		seq    protocol.Sequence
		chunk  = make([]byte, s.cfg.ReadChunkSize)
	)

	s.prompt(conn)

	// TODO: add support for a magic exit command.

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			s.metrics.AddBytesRead(n)

			requests, ferr := framer.Feed(chunk[:n])
			for _, request := range requests {
				s.dispatch(conn, seq.Next(), request)
			}
			if ferr != nil {
				s.logger.Warn("Dropping %s: %v", conn.RemoteAddr(), ferr)
				return
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("Read failed: %v", err)
			}
			if pending := framer.Pending(); pending > 0 {
				s.logger.Debug("Discarding %d unterminated byte(s)", pending)
			}
			s.logger.Debug("Client disconnected.")
			return
		}
	}
}

// dispatch executes one framed request and writes its response sequence:
// one message per column per row, then the terminal message, then the
// prompt when enabled.
func (s *Server) dispatch(conn net.Conn, id uint32, request []byte) {
	text := string(request)
	s.logger.Debug("Received %d character(s): %s", len(text), strings.TrimSuffix(text, "\n"))

	rows := 0
	err := s.executor.Execute(context.Background(), text, func(row engine.Row) error {
		rows++
		for _, field := range row {
			s.send(conn, protocol.Data(id, field.Column, field.Value, field.Null))
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("Failed to execute query %d: %v", id, err)
		s.send(conn, protocol.Err(id, err.Error()))
		s.metrics.RequestFailed()
	} else {
		s.send(conn, protocol.OK(id))
		s.metrics.RequestServed(rows)
	}

	s.prompt(conn)
}

// send writes one message, best effort. A failed write is logged and the
// connection lives on; the disconnect, if any, surfaces at the next read.
func (s *Server) send(conn net.Conn, m protocol.Message) {
	n, err := conn.Write(m.Encode())
	s.metrics.AddBytesWritten(n)
	if err != nil {
		s.logger.Warn("Failed to write response: %v", err)
	}
}

func (s *Server) prompt(conn net.Conn) {
	if !s.cfg.Prompt {
		return
	}
	n, err := io.WriteString(conn, protocol.Prompt)
	s.metrics.AddBytesWritten(n)
	if err != nil {
		s.logger.Debug("Failed to write prompt: %v", err)
	}
}
