// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"remotectl/internal/core/serverbase"
	"remotectl/internal/protocol"
)

type (
	// Handler answers one decoded request. Implementations must be safe for
	// concurrent use: every connection calls Handle from its own goroutine.
	Handler interface {
		Handle(ctx context.Context, req protocol.Request) protocol.Response
	}

	// HandlerFunc adapts a function to Handler.
	HandlerFunc func(ctx context.Context, req protocol.Request) protocol.Response

	// Server is the TCP runtime. A Server is single-use: once stopped or
	// failed, create a new one.
	Server struct {
		*serverbase.Base

		cfg     Config
		handler Handler
		logger  *log.Logger

		mu       sync.Mutex
		listener net.Listener
	}

	// Option configures a Server.
	Option func(*Server)
)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	return f(ctx, req)
}

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server for h. Zero fields in cfg take their defaults, except
// Port, where 0 selects a free port.
func New(h Handler, cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg.withDefaults(),
		handler: h,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "server"})
	}
	s.Base = serverbase.NewBase(serverbase.WithLogger(s.logger))
	return s
}

// Start binds the listener and begins accepting connections in the background.
// It returns once the server is accepting, or with a *BindError when the
// address cannot be claimed; in that case the server ends Failed and nothing
// keeps running.
func (s *Server) Start(ctx context.Context) error {
	if err := s.TransitionToStarting(ctx); err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()

	ln, err := serverbase.Listen(startupCtx, s.cfg.Host, s.cfg.Port)
	if err != nil {
		s.TransitionToFailed(err)
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.TransitionToRunning()
	s.Go(func(ctx context.Context) { s.acceptLoop(ctx, ln) })

	s.logger.Info("listening", "address", ln.Addr().String())
	return nil
}

// Stop closes the listener and every open connection, then waits for their
// goroutines. It is idempotent and safe to call before Start.
func (s *Server) Stop() error {
	wasRunning := s.IsRunning()
	err := s.Shutdown(s.closeListener, s.cfg.ShutdownTimeout)
	if wasRunning {
		s.logger.Info("stopped")
	}
	return err
}

func (s *Server) closeListener() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Wait blocks until the server stops. It returns the failure cause when the
// server ended Failed.
func (s *Server) Wait() error {
	<-s.Done()
	if s.State() == serverbase.StateFailed {
		return s.LastError()
	}
	return nil
}

// Address returns the bound host:port, or "" before a successful Start.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the bound port, or 0 before a successful Start.
func (s *Server) Port() int {
	_, portStr, err := net.SplitHostPort(s.Address())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

// Config returns the effective configuration.
func (s *Server) Config() Config { return s.cfg }

// Sessions returns the number of open client connections.
func (s *Server) Sessions() int { return s.Tracked() }

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || serverbase.IsClosedConnError(err) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
				s.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					return
				}
			}
			s.logger.Error("accept failed", "error", err)
			s.SendError(fmt.Errorf("accept: %w", err))
			return
		}
		backoff = 0

		sess := newSession(conn)
		if !s.Track(sess) {
			_ = conn.Close()
			return
		}
		s.Go(func(ctx context.Context) { s.serveSession(ctx, sess) })
	}
}

func (s *Server) serveSession(ctx context.Context, sess *session) {
	defer func() {
		s.Untrack(sess)
		_ = sess.Close()
		s.logger.Debug("client disconnected", "session", sess.id, "requests", sess.requests,
			"duration", time.Since(sess.startedAt).Round(time.Millisecond))
	}()
	s.logger.Debug("client connected", "session", sess.id, "remote", sess.remote())

	codec := protocol.NewCodec(sess.conn)
	for {
		req, err := codec.ReadRequest()
		if err != nil {
			if !s.answerReadError(codec, sess, err) {
				return
			}
			continue
		}

		sess.requests++
		resp := s.handler.Handle(ctx, req)
		if !s.reply(codec, sess, req, resp) {
			return
		}
	}
}

// reply writes resp. A response that cannot be encoded is replaced by an
// internal error for the same request. It returns false when the connection
// cannot continue.
func (s *Server) reply(codec *protocol.Codec, sess *session, req protocol.Request, resp protocol.Response) bool {
	err := codec.WriteResponse(resp)
	if errors.Is(err, protocol.ErrEncode) {
		s.logger.Warn("response not encodable", "session", sess.id, "op", req.Op, "error", err)
		err = codec.WriteResponse(protocol.Response{
			ID:    req.ID,
			Error: protocol.Errorf(protocol.CodeInternal, "%v", err),
		})
	}
	if err != nil {
		if !serverbase.IsClosedConnError(err) {
			s.logger.Warn("write failed", "session", sess.id, "error", err)
		}
		return false
	}
	return true
}

// answerReadError reports a bad line back to the client. It returns false when
// the connection cannot continue.
func (s *Server) answerReadError(codec *protocol.Codec, sess *session, err error) bool {
	switch {
	case errors.Is(err, protocol.ErrMalformedMessage):
		resp := protocol.Response{Error: protocol.Errorf(protocol.CodeBadRequest, "%v", err)}
		return codec.WriteResponse(resp) == nil
	case errors.Is(err, protocol.ErrMessageTooLarge):
		resp := protocol.Response{Error: protocol.Errorf(protocol.CodeBadRequest, "%v", err)}
		_ = codec.WriteResponse(resp)
		return false
	case serverbase.IsClosedConnError(err):
		return false
	default:
		s.logger.Warn("read failed", "session", sess.id, "error", err)
		return false
	}
}
