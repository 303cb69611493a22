// SPDX-License-Identifier: MPL-2.0

package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"mvdan.cc/sh/v3/shell"

	"remotectl/internal/core/serverbase"
	"remotectl/internal/server"
	"remotectl/pkg/types"
)

const prompt = "remotectl> "

type (
	// Server is the SSH console. A Server is single-use: once stopped or
	// failed, create a new one.
	Server struct {
		*serverbase.Base

		cfg    Config
		interp *Interpreter
		logger *log.Logger

		mu       sync.Mutex
		srv      *ssh.Server
		listener net.Listener
	}

	// Option configures a Server.
	Option func(*Server)
)

// WithLogger sets the console logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a console serving requests through h.
func New(h server.Handler, cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg.withDefaults(),
		interp: NewInterpreter(h),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "console"})
	}
	s.Base = serverbase.NewBase(serverbase.WithLogger(s.logger))
	return s
}

// Start binds the listener and serves SSH sessions in the background. Bind
// failures are returned as *server.BindError.
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

	sshOpts := []ssh.Option{
		wish.WithMiddleware(s.commandMiddleware()),
	}
	if s.cfg.HostKeyPath != "" {
		sshOpts = append(sshOpts, wish.WithHostKeyPath(s.cfg.HostKeyPath))
	}

	srv, err := wish.NewServer(sshOpts...)
	if err != nil {
		_ = ln.Close()
		err = fmt.Errorf("failed to create SSH server: %w", err)
		s.TransitionToFailed(err)
		return err
	}

	s.mu.Lock()
	s.srv = srv
	s.listener = ln
	s.mu.Unlock()

	s.TransitionToRunning()
	s.Go(func(context.Context) { s.serve(srv, ln) })

	s.logger.Info("console listening", "address", ln.Addr().String())
	return nil
}

// Stop closes the listener and every session. It is idempotent and safe to
// call before Start.
func (s *Server) Stop() error {
	wasRunning := s.IsRunning()
	err := s.Shutdown(s.closeServer, s.cfg.ShutdownTimeout)
	if wasRunning {
		s.logger.Info("console stopped")
	}
	return err
}

func (s *Server) closeServer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.srv != nil {
		err = s.srv.Close()
	}
	// Close may run before Serve registered the listener with srv.
	if s.listener != nil {
		_ = s.listener.Close()
	}
	return err
}

// Wait blocks until the console stops.
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

// Sessions returns the number of open console sessions.
func (s *Server) Sessions() int { return s.Tracked() }

func (s *Server) serve(srv *ssh.Server, ln net.Listener) {
	err := srv.Serve(ln)
	if err == nil || errors.Is(err, ssh.ErrServerClosed) || serverbase.IsClosedConnError(err) {
		return
	}
	s.logger.Error("console serve failed", "error", err)
	s.SendError(fmt.Errorf("console serve: %w", err))
}

func (s *Server) commandMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			s.handleSession(sess)
			next(sess)
		}
	}
}

func (s *Server) handleSession(sess ssh.Session) {
	if !s.Track(sess) {
		_ = sess.Exit(int(types.ExitFailure))
		return
	}
	defer s.Untrack(sess)

	raw := strings.TrimSpace(sess.RawCommand())
	s.logger.Debug("console session", "user", sess.User(), "remote", sess.RemoteAddr().String(), "command", raw)

	var code types.ExitCode
	if raw == "" {
		code = s.repl(sess, sess, sess.Stderr())
	} else {
		code = s.runLine(sess.Context(), raw, sess, sess.Stderr())
	}
	_ = sess.Exit(int(code))
}

// runLine splits line with shell quoting rules and executes it. Variables
// expand to nothing; the console never reads the host environment.
func (s *Server) runLine(ctx context.Context, line string, out, errOut io.Writer) types.ExitCode {
	args, err := shell.Fields(line, func(string) string { return "" })
	if err != nil {
		fmt.Fprintf(errOut, "parse error: %v\n", err)
		return types.ExitUsage
	}
	return s.interp.Exec(ctx, args, out, errOut)
}

// repl reads command lines until exit or EOF. Failed commands are reported
// but do not end the session.
func (s *Server) repl(sess ssh.Session, out, errOut io.Writer) types.ExitCode {
	fmt.Fprintln(out, "remotectl console; type 'help' for commands, 'exit' to leave")

	scanner := bufio.NewScanner(sess)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return types.ExitOK
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return types.ExitOK
		}
		s.runLine(sess.Context(), line, out, errOut)
	}
}
