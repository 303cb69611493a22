// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"remotectl/internal/pause"
	"remotectl/internal/server"
	"remotectl/internal/service"
	"remotectl/pkg/store"
	"remotectl/pkg/types"
)

type (
	// Host is a running service: the shared store, its pause controller and
	// the TCP runtime exposing both.
	Host struct {
		store      *store.Store
		controller *pause.Controller
		service    *service.Service
		server     *server.Server
	}

	// LaunchOption configures Launch.
	LaunchOption func(*launchConfig)

	launchConfig struct {
		name         types.ServiceName
		server       server.Config
		noController bool
		logger       *log.Logger
	}
)

// WithName sets the service name reported to clients (default "unnamed").
func WithName(name types.ServiceName) LaunchOption {
	return func(c *launchConfig) { c.name = name }
}

// WithAddress sets the bind address (default 0.0.0.0:12345). Port 0 selects
// a free port; read it back with Host.Port.
func WithAddress(host types.HostAddress, port types.ListenPort) LaunchOption {
	return func(c *launchConfig) {
		c.server.Host = host
		c.server.Port = port
	}
}

// WithShutdownTimeout bounds Host.Stop.
func WithShutdownTimeout(d time.Duration) LaunchOption {
	return func(c *launchConfig) { c.server.ShutdownTimeout = d }
}

// WithoutController hides the pause controller from remote clients. The
// pause, resume and status operations then fail with no_controller, and
// Host.Checkpoint never blocks.
func WithoutController() LaunchOption {
	return func(c *launchConfig) { c.noController = true }
}

// WithLogger sets the parent logger; each component logs under its own prefix.
func WithLogger(l *log.Logger) LaunchOption {
	return func(c *launchConfig) { c.logger = l }
}

// Launch exposes entries on the network and returns once the listener is
// bound. Bind failures are returned as *server.BindError. The caller owns the
// returned Host and must Stop it.
func Launch(ctx context.Context, entries []store.Entry, opts ...LaunchOption) (*Host, error) {
	cfg := launchConfig{
		name:   types.DefaultServiceName,
		server: server.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.NewWithOptions(os.Stderr, log.Options{})
	}
	if err := cfg.name.OrDefault().Validate(); err != nil {
		return nil, err
	}

	h := &Host{store: store.New(entries...)}

	svcOpts := []service.Option{
		service.WithName(cfg.name),
		service.WithLogger(cfg.logger.WithPrefix("service")),
	}
	if !cfg.noController {
		h.controller = pause.New(pause.WithLogger(cfg.logger.WithPrefix("pause")))
		svcOpts = append(svcOpts, service.WithController(h.controller))
	}
	h.service = service.New(h.store, svcOpts...)
	h.server = server.New(h.service, cfg.server, server.WithLogger(cfg.logger.WithPrefix("server")))

	if err := h.server.Start(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Store returns the shared store. Local reads and writes are visible to
// remote clients immediately.
func (h *Host) Store() *store.Store { return h.store }

// Controller returns the pause controller, or nil when launched WithoutController.
func (h *Host) Controller() *pause.Controller { return h.controller }

// Service returns the request dispatcher, for attaching further transports.
func (h *Host) Service() *service.Service { return h.service }

// Address returns the bound host:port.
func (h *Host) Address() string { return h.server.Address() }

// Port returns the bound port.
func (h *Host) Port() int { return h.server.Port() }

// Sessions returns the number of connected clients.
func (h *Host) Sessions() int { return h.server.Sessions() }

// Checkpoint blocks while a remote client has the host paused and returns
// how long it blocked. Without a controller it returns immediately.
func (h *Host) Checkpoint() time.Duration {
	if h.controller == nil {
		return 0
	}
	return h.controller.Checkpoint()
}

// CheckpointContext is Checkpoint that gives up when ctx ends.
func (h *Host) CheckpointContext(ctx context.Context) (time.Duration, error) {
	if h.controller == nil {
		return 0, ctx.Err()
	}
	return h.controller.CheckpointContext(ctx)
}

// Err delivers asynchronous runtime failures.
func (h *Host) Err() <-chan error { return h.server.Err() }

// Wait blocks until the runtime stops.
func (h *Host) Wait() error { return h.server.Wait() }

// Stop closes the listener and all client connections.
func (h *Host) Stop() error { return h.server.Stop() }
