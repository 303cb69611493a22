// SPDX-License-Identifier: MPL-2.0

package service

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"remotectl/internal/pause"
	"remotectl/internal/protocol"
	"remotectl/pkg/store"
	"remotectl/pkg/types"
)

type (
	// Controller is the remotely exposed side of a pause controller.
	Controller interface {
		Pause()
		Resume()
		Status() pause.Status
	}

	// Service answers protocol requests against a store.
	Service struct {
		store      *store.Store
		controller Controller
		name       types.ServiceName
		logger     *log.Logger
	}

	// Option configures a Service.
	Option func(*Service)
)

// WithController exposes c through the pause, resume and status operations.
// A nil *pause.Controller is treated as no controller.
func WithController(c Controller) Option {
	return func(s *Service) {
		if pc, ok := c.(*pause.Controller); ok && pc == nil {
			return
		}
		s.controller = c
	}
}

// WithName sets the service name reported by info. An empty name selects
// types.DefaultServiceName.
func WithName(name types.ServiceName) Option {
	return func(s *Service) { s.name = name.OrDefault() }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithOutput directs log output to w.
func WithOutput(w io.Writer) Option {
	return func(s *Service) { s.logger = log.NewWithOptions(w, log.Options{Prefix: "service"}) }
}

// New creates a Service backed by st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		name:  types.DefaultServiceName,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "service"})
	}
	return s
}

// Name returns the service name.
func (s *Service) Name() types.ServiceName { return s.name }

// Store returns the backing store.
func (s *Service) Store() *store.Store { return s.store }

// HasController reports whether pause, resume and status are available.
func (s *Service) HasController() bool { return s.controller != nil }

// Handle runs one request and returns its response. Failures are reported in
// Response.Error; Handle itself never fails.
func (s *Service) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	resp := s.dispatch(ctx, req)
	resp.ID = req.ID
	if resp.Error != nil {
		s.logger.Debug("request failed", "op", req.Op, "key", req.Key, "code", resp.Error.Code)
	} else {
		s.logger.Debug("request served", "op", req.Op, "key", req.Key)
	}
	return resp
}

func (s *Service) dispatch(ctx context.Context, req protocol.Request) protocol.Response {
	if err := ctx.Err(); err != nil {
		return failure(protocol.Errorf(protocol.CodeInternal, "request abandoned: %v", err))
	}
	if err := req.Op.Validate(); err != nil {
		return failure(protocol.Errorf(protocol.CodeUnknownOperation, "%v", err))
	}
	if req.Op.NeedsKey() && req.Key == "" {
		return failure(protocol.Errorf(protocol.CodeBadRequest, "%s requires a non-empty key", req.Op))
	}

	switch req.Op {
	case protocol.OpGet:
		v, err := s.store.Get(req.Key)
		if err != nil {
			return failure(errorBody(err))
		}
		return protocol.Response{Value: &v}

	case protocol.OpSet:
		if req.Value == nil {
			return failure(protocol.Errorf(protocol.CodeBadRequest, "set %q requires a value", req.Key))
		}
		s.store.Set(req.Key, *req.Value)
		return protocol.Response{}

	case protocol.OpLen:
		n := s.store.Len()
		return protocol.Response{Length: &n}

	case protocol.OpKeys:
		return protocol.Response{Keys: s.store.Keys()}

	case protocol.OpValues:
		return protocol.Response{Values: s.store.Values()}

	case protocol.OpItems:
		return protocol.Response{Items: s.store.Items()}

	case protocol.OpPause, protocol.OpResume, protocol.OpStatus:
		return s.control(req.Op)

	case protocol.OpInfo:
		return protocol.Response{Info: s.info()}
	}

	return failure(protocol.Errorf(protocol.CodeInternal, "operation %s has no handler", req.Op))
}

func (s *Service) control(op protocol.Operation) protocol.Response {
	if s.controller == nil {
		return failure(protocol.Errorf(protocol.CodeNoController, "service %s exposes no controller", s.name))
	}

	switch op {
	case protocol.OpPause:
		s.controller.Pause()
	case protocol.OpResume:
		s.controller.Resume()
	}

	st := s.controller.Status()
	return protocol.Response{Status: &protocol.StatusResult{
		Paused:  st.State == pause.StatePaused,
		Waiting: st.Waiting,
	}}
}

func (s *Service) info() *protocol.InfoResult {
	return &protocol.InfoResult{
		Name:          s.name.String(),
		Version:       protocol.Version,
		Operations:    protocol.Operations(),
		HasController: s.controller != nil,
	}
}

func failure(e *protocol.Error) protocol.Response {
	return protocol.Response{Error: e}
}

// errorBody maps a store error onto its wire code.
func errorBody(err error) *protocol.Error {
	if errors.Is(err, store.ErrKeyNotFound) {
		return &protocol.Error{Code: protocol.CodeKeyNotFound, Message: err.Error()}
	}
	return &protocol.Error{Code: protocol.CodeInternal, Message: err.Error()}
}
