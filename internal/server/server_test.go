// SPDX-License-Identifier: MPL-2.0

package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"remotectl/internal/core/serverbase"
	"remotectl/internal/pause"
	"remotectl/internal/protocol"
	"remotectl/internal/service"
	"remotectl/internal/testutil"
	"remotectl/pkg/store"
	"remotectl/pkg/types"
)

func testConfig() Config {
	return Config{Host: "127.0.0.1", Port: 0, ShutdownTimeout: 2 * time.Second}
}

func startTestServer(t *testing.T) (*Server, *service.Service) {
	t.Helper()

	st := store.New(store.Entry{Key: "learning_rate", Value: store.Number(0.1)})
	svc := service.New(st,
		service.WithController(pause.New(pause.WithOutput(io.Discard))),
		service.WithOutput(io.Discard),
	)
	srv := New(svc, testConfig(), WithLogger(log.New(io.Discard)))
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(testutil.DeferStop(t, srv))
	return srv, svc
}

func dial(t *testing.T, srv *Server) (net.Conn, *protocol.Codec) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", srv.Address(), time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", srv.Address(), err)
	}
	t.Cleanup(testutil.DeferClose(t, conn))
	return conn, protocol.NewCodec(conn)
}

func roundTrip(t *testing.T, c *protocol.Codec, req protocol.Request) protocol.Response {
	t.Helper()

	if err := c.WriteRequest(req); err != nil {
		t.Fatalf("WriteRequest() error = %v", err)
	}
	resp, err := c.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse() error = %v", err)
	}
	if resp.ID != req.ID {
		t.Fatalf("response ID = %d, want %d", resp.ID, req.ID)
	}
	return resp
}

func TestServerStartAndServe(t *testing.T) {
	t.Parallel()

	srv, _ := startTestServer(t)
	if srv.State() != serverbase.StateRunning {
		t.Fatalf("State() = %s, want running", srv.State())
	}
	if srv.Port() == 0 {
		t.Fatal("Port() = 0 after Start")
	}

	_, c := dial(t, srv)
	resp := roundTrip(t, c, protocol.Request{ID: 1, Op: protocol.OpGet, Key: "learning_rate"})
	if resp.Error != nil || resp.Value == nil || !resp.Value.Equal(store.Number(0.1)) {
		t.Fatalf("get learning_rate = %+v", resp)
	}

	v := store.Number(0.05)
	roundTrip(t, c, protocol.Request{ID: 2, Op: protocol.OpSet, Key: "learning_rate", Value: &v})

	resp = roundTrip(t, c, protocol.Request{ID: 3, Op: protocol.OpGet, Key: "learning_rate"})
	if resp.Value == nil || !resp.Value.Equal(store.Number(0.05)) {
		t.Errorf("get after set = %+v", resp.Value)
	}
}

func TestServerBindFailure(t *testing.T) {
	t.Parallel()

	first, _ := startTestServer(t)

	cfg := testConfig()
	cfg.Port = types.ListenPort(first.Port())
	second := New(HandlerFunc(func(context.Context, protocol.Request) protocol.Response {
		return protocol.Response{}
	}), cfg, WithLogger(log.New(io.Discard)))

	err := second.Start(context.Background())
	if !errors.Is(err, ErrBind) {
		t.Fatalf("Start() on used port error = %v, want ErrBind", err)
	}
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("errors.As(*BindError) failed for %T", err)
	}
	if !strings.HasSuffix(bindErr.Addr, fmt.Sprintf(":%d", first.Port())) {
		t.Errorf("BindError.Addr = %q", bindErr.Addr)
	}
	if second.State() != serverbase.StateFailed {
		t.Errorf("State() = %s, want failed", second.State())
	}
	if err := second.Wait(); !errors.Is(err, ErrBind) {
		t.Errorf("Wait() error = %v, want ErrBind", err)
	}
	if err := second.Stop(); err != nil {
		t.Errorf("Stop() after failed start error = %v", err)
	}
}

func TestServerInvalidAddress(t *testing.T) {
	t.Parallel()

	srv := New(HandlerFunc(func(context.Context, protocol.Request) protocol.Response {
		return protocol.Response{}
	}), Config{Host: "127.0.0.1", Port: 99999}, WithLogger(log.New(io.Discard)))

	err := srv.Start(context.Background())
	if !errors.Is(err, ErrBind) || !errors.Is(err, types.ErrInvalidListenPort) {
		t.Errorf("Start() error = %v, want ErrBind wrapping ErrInvalidListenPort", err)
	}
}

func TestServerConcurrentClients(t *testing.T) {
	t.Parallel()

	srv, svc := startTestServer(t)

	const clients = 8
	const writes = 25

	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := range clients {
		wg.Go(func() {
			conn, err := net.DialTimeout("tcp", srv.Address(), time.Second)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			c := protocol.NewCodec(conn)

			for j := range writes {
				v := store.Number(float64(j))
				req := protocol.Request{ID: uint64(j + 1), Op: protocol.OpSet, Key: fmt.Sprintf("client-%d", i), Value: &v}
				if err := c.WriteRequest(req); err != nil {
					errs <- err
					return
				}
				resp, err := c.ReadResponse()
				if err != nil {
					errs <- err
					return
				}
				if resp.ID != req.ID || resp.Error != nil {
					errs <- fmt.Errorf("client %d: unexpected response %+v", i, resp)
					return
				}
			}
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if got, want := svc.Store().Len(), clients+1; got != want {
		t.Errorf("store Len() = %d, want %d", got, want)
	}
}

func TestServerMalformedLine(t *testing.T) {
	t.Parallel()

	srv, _ := startTestServer(t)
	conn, c := dial(t, srv)

	if _, err := io.WriteString(conn, "{not json\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := c.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse() error = %v", err)
	}
	if resp.Error == nil || resp.Error.Code != protocol.CodeBadRequest {
		t.Fatalf("response to malformed line = %+v, want bad_request", resp)
	}

	// The connection stays usable.
	resp = roundTrip(t, c, protocol.Request{ID: 2, Op: protocol.OpLen})
	if resp.Length == nil || *resp.Length != 1 {
		t.Errorf("len after malformed line = %+v", resp)
	}
}

func TestServerStopClosesConnections(t *testing.T) {
	t.Parallel()

	srv, _ := startTestServer(t)
	conn, c := dial(t, srv)
	roundTrip(t, c, protocol.Request{ID: 1, Op: protocol.OpLen})

	deadline := time.Now().Add(time.Second)
	for srv.Sessions() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := srv.Sessions(); got != 1 {
		t.Fatalf("Sessions() = %d, want 1", got)
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if srv.State() != serverbase.StateStopped {
		t.Errorf("State() = %s, want stopped", srv.State())
	}
	if err := srv.Wait(); err != nil {
		t.Errorf("Wait() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := bufio.NewReader(conn).ReadByte(); err == nil {
		t.Error("client connection still readable after Stop")
	}

	if _, err := net.DialTimeout("tcp", srv.Address(), 200*time.Millisecond); err == nil {
		t.Error("dial succeeded after Stop")
	}
}

func TestServerStopBeforeStart(t *testing.T) {
	t.Parallel()

	srv := New(HandlerFunc(func(context.Context, protocol.Request) protocol.Response {
		return protocol.Response{}
	}), testConfig(), WithLogger(log.New(io.Discard)))

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if srv.State() != serverbase.StateStopped {
		t.Errorf("State() = %s, want stopped", srv.State())
	}
	if srv.Address() != "" || srv.Port() != 0 {
		t.Errorf("Address() = %q, Port() = %d before start", srv.Address(), srv.Port())
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("Start() after Stop succeeded, want error")
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Host != "0.0.0.0" || cfg.Port != 12345 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.Address() != "0.0.0.0:12345" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	filled := Config{Port: 0}.withDefaults()
	if filled.Host != "0.0.0.0" || filled.Port != 0 || filled.StartupTimeout != DefaultStartupTimeout {
		t.Errorf("withDefaults() = %+v", filled)
	}

	err := Config{Host: " ", Port: -1}.Validate()
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, types.ErrInvalidHostAddress) || !errors.Is(err, types.ErrInvalidListenPort) {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestServerNonFiniteValues(t *testing.T) {
	t.Parallel()

	st := store.New(
		store.Entry{Key: "limit", Value: store.Number(math.Inf(1))},
		store.Entry{Key: "loss", Value: store.Number(math.NaN())},
	)
	srv := New(service.New(st, service.WithOutput(io.Discard)), testConfig(), WithLogger(log.New(io.Discard)))
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(testutil.DeferStop(t, srv))
	_, c := dial(t, srv)

	resp := roundTrip(t, c, protocol.Request{ID: 1, Op: protocol.OpGet, Key: "limit"})
	if resp.Error != nil || resp.Value == nil {
		t.Fatalf("get limit = %+v", resp)
	}
	if n, _ := resp.Value.AsNumber(); !math.IsInf(n, 1) {
		t.Fatalf("get limit = %v, want +Inf", resp.Value)
	}

	resp = roundTrip(t, c, protocol.Request{ID: 2, Op: protocol.OpValues})
	if resp.Error != nil || len(resp.Values) != 2 {
		t.Fatalf("values = %+v", resp)
	}
	if n, _ := resp.Values[1].AsNumber(); !math.IsNaN(n) {
		t.Errorf("values[1] = %v, want NaN", resp.Values[1])
	}

	resp = roundTrip(t, c, protocol.Request{ID: 3, Op: protocol.OpLen})
	if resp.Error != nil || resp.Length == nil || *resp.Length != 2 {
		t.Errorf("len after non-finite values = %+v", resp)
	}
}
