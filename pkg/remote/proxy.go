// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"strconv"
	"sync"
	"time"

	"remotectl/internal/protocol"
	"remotectl/pkg/store"
	"remotectl/pkg/types"
)

// DefaultDialTimeout bounds Connect when the context has no deadline.
const DefaultDialTimeout = 10 * time.Second

// aLongTimeAgo is a deadline that makes blocked reads and writes return at once.
var aLongTimeAgo = time.Unix(1, 0)

type (
	// Proxy is a client of one remote host over a single persistent
	// connection. Calls are synchronous and serialised; a Proxy is safe for
	// concurrent use, but concurrent calls wait for each other.
	//
	// After a transport failure the Proxy is broken: every further call
	// fails with a TransportError wrapping ErrClosed. Reconnect by calling
	// Connect again.
	Proxy struct {
		addr string

		mu     sync.Mutex
		conn   net.Conn
		codec  *protocol.Codec
		nextID uint64
		broken error
	}

	// Status is the remote pause controller state.
	Status struct {
		Paused  bool
		Waiting int
	}

	// Info describes the remote service.
	Info struct {
		Name          types.ServiceName
		Version       int
		Operations    []protocol.Operation
		HasController bool
	}

	// Option configures Connect.
	Option func(*dialOptions)

	dialOptions struct {
		timeout time.Duration
	}
)

// WithDialTimeout bounds connection establishment. It has no effect on later
// calls, which are bounded only by their own contexts.
func WithDialTimeout(d time.Duration) Option {
	return func(o *dialOptions) { o.timeout = d }
}

// Connect opens a connection to the host at host:port.
func Connect(ctx context.Context, host string, port int, opts ...Option) (*Proxy, error) {
	return Dial(ctx, net.JoinHostPort(host, strconv.Itoa(port)), opts...)
}

// Dial opens a connection to addr ("host:port").
func Dial(ctx context.Context, addr string, opts ...Option) (*Proxy, error) {
	o := dialOptions{timeout: DefaultDialTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	d := net.Dialer{Timeout: o.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Addr: addr, Err: err}
	}

	return &Proxy{
		addr:  addr,
		conn:  conn,
		codec: protocol.NewCodec(conn),
	}, nil
}

// Addr returns the remote address.
func (p *Proxy) Addr() string { return p.addr }

// Close closes the connection. Further calls fail with ErrClosed.
func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.broken != nil {
		// fail already closed the connection.
		p.broken = ErrClosed
		return nil
	}
	p.broken = ErrClosed
	return p.conn.Close()
}

// call performs one request/response exchange. ctx cancellation interrupts a
// blocked exchange and breaks the Proxy, because the stream position is no
// longer known.
func (p *Proxy) call(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	op := req.Op.String()
	if p.broken != nil {
		return protocol.Response{}, &TransportError{Op: op, Addr: p.addr, Err: p.closedErr()}
	}
	if err := ctx.Err(); err != nil {
		return protocol.Response{}, &TransportError{Op: op, Addr: p.addr, Err: err}
	}

	// Clear any interrupt left by a previous call; ctx alone bounds this one.
	if err := p.conn.SetDeadline(time.Time{}); err != nil {
		return protocol.Response{}, p.fail(op, err)
	}

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = p.conn.SetDeadline(aLongTimeAgo)
		close(interrupted)
	})
	defer func() {
		if !stop() {
			<-interrupted
		}
	}()

	p.nextID++
	req.ID = p.nextID

	if err := p.codec.WriteRequest(req); err != nil {
		if errors.Is(err, protocol.ErrEncode) {
			// Nothing reached the wire; the connection is still in sync.
			return protocol.Response{}, fmt.Errorf("%s: %w", op, err)
		}
		return protocol.Response{}, p.fail(op, contextCause(ctx, err))
	}
	resp, err := p.codec.ReadResponse()
	if err != nil {
		return protocol.Response{}, p.fail(op, contextCause(ctx, err))
	}
	if resp.ID != req.ID {
		return protocol.Response{}, p.fail(op, fmt.Errorf("response id %d does not match request id %d", resp.ID, req.ID))
	}
	if resp.Error != nil {
		return resp, &RemoteError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	return resp, nil
}

// fail marks the Proxy broken and closes the connection. Callers hold p.mu.
func (p *Proxy) fail(op string, err error) error {
	p.broken = err
	_ = p.conn.Close()
	return &TransportError{Op: op, Addr: p.addr, Err: err}
}

func (p *Proxy) closedErr() error {
	if errors.Is(p.broken, ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("%w after earlier failure: %w", ErrClosed, p.broken)
}

// contextCause prefers the context error when the I/O error was caused by
// the interrupt deadline.
func contextCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Get returns the value stored under key. A missing key fails with a
// *RemoteError for which errors.Is(err, store.ErrKeyNotFound) holds.
func (p *Proxy) Get(ctx context.Context, key string) (store.Value, error) {
	resp, err := p.call(ctx, protocol.Request{Op: protocol.OpGet, Key: key})
	if err != nil {
		return store.Value{}, err
	}
	if resp.Value == nil {
		return store.Null(), nil
	}
	return *resp.Value, nil
}

// Set stores v under key.
func (p *Proxy) Set(ctx context.Context, key string, v store.Value) error {
	_, err := p.call(ctx, protocol.Request{Op: protocol.OpSet, Key: key, Value: &v})
	return err
}

// SetAny converts x with store.FromAny and stores it under key.
func (p *Proxy) SetAny(ctx context.Context, key string, x any) error {
	v, err := store.FromAny(x)
	if err != nil {
		return err
	}
	return p.Set(ctx, key, v)
}

// Len returns the number of remote entries.
func (p *Proxy) Len(ctx context.Context) (int, error) {
	resp, err := p.call(ctx, protocol.Request{Op: protocol.OpLen})
	if err != nil {
		return 0, err
	}
	if resp.Length == nil {
		return 0, nil
	}
	return *resp.Length, nil
}

// Keys returns a snapshot of the remote keys in insertion order.
func (p *Proxy) Keys(ctx context.Context) ([]string, error) {
	resp, err := p.call(ctx, protocol.Request{Op: protocol.OpKeys})
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

// Values returns a snapshot of the remote values in key order.
func (p *Proxy) Values(ctx context.Context) ([]store.Value, error) {
	resp, err := p.call(ctx, protocol.Request{Op: protocol.OpValues})
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Items returns the remote entries in key order, taken from a single
// snapshot on the host.
func (p *Proxy) Items(ctx context.Context) ([]store.Entry, error) {
	resp, err := p.call(ctx, protocol.Request{Op: protocol.OpItems})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// All returns an iterator over an Items snapshot.
func (p *Proxy) All(ctx context.Context) (iter.Seq2[string, store.Value], error) {
	items, err := p.Items(ctx)
	if err != nil {
		return nil, err
	}
	return func(yield func(string, store.Value) bool) {
		for _, e := range items {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}, nil
}

// Float returns the number stored under key.
func (p *Proxy) Float(ctx context.Context, key string) (float64, error) {
	v, err := p.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, ok := v.AsNumber()
	if !ok {
		return 0, &TypeMismatchError{Key: key, Want: store.KindNumber, Got: v.Kind()}
	}
	return n, nil
}

// String returns the string stored under key.
func (p *Proxy) String(ctx context.Context, key string) (string, error) {
	v, err := p.Get(ctx, key)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", &TypeMismatchError{Key: key, Want: store.KindString, Got: v.Kind()}
	}
	return s, nil
}

// Bool returns the boolean stored under key.
func (p *Proxy) Bool(ctx context.Context, key string) (bool, error) {
	v, err := p.Get(ctx, key)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, &TypeMismatchError{Key: key, Want: store.KindBool, Got: v.Kind()}
	}
	return b, nil
}

// Pause asks the host loop to suspend at its next checkpoint.
func (p *Proxy) Pause(ctx context.Context) error {
	_, err := p.call(ctx, protocol.Request{Op: protocol.OpPause})
	return err
}

// Resume releases a paused host loop.
func (p *Proxy) Resume(ctx context.Context) error {
	_, err := p.call(ctx, protocol.Request{Op: protocol.OpResume})
	return err
}

// Status reports the remote controller state.
func (p *Proxy) Status(ctx context.Context) (Status, error) {
	resp, err := p.call(ctx, protocol.Request{Op: protocol.OpStatus})
	if err != nil {
		return Status{}, err
	}
	if resp.Status == nil {
		return Status{}, nil
	}
	return Status{Paused: resp.Status.Paused, Waiting: resp.Status.Waiting}, nil
}

// Info describes the remote service.
func (p *Proxy) Info(ctx context.Context) (Info, error) {
	resp, err := p.call(ctx, protocol.Request{Op: protocol.OpInfo})
	if err != nil {
		return Info{}, err
	}
	if resp.Info == nil {
		return Info{}, nil
	}
	return Info{
		Name:          types.ServiceName(resp.Info.Name),
		Version:       resp.Info.Version,
		Operations:    resp.Info.Operations,
		HasController: resp.Info.HasController,
	}, nil
}
