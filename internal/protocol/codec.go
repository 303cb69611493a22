// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// MaxMessageSize bounds a single encoded message, newline excluded.
const MaxMessageSize = 4 << 20

var (
	// ErrMessageTooLarge is returned when an incoming line exceeds MaxMessageSize.
	// The stream cannot be resynchronised afterwards and must be closed.
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
	// ErrMalformedMessage is the sentinel error wrapped by MalformedMessageError.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrEncode is returned when a message cannot be encoded. Nothing was
	// written, so the stream stays usable.
	ErrEncode = errors.New("encode message")
)

// MalformedMessageError is returned when a line is not valid JSON for the
// expected message. The stream stays usable: the next line is a new message.
type MalformedMessageError struct {
	Err error
}

// Error implements the error interface.
func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %v", e.Err)
}

// Unwrap returns ErrMalformedMessage and the decoding error.
func (e *MalformedMessageError) Unwrap() []error { return []error{ErrMalformedMessage, e.Err} }

// Codec reads and writes newline-delimited JSON messages on a stream.
// Reads and writes may happen on different goroutines; concurrent writers
// are serialised.
type Codec struct {
	scanner *bufio.Scanner

	wmu sync.Mutex
	w   *bufio.Writer
}

// NewCodec wraps rw.
func NewCodec(rw io.ReadWriter) *Codec {
	scanner := bufio.NewScanner(rw)
	scanner.Buffer(make([]byte, 0, 4096), MaxMessageSize)
	return &Codec{
		scanner: scanner,
		w:       bufio.NewWriter(rw),
	}
}

// ReadRequest reads the next Request. It returns io.EOF when the peer closed
// the stream cleanly.
func (c *Codec) ReadRequest() (Request, error) {
	var req Request
	err := c.read(&req)
	return req, err
}

// ReadResponse reads the next Response.
func (c *Codec) ReadResponse() (Response, error) {
	var resp Response
	err := c.read(&resp)
	return resp, err
}

// WriteRequest encodes and flushes req.
func (c *Codec) WriteRequest(req Request) error { return c.write(req) }

// WriteResponse encodes and flushes resp.
func (c *Codec) WriteResponse(resp Response) error { return c.write(resp) }

func (c *Codec) read(v any) error {
	if !c.scanner.Scan() {
		err := c.scanner.Err()
		switch {
		case err == nil:
			return io.EOF
		case errors.Is(err, bufio.ErrTooLong):
			return ErrMessageTooLarge
		default:
			return err
		}
	}
	if err := json.Unmarshal(c.scanner.Bytes(), v); err != nil {
		return &MalformedMessageError{Err: err}
	}
	return nil
}

func (c *Codec) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if _, err := c.w.Write(data); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}
