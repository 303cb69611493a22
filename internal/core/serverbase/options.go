// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"github.com/charmbracelet/log"
)

// Option configures a Base instance.
type Option func(*Base)

// WithErrorChannel sets the buffer size of the asynchronous error channel.
// The default is 1.
func WithErrorChannel(size int) Option {
	return func(b *Base) {
		b.errCh = make(chan error, size)
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *log.Logger) Option {
	return func(b *Base) {
		if l != nil {
			b.logger = l
		}
	}
}
