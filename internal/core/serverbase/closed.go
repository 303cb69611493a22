// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"errors"
	"io"
	"net"
	"strings"
)

// IsClosedConnError reports whether err is the expected result of closing a
// listener or connection during shutdown.
func IsClosedConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
