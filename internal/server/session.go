// SPDX-License-Identifier: MPL-2.0

package server

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// session is one client connection.
type session struct {
	id        string
	conn      net.Conn
	startedAt time.Time
	requests  int
}

func newSession(conn net.Conn) *session {
	return &session{
		id:        uuid.NewString(),
		conn:      conn,
		startedAt: time.Now(),
	}
}

func (s *session) Close() error { return s.conn.Close() }

func (s *session) remote() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
