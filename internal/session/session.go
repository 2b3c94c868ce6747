package session

import (
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// Session is a leased connection owned by one request until released.
type Session struct {
	res      *puddle.Resource[*pooledConn]
	pool     *puddle.Pool[*pooledConn]
	baseSize int32
	released atomic.Bool
}

// Conn returns the underlying connection. It must not be used after release.
func (s *Session) Conn() Conn {
	return s.res.Value().conn
}
