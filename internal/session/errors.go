package session

import (
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrConfiguration    = errors.New("invalid session provider configuration")
	ErrPoolExhausted    = errors.New("connection pool exhausted")
	ErrConnectionBroken = errors.New("database connection broken")
	ErrClosed           = errors.New("session provider closed")
)

// IsConnectionError reports whether err means the connection itself failed,
// as opposed to a statement error reported by a healthy server.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionBroken) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception. 57P01-57P03: server shutting down.
		return len(pgErr.Code) == 5 && (pgErr.Code[:2] == "08" || pgErr.Code[:4] == "57P0")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}
