package session

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the part of *pgx.Conn the provider and its callers rely on.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	IsClosed() bool
}

// Connector opens a new physical connection.
type Connector func(ctx context.Context) (Conn, error)

func PgxConnector(connString string) (Connector, error) {
	connConfig, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (Conn, error) {
		conn, err := pgx.ConnectConfig(ctx, connConfig.Copy())
		if err != nil {
			return nil, err
		}
		return conn, nil
	}, nil
}
