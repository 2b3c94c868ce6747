package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"itemsapi/internal/domain"
	"itemsapi/internal/session"
)

var (
	ErrNotFound       = errors.New("item not found")
	ErrStoreOperation = errors.New("store operation failed")
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS items (
	id          BIGSERIAL PRIMARY KEY,
	name        VARCHAR(100) NOT NULL,
	description VARCHAR(500),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ
)`
	createIndexSQL = `CREATE INDEX IF NOT EXISTS ix_items_name ON items (name)`

	itemColumns = `id, name, description, created_at, updated_at`
)

type Sessions interface {
	WithSession(ctx context.Context, fn func(ctx context.Context, s *session.Session) error) error
}

type ItemRepository struct {
	sessions Sessions
}

func NewItemRepository(sessions Sessions) *ItemRepository {
	return &ItemRepository{sessions: sessions}
}

// EnsureSchema creates the items table and its index when missing.
func (r *ItemRepository) EnsureSchema(ctx context.Context) error {
	err := r.sessions.WithSession(ctx, func(ctx context.Context, s *session.Session) error {
		for _, stmt := range []string{createTableSQL, createIndexSQL} {
			if _, err := s.Conn().Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	return translate("ensure schema", err)
}

func (r *ItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	err := r.sessions.WithSession(ctx, func(ctx context.Context, s *session.Session) error {
		rows, err := s.Conn().Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
		if err != nil {
			return err
		}
		items, err = pgx.CollectRows(rows, pgx.RowToStructByName[domain.Item])
		return err
	})
	if err != nil {
		return nil, translate("list items", err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	return items, nil
}

func (r *ItemRepository) Get(ctx context.Context, id int64) (*domain.Item, error) {
	var item domain.Item
	err := r.sessions.WithSession(ctx, func(ctx context.Context, s *session.Session) error {
		rows, err := s.Conn().Query(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
		if err != nil {
			return err
		}
		item, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[domain.Item])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translate("get item", err)
	}
	return &item, nil
}

// Create inserts the item in its own transaction. Nothing is written unless
// the commit succeeds.
func (r *ItemRepository) Create(ctx context.Context, name string, description *string) (*domain.Item, error) {
	var item domain.Item
	err := r.sessions.WithSession(ctx, func(ctx context.Context, s *session.Session) error {
		return pgx.BeginFunc(ctx, s.Conn(), func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx,
				`INSERT INTO items (name, description) VALUES ($1, $2) RETURNING `+itemColumns,
				name, description,
			)
			if err != nil {
				return err
			}
			item, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[domain.Item])
			return err
		})
	})
	if err != nil {
		return nil, translate("create item", err)
	}
	return &item, nil
}

// translate keeps session errors recognizable and marks everything else as a
// store failure.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrPoolExhausted),
		errors.Is(err, session.ErrConnectionBroken),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	case session.IsConnectionError(err):
		return fmt.Errorf("%s: %w: %w", op, session.ErrConnectionBroken, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreOperation, err)
	}
}
