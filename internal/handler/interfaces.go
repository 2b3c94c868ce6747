package handler

//go:generate go tool mockery

import (
	"context"
	"io"

	"itemsapi/internal/domain"
	"itemsapi/internal/session"
)

type ItemService interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	CreateItem(ctx context.Context, req *domain.CreateItemRequest) (*domain.Item, error)
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
}

type ItemValidator interface {
	ValidateCreate(req *domain.CreateItemRequest) error
}

type PoolStatser interface {
	Stats() session.Stats
}

type Exposer interface {
	ContentType() string
	Expose(w io.Writer) error
}
