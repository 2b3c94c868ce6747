package service

//go:generate go tool mockery

import (
	"context"

	"itemsapi/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Item, error)
	Get(ctx context.Context, id int64) (*domain.Item, error)
	Create(ctx context.Context, name string, description *string) (*domain.Item, error)
}

type Cache interface {
	Get(id int64) (domain.Item, bool)
	Set(item domain.Item)
}
