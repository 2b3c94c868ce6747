package service

import (
	"context"
	"errors"
	"fmt"

	"itemsapi/internal/domain"
	"itemsapi/internal/repository"
)

var ErrItemNotFound = errors.New("item not found")

type ItemService struct {
	repo  Repository
	cache Cache
}

func NewItemService(repo Repository, cache Cache) *ItemService {
	return &ItemService{
		repo:  repo,
		cache: cache,
	}
}

func (s *ItemService) ListItems(ctx context.Context) ([]domain.Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (s *ItemService) CreateItem(ctx context.Context, req *domain.CreateItemRequest) (*domain.Item, error) {
	item, err := s.repo.Create(ctx, req.Name, req.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	// Items are never updated in place, so the created row is safe to cache.
	s.cache.Set(*item)
	return item, nil
}

func (s *ItemService) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	if item, ok := s.cache.Get(id); ok {
		return &item, nil
	}

	item, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	s.cache.Set(*item)
	return item, nil
}
