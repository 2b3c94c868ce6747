package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"itemsapi/internal/domain"
	"itemsapi/internal/repository"
	"itemsapi/internal/service"
	"itemsapi/internal/service/mocks"
	"itemsapi/internal/session"
)

func sampleItem(id int64, name string) *domain.Item {
	return &domain.Item{ID: id, Name: name, CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// ListItems tests

func TestListItems_Success(t *testing.T) {
	items := []domain.Item{*sampleItem(1, "a"), *sampleItem(2, "b")}

	repo := mocks.NewMockRepository(t)
	repo.EXPECT().List(mock.Anything).Return(items, nil)
	cache := mocks.NewMockCache(t)

	svc := service.NewItemService(repo, cache)

	got, err := svc.ListItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestListItems_PoolExhaustedPropagates(t *testing.T) {
	repo := mocks.NewMockRepository(t)
	repo.EXPECT().List(mock.Anything).Return(nil, session.ErrPoolExhausted)
	cache := mocks.NewMockCache(t)

	svc := service.NewItemService(repo, cache)

	_, err := svc.ListItems(context.Background())
	assert.ErrorIs(t, err, session.ErrPoolExhausted)
}

// CreateItem tests

func TestCreateItem_Success(t *testing.T) {
	desc := "blue"
	created := sampleItem(42, "widget")
	created.Description = &desc

	repo := mocks.NewMockRepository(t)
	repo.EXPECT().Create(mock.Anything, "widget", &desc).Return(created, nil)

	cache := mocks.NewMockCache(t)
	cache.EXPECT().Set(*created).Return()

	svc := service.NewItemService(repo, cache)

	got, err := svc.CreateItem(context.Background(), &domain.CreateItemRequest{Name: "widget", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateItem_StoreErrorNotCached(t *testing.T) {
	expectedErr := errors.New("insert failed")

	repo := mocks.NewMockRepository(t)
	repo.EXPECT().Create(mock.Anything, "widget", (*string)(nil)).Return(nil, expectedErr)
	cache := mocks.NewMockCache(t)

	svc := service.NewItemService(repo, cache)

	_, err := svc.CreateItem(context.Background(), &domain.CreateItemRequest{Name: "widget"})
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
}

// GetItem tests

func TestGetItem_CacheHit(t *testing.T) {
	repo := mocks.NewMockRepository(t)

	cache := mocks.NewMockCache(t)
	cache.EXPECT().Get(int64(7)).Return(*sampleItem(7, "cached"), true)

	svc := service.NewItemService(repo, cache)

	got, err := svc.GetItem(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "cached", got.Name)
}

func TestGetItem_CacheMiss_DBFound(t *testing.T) {
	found := sampleItem(7, "stored")

	repo := mocks.NewMockRepository(t)
	repo.EXPECT().Get(mock.Anything, int64(7)).Return(found, nil)

	cache := mocks.NewMockCache(t)
	cache.EXPECT().Get(int64(7)).Return(domain.Item{}, false)
	cache.EXPECT().Set(*found).Return()

	svc := service.NewItemService(repo, cache)

	got, err := svc.GetItem(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, found, got)
}

func TestGetItem_NotFound(t *testing.T) {
	repo := mocks.NewMockRepository(t)
	repo.EXPECT().Get(mock.Anything, int64(404)).Return(nil, repository.ErrNotFound)

	cache := mocks.NewMockCache(t)
	cache.EXPECT().Get(int64(404)).Return(domain.Item{}, false)

	svc := service.NewItemService(repo, cache)

	_, err := svc.GetItem(context.Background(), 404)
	assert.ErrorIs(t, err, service.ErrItemNotFound)
}

func TestGetItem_DBError(t *testing.T) {
	expectedErr := errors.New("db error")

	repo := mocks.NewMockRepository(t)
	repo.EXPECT().Get(mock.Anything, int64(7)).Return(nil, expectedErr)

	cache := mocks.NewMockCache(t)
	cache.EXPECT().Get(int64(7)).Return(domain.Item{}, false)

	svc := service.NewItemService(repo, cache)

	_, err := svc.GetItem(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.NotErrorIs(t, err, service.ErrItemNotFound)
}
