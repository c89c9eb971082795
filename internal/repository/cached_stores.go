package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/nearbymart/internal/model"
)

const storeKeyPrefix = "store:"

// StoreRepository описывает хранилище магазинов, поверх которого работает кеш.
type StoreRepository interface {
	CreateStore(ctx context.Context, s *model.Store) error
	GetStore(ctx context.Context, id string) (*model.Store, error)
	GetStoreByOwner(ctx context.Context, ownerID string) (*model.Store, error)
	UpdateStore(ctx context.Context, s *model.Store) error
	UpdateStoreRating(ctx context.Context, id string, rating float64, reviewCount int) error
	ListStoreIDs(ctx context.Context) ([]string, error)
}

// CachedStoreRepository кеширует магазины в Redis: поиск с координатой
// запрашивает магазин для каждого найденного товара.
type CachedStoreRepository struct {
	primary     StoreRepository
	redisClient *redis.Client
	ttl         time.Duration
}

// NewCachedStoreRepository оборачивает хранилище магазинов кешем с указанным временем жизни.
func NewCachedStoreRepository(primary StoreRepository, redisClient *redis.Client, ttl time.Duration) *CachedStoreRepository {
	return &CachedStoreRepository{
		primary:     primary,
		redisClient: redisClient,
		ttl:         ttl,
	}
}

// GetStore читает магазин из кеша, при промахе обращается к основному хранилищу.
// Недоступность Redis не делает чтение неуспешным.
func (r *CachedStoreRepository) GetStore(ctx context.Context, id string) (*model.Store, error) {
	key := storeKeyPrefix + id

	cached, err := r.redisClient.Get(ctx, key).Bytes()
	if err == nil {
		var s model.Store
		if err := json.Unmarshal(cached, &s); err == nil {
			return &s, nil
		}
	}

	s, err := r.primary.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(s); err == nil {
		r.redisClient.Set(ctx, key, data, r.ttl)
	}

	return s, nil
}

func (r *CachedStoreRepository) CreateStore(ctx context.Context, s *model.Store) error {
	return r.primary.CreateStore(ctx, s)
}

func (r *CachedStoreRepository) GetStoreByOwner(ctx context.Context, ownerID string) (*model.Store, error) {
	return r.primary.GetStoreByOwner(ctx, ownerID)
}

func (r *CachedStoreRepository) UpdateStore(ctx context.Context, s *model.Store) error {
	defer r.invalidate(ctx, s.ID)
	return r.primary.UpdateStore(ctx, s)
}

func (r *CachedStoreRepository) UpdateStoreRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	defer r.invalidate(ctx, id)
	return r.primary.UpdateStoreRating(ctx, id, rating, reviewCount)
}

func (r *CachedStoreRepository) ListStoreIDs(ctx context.Context) ([]string, error) {
	return r.primary.ListStoreIDs(ctx)
}

func (r *CachedStoreRepository) invalidate(ctx context.Context, id string) {
	r.redisClient.Del(ctx, storeKeyPrefix+id)
}
