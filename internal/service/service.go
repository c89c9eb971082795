// Package service реализует бизнес-логику маркетплейса: заказы, магазины и товары.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/nearbymart/internal/catalog"
	"github.com/mmeshcher/nearbymart/internal/events"
	"github.com/mmeshcher/nearbymart/internal/expiry"
	"github.com/mmeshcher/nearbymart/internal/metrics"
	"github.com/mmeshcher/nearbymart/internal/model"
	"github.com/mmeshcher/nearbymart/internal/pricing"
	"github.com/mmeshcher/nearbymart/internal/ratings"
)

// StoreRepository описывает хранилище магазинов.
type StoreRepository interface {
	CreateStore(ctx context.Context, s *model.Store) error
	GetStore(ctx context.Context, id string) (*model.Store, error)
	GetStoreByOwner(ctx context.Context, ownerID string) (*model.Store, error)
	UpdateStore(ctx context.Context, s *model.Store) error
	UpdateStoreRating(ctx context.Context, id string, rating float64, reviewCount int) error
	ListStoreIDs(ctx context.Context) ([]string, error)
}

// ProductRepository описывает хранилище товаров.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	ListActiveProducts(ctx context.Context, q model.ProductQuery) ([]model.Product, error)
	ListProductsBySeller(ctx context.Context, sellerID string) ([]model.Product, error)
}

// OrderRepository описывает хранилище заказов.
// UpdateOrder обязан атомарно сравнивать версию и возвращать model.ErrVersionConflict.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, partyID string, role model.Role) ([]model.Order, error)
	ListOverdueOrders(ctx context.Context, now time.Time, limit int) ([]model.Order, error)
	UpdateOrder(ctx context.Context, o *model.Order) error
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	StoreRepository
	ProductRepository
	OrderRepository
	Close() error
}

// RatingSource источник агрегированных рейтингов магазинов.
type RatingSource interface {
	GetStoreRating(ctx context.Context, storeID string) (*ratings.StoreRating, int, time.Duration, error)
}

// Options необязательные зависимости сервиса.
type Options struct {
	// Stores заменяет хранилище магазинов, например кешированной обёрткой.
	Stores    StoreRepository
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Ratings   RatingSource
	Expiry    *expiry.Policy
	Logger    *zap.Logger
	Now       func() time.Time
}

// Service содержит бизнес-логику маркетплейса.
type Service struct {
	repo      Repository
	stores    StoreRepository
	catalog   *catalog.Catalog
	pricing   *pricing.Engine
	expiry    expiry.Policy
	publisher events.Publisher
	metrics   *metrics.Metrics
	ratings   RatingSource
	logger    *zap.Logger
	now       func() time.Time
}

// NewService создаёт сервис поверх репозитория.
func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:      repo,
		stores:    opts.Stores,
		expiry:    expiry.Default(),
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		ratings:   opts.Ratings,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.stores == nil {
		s.stores = repo
	}
	if opts.Expiry != nil {
		s.expiry = *opts.Expiry
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.catalog = catalog.New(repo, s.stores)
	s.pricing = pricing.NewEngine(s.catalog)
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn("close publisher", zap.Error(err))
		}
	}
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, o *model.Order) {
	event := events.OrderEvent{
		Type:       eventType,
		OrderID:    o.ID,
		BuyerID:    o.BuyerID,
		SellerID:   o.SellerID,
		ProductID:  o.ProductID,
		Status:     string(o.Status),
		TotalPrice: o.TotalPrice.StringFixed(2),
		OccurredAt: s.now().UTC(),
	}
	if o.CancellationCharge.IsPositive() {
		event.CancellationCharge = o.CancellationCharge.StringFixed(2)
	}

	if err := s.publisher.PublishOrder(ctx, event); err != nil {
		s.logger.Warn("publish order event",
			zap.String("type", eventType),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}
