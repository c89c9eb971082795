package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/nearbymart/internal/catalog"
	"github.com/mmeshcher/nearbymart/internal/model"
	"github.com/mmeshcher/nearbymart/internal/validation"
)

// StoreInput параметры создания магазина.
type StoreInput struct {
	Name       string
	Address    string
	Location   *model.Coordinate
	Categories []string
}

// StoreUpdate изменяемые поля магазина; nil означает «не менять».
type StoreUpdate struct {
	Address    *string
	Location   *model.Coordinate
	Categories []string
}

// ProductInput параметры товара.
type ProductInput struct {
	Title             string
	Description       string
	Category          string
	Price             decimal.Decimal
	MinQuantity       int
	MaxQuantity       *int
	PickupAvailable   bool
	DeliveryAvailable bool
}

// SearchProducts ищет активные товары по фильтру.
func (s *Service) SearchProducts(ctx context.Context, f catalog.Filter) ([]catalog.ProductWithDistance, error) {
	if f.Origin != nil {
		if err := validation.Coordinate(*f.Origin); err != nil {
			return nil, err
		}
	}
	if math.IsNaN(f.RadiusKm) || math.IsInf(f.RadiusKm, 0) || f.RadiusKm < 0 {
		return nil, model.Invalid("radius_km", "must be a finite non-negative number")
	}

	start := time.Now()
	res, err := s.catalog.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	s.metrics.Search(time.Since(start), len(res))
	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return s.catalog.Product(ctx, id)
}

// ListMyProducts возвращает все товары продавца, включая снятые с продажи.
func (s *Service) ListMyProducts(ctx context.Context, sellerID string) ([]model.Product, error) {
	products, err := s.repo.ListProductsBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list seller products: %w", err)
	}
	return products, nil
}

// CreateProduct размещает товар в магазине продавца.
func (s *Service) CreateProduct(ctx context.Context, sellerID string, in ProductInput) (*model.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	store, err := s.stores.GetStoreByOwner(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("seller store: %w", err)
	}

	p := &model.Product{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		StoreID:   store.ID,
		Active:    true,
		CreatedAt: s.now(),
	}
	applyProduct(p, in)

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// UpdateProduct изменяет товар продавца.
func (s *Service) UpdateProduct(ctx context.Context, sellerID, productID string, in ProductInput) (*model.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	p, err := s.ownProduct(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}
	applyProduct(p, in)

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// DeactivateProduct снимает товар с продажи. Существующие заказы не затрагиваются.
func (s *Service) DeactivateProduct(ctx context.Context, sellerID, productID string) error {
	p, err := s.ownProduct(ctx, sellerID, productID)
	if err != nil {
		return err
	}
	if !p.Active {
		return nil
	}
	p.Active = false

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	return nil
}

func (s *Service) ownProduct(ctx context.Context, sellerID, productID string) (*model.Product, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	if p.SellerID != sellerID {
		return nil, model.ErrForbidden
	}
	return p, nil
}

func validateProduct(in ProductInput) error {
	return validation.Listing(in.Title, in.Price, in.MinQuantity, in.MaxQuantity, in.PickupAvailable, in.DeliveryAvailable)
}

func applyProduct(p *model.Product, in ProductInput) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.MinQuantity = in.MinQuantity
	p.MaxQuantity = in.MaxQuantity
	p.PickupAvailable = in.PickupAvailable
	p.DeliveryAvailable = in.DeliveryAvailable
}

// CreateStore заводит магазин стороны. У стороны может быть только один магазин.
func (s *Service) CreateStore(ctx context.Context, ownerID string, in StoreInput) (*model.Store, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, model.Invalid("name", "must not be empty")
	}
	if in.Location != nil {
		if err := validation.Coordinate(*in.Location); err != nil {
			return nil, err
		}
	}

	st := &model.Store{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       strings.TrimSpace(in.Name),
		Address:    strings.TrimSpace(in.Address),
		Location:   in.Location,
		Categories: normalizeCategories(in.Categories),
		CreatedAt:  s.now(),
	}

	if err := s.stores.CreateStore(ctx, st); err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	return st, nil
}

// GetStore возвращает магазин по идентификатору.
func (s *Service) GetStore(ctx context.Context, id string) (*model.Store, error) {
	st, err := s.stores.GetStore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get store %s: %w", id, err)
	}
	return st, nil
}

// MyStore возвращает магазин стороны.
func (s *Service) MyStore(ctx context.Context, ownerID string) (*model.Store, error) {
	st, err := s.stores.GetStoreByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get own store: %w", err)
	}
	return st, nil
}

// UpdateMyStore изменяет адрес, категории и координату магазина стороны.
func (s *Service) UpdateMyStore(ctx context.Context, ownerID string, in StoreUpdate) (*model.Store, error) {
	if in.Location != nil {
		if err := validation.Coordinate(*in.Location); err != nil {
			return nil, err
		}
	}

	st, err := s.MyStore(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if in.Address != nil {
		st.Address = strings.TrimSpace(*in.Address)
	}
	if in.Categories != nil {
		st.Categories = normalizeCategories(in.Categories)
	}
	if in.Location != nil {
		loc := *in.Location
		st.Location = &loc
	}

	if err := s.stores.UpdateStore(ctx, st); err != nil {
		return nil, fmt.Errorf("update store: %w", err)
	}
	return st, nil
}

// ApplyRating сохраняет агрегированный рейтинг магазина.
func (s *Service) ApplyRating(ctx context.Context, storeID string, rating float64, reviewCount int) error {
	if rating < 0 || rating > 5 {
		return model.Invalid("rating", "must be in [0,5]")
	}
	if reviewCount < 0 {
		return model.Invalid("review_count", "must not be negative")
	}

	if err := s.stores.UpdateStoreRating(ctx, storeID, rating, reviewCount); err != nil {
		return fmt.Errorf("update store rating: %w", err)
	}
	return nil
}

func normalizeCategories(in []string) []string {
	res := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c != "" && !slices.Contains(res, c) {
			res = append(res, c)
		}
	}
	return res
}
