// Package catalog реализует поиск товаров с фильтрацией по расстоянию до магазина.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/mmeshcher/nearbymart/internal/geo"
	"github.com/mmeshcher/nearbymart/internal/model"
)

// DefaultRadiusKm радиус поиска, если он не задан.
const DefaultRadiusKm = 2.0

// ProductSource описывает хранилище товаров, используемое каталогом.
type ProductSource interface {
	ListActiveProducts(ctx context.Context, q model.ProductQuery) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

// StoreLookup описывает получение магазина по идентификатору.
type StoreLookup interface {
	GetStore(ctx context.Context, id string) (*model.Store, error)
}

// Filter параметры поиска. Все поля необязательны.
type Filter struct {
	Origin          *model.Coordinate
	RadiusKm        float64
	Categories      []string
	SearchTerm      string
	ExcludeSellerID string
	SellerID        string
}

// StoreSummary сведения о магазине, присоединяемые к результату поиска.
type StoreSummary struct {
	ID          string
	Name        string
	Rating      float64
	ReviewCount int
}

// ProductWithDistance элемент результата поиска.
// DistanceKm и Store заполняются только при поиске от точки.
type ProductWithDistance struct {
	model.Product
	DistanceKm *float64
	Store      *StoreSummary
}

// Catalog выполняет поиск товаров.
type Catalog struct {
	products ProductSource
	stores   StoreLookup
}

// New создаёт каталог поверх хранилищ товаров и магазинов.
func New(products ProductSource, stores StoreLookup) *Catalog {
	return &Catalog{
		products: products,
		stores:   stores,
	}
}

// Product возвращает товар по идентификатору.
func (c *Catalog) Product(ctx context.Context, id string) (*model.Product, error) {
	p, err := c.products.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// Search возвращает активные товары, удовлетворяющие фильтру.
//
// Фильтр по расстоянию применяется до фильтра по категориям, чтобы радиус
// считался по всем активным товарам. Пустой результат не является ошибкой.
func (c *Catalog) Search(ctx context.Context, f Filter) ([]ProductWithDistance, error) {
	products, err := c.products.ListActiveProducts(ctx, model.ProductQuery{
		SearchTerm:      f.SearchTerm,
		ExcludeSellerID: f.ExcludeSellerID,
		SellerID:        f.SellerID,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	res := make([]ProductWithDistance, 0, len(products))
	for _, p := range products {
		if !p.Active || !matchesTerm(&p, f.SearchTerm) {
			continue
		}
		if f.ExcludeSellerID != "" && p.SellerID == f.ExcludeSellerID {
			continue
		}
		if f.SellerID != "" && p.SellerID != f.SellerID {
			continue
		}
		res = append(res, ProductWithDistance{Product: p})
	}

	if f.Origin != nil {
		res, err = c.withinRadius(ctx, res, *f.Origin, radius(f.RadiusKm))
		if err != nil {
			return nil, err
		}
	}

	if len(f.Categories) > 0 {
		res = slices.DeleteFunc(res, func(p ProductWithDistance) bool {
			return !slices.Contains(f.Categories, p.Category)
		})
	}

	return res, nil
}

func (c *Catalog) withinRadius(ctx context.Context, items []ProductWithDistance, origin model.Coordinate, radiusKm float64) ([]ProductWithDistance, error) {
	stores := make(map[string]*model.Store)
	exact := make(map[string]float64, len(items))

	res := items[:0]
	for _, item := range items {
		store, ok := stores[item.StoreID]
		if !ok {
			s, err := c.stores.GetStore(ctx, item.StoreID)
			if err != nil && !errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("get store %s: %w", item.StoreID, err)
			}
			store = s
			stores[item.StoreID] = s
		}
		if store == nil || store.Location == nil {
			continue
		}

		d := geo.Distance(origin, *store.Location)
		if d > radiusKm {
			continue
		}

		rounded := geo.Round2(d)
		item.DistanceKm = &rounded
		item.Store = &StoreSummary{
			ID:          store.ID,
			Name:        store.Name,
			Rating:      store.Rating,
			ReviewCount: store.ReviewCount,
		}
		exact[item.ID] = d
		res = append(res, item)
	}

	sort.SliceStable(res, func(i, j int) bool {
		return exact[res[i].ID] < exact[res[j].ID]
	})

	return res, nil
}

func matchesTerm(p *model.Product, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

func radius(km float64) float64 {
	if km <= 0 {
		return DefaultRadiusKm
	}
	return km
}
