package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmeshcher/nearbymart/internal/model"
)

// MemoryRepository хранит данные в памяти процесса.
// Используется в тестах и при запуске без DATABASE_URI.
type MemoryRepository struct {
	mu       sync.RWMutex
	stores   map[string]model.Store
	owners   map[string]string
	products map[string]model.Product
	orders   map[string]model.Order

	storeOrder   []string
	productOrder []string
	orderOrder   []string
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stores:   make(map[string]model.Store),
		owners:   make(map[string]string),
		products: make(map[string]model.Product),
		orders:   make(map[string]model.Order),
	}
}

// Close ничего не делает.
func (m *MemoryRepository) Close() error { return nil }

func (m *MemoryRepository) CreateStore(ctx context.Context, s *model.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.owners[s.OwnerID]; ok {
		return fmt.Errorf("%w: owner %s", model.ErrStoreExists, s.OwnerID)
	}
	m.stores[s.ID] = cloneStore(*s)
	m.owners[s.OwnerID] = s.ID
	m.storeOrder = append(m.storeOrder, s.ID)
	return nil
}

func (m *MemoryRepository) GetStore(ctx context.Context, id string) (*model.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stores[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	res := cloneStore(s)
	return &res, nil
}

func (m *MemoryRepository) GetStoreByOwner(ctx context.Context, ownerID string) (*model.Store, error) {
	m.mu.RLock()
	id, ok := m.owners[ownerID]
	m.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotFound
	}
	return m.GetStore(ctx, id)
}

func (m *MemoryRepository) UpdateStore(ctx context.Context, s *model.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.stores[s.ID]
	if !ok {
		return model.ErrNotFound
	}
	cur.Address = s.Address
	cur.Categories = slices.Clone(s.Categories)
	cur.Location = cloneCoordinate(s.Location)
	m.stores[s.ID] = cur
	return nil
}

func (m *MemoryRepository) UpdateStoreRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.stores[id]
	if !ok {
		return model.ErrNotFound
	}
	cur.Rating = rating
	cur.ReviewCount = reviewCount
	m.stores[id] = cur
	return nil
}

func (m *MemoryRepository) ListStoreIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.storeOrder), nil
}

func (m *MemoryRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products[p.ID] = cloneProduct(*p)
	m.productOrder = append(m.productOrder, p.ID)
	return nil
}

func (m *MemoryRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	res := cloneProduct(p)
	return &res, nil
}

func (m *MemoryRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.products[p.ID]
	if !ok {
		return model.ErrNotFound
	}
	upd := cloneProduct(*p)
	upd.SellerID, upd.StoreID, upd.CreatedAt = cur.SellerID, cur.StoreID, cur.CreatedAt
	m.products[p.ID] = upd
	return nil
}

func (m *MemoryRepository) ListActiveProducts(ctx context.Context, q model.ProductQuery) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	term := strings.ToLower(q.SearchTerm)

	var res []model.Product
	for _, id := range m.productOrder {
		p := m.products[id]
		if !p.Active {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(p.Title), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if q.ExcludeSellerID != "" && p.SellerID == q.ExcludeSellerID {
			continue
		}
		if q.SellerID != "" && p.SellerID != q.SellerID {
			continue
		}
		res = append(res, cloneProduct(p))
	}
	return res, nil
}

func (m *MemoryRepository) ListProductsBySeller(ctx context.Context, sellerID string) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Product
	for i := len(m.productOrder) - 1; i >= 0; i-- {
		p := m.products[m.productOrder[i]]
		if p.SellerID == sellerID {
			res = append(res, cloneProduct(p))
		}
	}
	return res, nil
}

func (m *MemoryRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[o.ProductID]; !ok {
		return fmt.Errorf("insert order: product %s: %w", o.ProductID, model.ErrNotFound)
	}
	m.orders[o.ID] = cloneOrder(*o)
	m.orderOrder = append(m.orderOrder, o.ID)
	return nil
}

func (m *MemoryRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	res := cloneOrder(o)
	return &res, nil
}

func (m *MemoryRepository) ListOrders(ctx context.Context, partyID string, role model.Role) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Order
	for _, id := range m.orderOrder {
		o := m.orders[id]
		owner := o.BuyerID
		if role == model.RoleSeller {
			owner = o.SellerID
		}
		if owner == partyID {
			res = append(res, cloneOrder(o))
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryRepository) ListOverdueOrders(ctx context.Context, now time.Time, limit int) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Order
	for _, id := range m.orderOrder {
		o := m.orders[id]
		if o.Overdue(now) {
			res = append(res, cloneOrder(o))
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].ExpiresAt.Before(res[j].ExpiresAt)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// UpdateOrder выполняет сравнение версии и запись атомарно под мьютексом.
func (m *MemoryRepository) UpdateOrder(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.orders[o.ID]
	if !ok {
		return model.ErrNotFound
	}
	if cur.Version != o.Version {
		return fmt.Errorf("%w: order %s", model.ErrVersionConflict, o.ID)
	}

	cur.Status = o.Status
	cur.AcceptedAt = keepFirst(cur.AcceptedAt, o.AcceptedAt)
	cur.CompletedAt = keepFirst(cur.CompletedAt, o.CompletedAt)
	cur.CancelledAt = keepFirst(cur.CancelledAt, o.CancelledAt)
	cur.CancellationCharge = o.CancellationCharge
	cur.Version++
	m.orders[o.ID] = cur

	o.Version = cur.Version
	return nil
}

func keepFirst(existing, next *time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	return cloneTime(next)
}

func cloneStore(s model.Store) model.Store {
	s.Categories = slices.Clone(s.Categories)
	s.Location = cloneCoordinate(s.Location)
	return s
}

func cloneCoordinate(c *model.Coordinate) *model.Coordinate {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func cloneProduct(p model.Product) model.Product {
	if p.MaxQuantity != nil {
		v := *p.MaxQuantity
		p.MaxQuantity = &v
	}
	return p
}

func cloneOrder(o model.Order) model.Order {
	o.AcceptedAt = cloneTime(o.AcceptedAt)
	o.CompletedAt = cloneTime(o.CompletedAt)
	o.CancelledAt = cloneTime(o.CancelledAt)
	return o
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
