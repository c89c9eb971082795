package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/nearbymart/internal/catalog"
	"github.com/mmeshcher/nearbymart/internal/middleware"
	"github.com/mmeshcher/nearbymart/internal/model"
	"github.com/mmeshcher/nearbymart/internal/service"
)

type stubService struct {
	searchFilter catalog.Filter
	searchResp   []catalog.ProductWithDistance
	searchErr    error

	product    *model.Product
	productErr error

	store    *model.Store
	storeErr error

	order    *model.Order
	orderErr error

	orders    []model.Order
	listRole  model.Role
	listParty string

	statusArg   string
	statusParty string
	createIn    service.CreateOrderInput
}

func (s *stubService) SearchProducts(ctx context.Context, f catalog.Filter) ([]catalog.ProductWithDistance, error) {
	s.searchFilter = f
	return s.searchResp, s.searchErr
}

func (s *stubService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubService) ListMyProducts(ctx context.Context, sellerID string) ([]model.Product, error) {
	if s.product == nil {
		return nil, s.productErr
	}
	return []model.Product{*s.product}, s.productErr
}

func (s *stubService) CreateProduct(ctx context.Context, sellerID string, in service.ProductInput) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubService) UpdateProduct(ctx context.Context, sellerID, productID string, in service.ProductInput) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubService) DeactivateProduct(ctx context.Context, sellerID, productID string) error {
	return s.productErr
}

func (s *stubService) CreateStore(ctx context.Context, ownerID string, in service.StoreInput) (*model.Store, error) {
	return s.store, s.storeErr
}

func (s *stubService) GetStore(ctx context.Context, id string) (*model.Store, error) {
	return s.store, s.storeErr
}

func (s *stubService) MyStore(ctx context.Context, ownerID string) (*model.Store, error) {
	return s.store, s.storeErr
}

func (s *stubService) UpdateMyStore(ctx context.Context, ownerID string, in service.StoreUpdate) (*model.Store, error) {
	return s.store, s.storeErr
}

func (s *stubService) CreateOrder(ctx context.Context, buyerID string, in service.CreateOrderInput) (*model.Order, error) {
	s.createIn = in
	return s.order, s.orderErr
}

func (s *stubService) ListOrders(ctx context.Context, partyID string, role model.Role) ([]model.Order, error) {
	s.listParty, s.listRole = partyID, role
	return s.orders, s.orderErr
}

func (s *stubService) GetOrder(ctx context.Context, partyID, orderID string) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubService) SetOrderStatus(ctx context.Context, sellerID, orderID, status string) (*model.Order, error) {
	s.statusParty, s.statusArg = sellerID, status
	return s.order, s.orderErr
}

func (s *stubService) CancelOrder(ctx context.Context, buyerID, orderID string) (*model.Order, error) {
	return s.order, s.orderErr
}

const testSecret = "test-secret"

func newTestServer(t *testing.T, svc Service) *httptest.Server {
	t.Helper()

	h := NewHandler(svc, zap.NewNop(), middleware.NewAuthMiddleware(testSecret), Options{})
	ts := httptest.NewServer(h.SetupRouter())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, party string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if party != "" {
		token := middleware.NewAuthMiddleware(testSecret).IssueToken(party)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(res.Body).Decode(&decoded)
	return res, decoded
}

func sampleOrder() *model.Order {
	created := time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC)
	return &model.Order{
		ID:             "o1",
		BuyerID:        "buyer",
		SellerID:       "seller",
		ProductID:      "p1",
		Quantity:       2,
		UnitPrice:      decimal.NewFromInt(100),
		DeliveryMethod: model.DeliveryMethodDelivery,
		DeliveryFee:    decimal.NewFromInt(30),
		TotalPrice:     decimal.NewFromInt(230),
		Schedule:       model.Schedule{Date: "2026-05-04", Time: "19:30"},
		Status:         model.OrderStatusPending,
		CreatedAt:      created,
		ExpiresAt:      created.Add(time.Hour),
		Version:        1,
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	res, body := doRequest(t, ts, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/orders/my"},
		{http.MethodGet, "/api/orders/seller"},
		{http.MethodPut, "/api/orders/o1/status"},
		{http.MethodPost, "/api/orders/o1/cancel"},
		{http.MethodGet, "/api/products/my"},
		{http.MethodPost, "/api/stores"},
		{http.MethodGet, "/api/stores/me"},
	}

	for _, rt := range routes {
		res, _ := doRequest(t, ts, rt.method, rt.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, "%s %s", rt.method, rt.path)
	}
}

func TestSearchProducts_ParsesFilter(t *testing.T) {
	distance := 0.38
	svc := &stubService{searchResp: []catalog.ProductWithDistance{{
		Product:    model.Product{ID: "p1", Title: "Veg Thali", Price: decimal.RequireFromString("99.50"), Active: true},
		DistanceKm: &distance,
		Store:      &catalog.StoreSummary{ID: "s1", Name: "Near Kitchen", Rating: 4.5, ReviewCount: 12},
	}}}
	ts := newTestServer(t, svc)

	res, err := ts.Client().Get(ts.URL + "/api/products?lat=12.97&lon=77.59&radius_km=5&categories=meals,%20bakery&search=thali&exclude_seller_id=me")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var items []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, 0.38, items[0]["distance_km"])
	assert.Equal(t, 99.5, items[0]["price"])
	assert.Equal(t, "Near Kitchen", items[0]["store"].(map[string]any)["name"])

	f := svc.searchFilter
	require.NotNil(t, f.Origin)
	assert.Equal(t, 12.97, f.Origin.Latitude)
	assert.Equal(t, 5.0, f.RadiusKm)
	assert.Equal(t, []string{"meals", "bakery"}, f.Categories)
	assert.Equal(t, "thali", f.SearchTerm)
	assert.Equal(t, "me", f.ExcludeSellerID)
}

func TestSearchProducts_BadQuery(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	for _, q := range []string{"?lat=12.9", "?lon=77", "?lat=x&lon=1", "?radius_km=far"} {
		res, _ := doRequest(t, ts, http.MethodGet, "/api/products"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, q)
	}
}

func TestSearchProducts_EmptyIsArray(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	res, err := ts.Client().Get(ts.URL + "/api/products")
	require.NoError(t, err)
	defer res.Body.Close()

	var items []map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&items))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCreateOrder_Response(t *testing.T) {
	svc := &stubService{order: sampleOrder()}
	ts := newTestServer(t, svc)

	res, body := doRequest(t, ts, http.MethodPost, "/api/orders", "buyer", map[string]any{
		"product_id":      "p1",
		"quantity":        2,
		"delivery_method": "delivery",
		"scheduled_date":  "2026-05-04",
		"scheduled_time":  "19:30",
	})

	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Equal(t, 230.0, body["total_price"])
	assert.Equal(t, 30.0, body["delivery_fee"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "2026-05-04T15:00:00Z", body["expires_at"])
	assert.Contains(t, body, "accepted_at")
	assert.Nil(t, body["accepted_at"])

	assert.Equal(t, model.DeliveryMethodDelivery, svc.createIn.DeliveryMethod)
	assert.Equal(t, "19:30", svc.createIn.Schedule.Time)
}

func TestCreateOrder_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/orders", bytes.NewBufferString("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+middleware.NewAuthMiddleware(testSecret).IssueToken("buyer"))

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		field  string
	}{
		{"validation", model.Invalid("quantity", "must be positive"), http.StatusBadRequest, ""},
		{"forbidden", model.ErrForbidden, http.StatusForbidden, ""},
		{"not found", fmtWrap(model.ErrNotFound), http.StatusNotFound, ""},
		{"invalid state", &model.StateError{Current: model.OrderStatusCompleted, Target: model.OrderStatusAccepted}, http.StatusConflict, "completed"},
		{"version conflict", fmtWrap(model.ErrVersionConflict), http.StatusConflict, ""},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &stubService{orderErr: tt.err})

			res, body := doRequest(t, ts, http.MethodPut, "/api/orders/o1/status", "seller", map[string]string{"status": "accepted"})
			assert.Equal(t, tt.status, res.StatusCode)
			assert.NotEmpty(t, body["error"])
			if tt.field != "" {
				assert.Equal(t, tt.field, body["status"])
			}
		})
	}
}

func fmtWrap(err error) error {
	return errors.Join(errors.New("get order o1"), err)
}

func TestSetOrderStatus_QueryParam(t *testing.T) {
	o := sampleOrder()
	o.Status = model.OrderStatusAccepted
	svc := &stubService{order: o}
	ts := newTestServer(t, svc)

	res, body := doRequest(t, ts, http.MethodPut, "/api/orders/o1/status?status=accepted", "seller", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "accepted", svc.statusArg)
	assert.Equal(t, "seller", svc.statusParty)
}

func TestCancelOrder_Response(t *testing.T) {
	o := sampleOrder()
	o.Status = model.OrderStatusCancelled
	o.CancellationCharge = decimal.NewFromInt(50)
	ts := newTestServer(t, &stubService{order: o})

	res, body := doRequest(t, ts, http.MethodPost, "/api/orders/o1/cancel", "buyer", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 50.0, body["cancellation_charge"])
}

func TestListOrders_Roles(t *testing.T) {
	svc := &stubService{orders: []model.Order{*sampleOrder()}}
	ts := newTestServer(t, svc)

	res, err := doList(t, ts, "/api/orders/seller", "seller")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res)
	assert.Equal(t, model.RoleSeller, svc.listRole)
	assert.Equal(t, "seller", svc.listParty)

	res, err = doList(t, ts, "/api/orders/my", "buyer")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res)
	assert.Equal(t, model.RoleBuyer, svc.listRole)
}

func doList(t *testing.T, ts *httptest.Server, path, party string) (int, error) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+middleware.NewAuthMiddleware(testSecret).IssueToken(party))

	res, err := ts.Client().Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	var items []map[string]any
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		return 0, err
	}
	if len(items) != 1 {
		return 0, errors.New("expected one order")
	}
	return res.StatusCode, nil
}

func TestStores(t *testing.T) {
	st := &model.Store{ID: "s1", OwnerID: "seller", Name: "Amma's Kitchen", Location: &model.Coordinate{Latitude: 12.97, Longitude: 77.59}}
	ts := newTestServer(t, &stubService{store: st})

	res, body := doRequest(t, ts, http.MethodPost, "/api/stores", "seller", map[string]any{"name": "Amma's Kitchen"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "s1", body["id"])
	assert.Equal(t, []any{}, body["categories"])

	res, body = doRequest(t, ts, http.MethodGet, "/api/stores/s1", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 12.97, body["location"].(map[string]any)["latitude"])

	conflict := newTestServer(t, &stubService{storeErr: model.ErrStoreExists})
	res, _ = doRequest(t, conflict, http.MethodPost, "/api/stores", "seller", map[string]any{"name": "Second"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestProducts(t *testing.T) {
	p := &model.Product{ID: "p1", SellerID: "seller", Title: "Veg Thali", Price: decimal.NewFromInt(100), MinQuantity: 1, PickupAvailable: true, Active: true}
	ts := newTestServer(t, &stubService{product: p})

	res, body := doRequest(t, ts, http.MethodGet, "/api/products/p1", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Veg Thali", body["title"])
	assert.Contains(t, body, "max_quantity")
	assert.NotContains(t, body, "distance_km")

	res, _ = doRequest(t, ts, http.MethodPost, "/api/products", "seller", map[string]any{"title": "Veg Thali", "price": "100.00", "pickup_available": true})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	res, _ = doRequest(t, ts, http.MethodDelete, "/api/products/p1", "seller", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	forbidden := newTestServer(t, &stubService{productErr: model.ErrForbidden})
	res, _ = doRequest(t, forbidden, http.MethodDelete, "/api/products/p1", "buyer", nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestProductRequestDefaultsMinQuantity(t *testing.T) {
	in := productRequest{Title: "Bread"}.input()
	assert.Equal(t, 1, in.MinQuantity)
}
