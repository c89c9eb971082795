package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/nearbymart/internal/model"
)

type stubLookup map[string]*model.Product

func (s stubLookup) Product(ctx context.Context, id string) (*model.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p, nil
}

func TestPrice(t *testing.T) {
	product := &model.Product{ID: "p1", Price: decimal.NewFromInt(100)}

	tests := []struct {
		name     string
		quantity int
		method   model.DeliveryMethod
		fee      string
		total    string
	}{
		{name: "pickup", quantity: 2, method: model.DeliveryMethodPickup, fee: "0", total: "200"},
		{name: "delivery", quantity: 2, method: model.DeliveryMethodDelivery, fee: "30", total: "230"},
		{name: "single delivery", quantity: 1, method: model.DeliveryMethodDelivery, fee: "30", total: "130"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Price(product, tt.quantity, tt.method)
			assert.True(t, q.DeliveryFee.Equal(decimal.RequireFromString(tt.fee)), "fee %s", q.DeliveryFee)
			assert.True(t, q.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", q.Total)
			assert.True(t, q.UnitPrice.Equal(product.Price))
		})
	}
}

func TestPrice_FractionalPrice(t *testing.T) {
	product := &model.Product{Price: decimal.RequireFromString("12.35")}

	q := Price(product, 3, model.DeliveryMethodPickup)
	assert.Equal(t, "37.05", q.Total.StringFixed(2))
}

func TestEngineQuote(t *testing.T) {
	e := NewEngine(stubLookup{"p1": {ID: "p1", Price: decimal.NewFromInt(100)}})

	q, p, err := e.Quote(context.Background(), "p1", 2, model.DeliveryMethodDelivery)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.True(t, q.Total.Equal(decimal.NewFromInt(230)))

	_, _, err = e.Quote(context.Background(), "missing", 1, model.DeliveryMethodPickup)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
