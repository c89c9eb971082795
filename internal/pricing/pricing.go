// Package pricing рассчитывает стоимость заказа.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/nearbymart/internal/model"
)

// DeliveryFee фиксированная стоимость доставки.
var DeliveryFee = decimal.NewFromInt(30)

// Quote результат расчёта стоимости заказа.
type Quote struct {
	UnitPrice   decimal.Decimal
	Quantity    int
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Price рассчитывает стоимость: цена товара × количество + стоимость доставки.
// Границы количества здесь не проверяются.
func Price(p *model.Product, quantity int, method model.DeliveryMethod) Quote {
	fee := decimal.Zero
	if method == model.DeliveryMethodDelivery {
		fee = DeliveryFee
	}

	return Quote{
		UnitPrice:   p.Price,
		Quantity:    quantity,
		DeliveryFee: fee,
		Total:       p.Price.Mul(decimal.NewFromInt(int64(quantity))).Add(fee),
	}
}

// ProductLookup описывает получение товара для расчёта.
type ProductLookup interface {
	Product(ctx context.Context, id string) (*model.Product, error)
}

// Engine рассчитывает стоимость по идентификатору товара.
type Engine struct {
	products ProductLookup
}

// NewEngine создаёт движок расчёта поверх каталога товаров.
func NewEngine(products ProductLookup) *Engine {
	return &Engine{products: products}
}

// Quote находит товар и рассчитывает стоимость заказа. Возвращает model.ErrNotFound,
// если товара нет.
func (e *Engine) Quote(ctx context.Context, productID string, quantity int, method model.DeliveryMethod) (Quote, *model.Product, error) {
	p, err := e.products.Product(ctx, productID)
	if err != nil {
		return Quote{}, nil, fmt.Errorf("price product: %w", err)
	}
	return Price(p, quantity, method), p, nil
}
