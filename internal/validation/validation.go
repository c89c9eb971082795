// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/nearbymart/internal/model"
)

const (
	scheduleDateLayout = "2006-01-02"
	scheduleTimeLayout = "15:04"
)

// Schedule проверяет формат желаемых даты (ГГГГ-ММ-ДД) и времени (ЧЧ:ММ).
// Соответствие часам работы магазина не проверяется.
func Schedule(s model.Schedule) error {
	if _, err := time.Parse(scheduleDateLayout, strings.TrimSpace(s.Date)); err != nil {
		return model.Invalid("scheduled_date", "expected YYYY-MM-DD")
	}
	if _, err := time.Parse(scheduleTimeLayout, strings.TrimSpace(s.Time)); err != nil {
		return model.Invalid("scheduled_time", "expected HH:MM")
	}
	return nil
}

// Coordinate проверяет диапазоны широты и долготы.
func Coordinate(c model.Coordinate) error {
	if !c.Valid() {
		return model.Invalid("location", "latitude must be in [-90,90] and longitude in [-180,180]")
	}
	return nil
}

// DeliveryMethod проверяет способ получения.
func DeliveryMethod(m model.DeliveryMethod) error {
	if !m.Valid() {
		return model.Invalid("delivery_method", `expected "pickup" or "delivery"`)
	}
	return nil
}

// Quantity проверяет количество относительно границ товара.
func Quantity(p *model.Product, quantity int) error {
	if quantity < 1 {
		return model.Invalid("quantity", "must be positive")
	}
	if quantity < p.MinQuantity {
		return model.Invalid("quantity", "below product minimum")
	}
	if p.MaxQuantity != nil && quantity > *p.MaxQuantity {
		return model.Invalid("quantity", "above product maximum")
	}
	return nil
}

// Listing проверяет параметры товара перед сохранением.
func Listing(title string, price decimal.Decimal, minQty int, maxQty *int, pickup, delivery bool) error {
	if strings.TrimSpace(title) == "" {
		return model.Invalid("title", "must not be empty")
	}
	if price.IsNegative() {
		return model.Invalid("price", "must not be negative")
	}
	if !price.Equal(price.Round(2)) {
		return model.Invalid("price", "at most two decimal places")
	}
	if minQty < 1 {
		return model.Invalid("min_quantity", "must be at least 1")
	}
	if maxQty != nil && *maxQty < minQty {
		return model.Invalid("max_quantity", "must not be less than min_quantity")
	}
	if !pickup && !delivery {
		return model.Invalid("fulfilment", "pickup or delivery must be available")
	}
	return nil
}
