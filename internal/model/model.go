// Package model содержит доменные сущности маркетплейса: магазины, товары и заказы.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coordinate задаёт географическую точку в градусах WGS-84.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid сообщает, лежат ли широта и долгота в допустимых диапазонах.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Store описывает витрину продавца с одной физической точкой.
type Store struct {
	ID          string
	OwnerID     string
	Name        string
	Address     string
	Location    *Coordinate
	Categories  []string
	Rating      float64
	ReviewCount int
	CreatedAt   time.Time
}

// Product описывает товар продавца, доступный для заказа.
type Product struct {
	ID                string
	SellerID          string
	StoreID           string
	Category          string
	Title             string
	Description       string
	Price             decimal.Decimal
	MinQuantity       int
	MaxQuantity       *int
	PickupAvailable   bool
	DeliveryAvailable bool
	Active            bool
	CreatedAt         time.Time
}

// Supports сообщает, поддерживает ли товар указанный способ получения.
func (p *Product) Supports(method DeliveryMethod) bool {
	switch method {
	case DeliveryMethodPickup:
		return p.PickupAvailable
	case DeliveryMethodDelivery:
		return p.DeliveryAvailable
	}
	return false
}

// Orderable сообщает, можно ли сейчас оформить заказ на товар.
func (p *Product) Orderable() bool {
	return p.Active && (p.PickupAvailable || p.DeliveryAvailable)
}

// DeliveryMethod способ получения заказа.
type DeliveryMethod string

const (
	DeliveryMethodPickup   DeliveryMethod = "pickup"
	DeliveryMethodDelivery DeliveryMethod = "delivery"
)

// Valid сообщает, относится ли значение к известным способам получения.
func (m DeliveryMethod) Valid() bool {
	return m == DeliveryMethodPickup || m == DeliveryMethodDelivery
}

// Schedule желаемые покупателем дата и время получения.
type Schedule struct {
	Date string
	Time string
}

// Role роль стороны по отношению к заказу.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Order описывает заказ покупателя на один товар.
//
// Status является единственным источником истины о состоянии заказа,
// а каждая временная метка перехода записывается один раз.
type Order struct {
	ID                 string
	BuyerID            string
	SellerID           string
	ProductID          string
	Quantity           int
	UnitPrice          decimal.Decimal
	DeliveryMethod     DeliveryMethod
	DeliveryFee        decimal.Decimal
	TotalPrice         decimal.Decimal
	Schedule           Schedule
	BuyerAddress       string
	Status             OrderStatus
	CreatedAt          time.Time
	AcceptedAt         *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	ExpiresAt          time.Time
	CancellationCharge decimal.Decimal
	Version            int64
}

// PartyRole возвращает роль стороны в заказе; ok=false, если сторона к заказу не относится.
func (o *Order) PartyRole(partyID string) (Role, bool) {
	switch partyID {
	case o.SellerID:
		return RoleSeller, true
	case o.BuyerID:
		return RoleBuyer, true
	}
	return "", false
}

// ProductQuery задаёт условия выборки активных товаров из хранилища.
type ProductQuery struct {
	SearchTerm      string
	ExcludeSellerID string
	SellerID        string
}
