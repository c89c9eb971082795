package model

import "time"

// OrderStatus описывает статус заказа. Множество значений закрыто.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusRejected  OrderStatus = "rejected"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {
		OrderStatusAccepted,
		OrderStatusRejected,
		OrderStatusExpired,
		OrderStatusCancelled,
	},
	OrderStatusAccepted: {
		OrderStatusCompleted,
		OrderStatusCancelled,
	},
}

// ParseOrderStatus преобразует строку в статус заказа.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusCompleted,
		OrderStatusCancelled, OrderStatusExpired, OrderStatusRejected:
		return st, true
	}
	return "", false
}

// Terminal сообщает, что из статуса нет допустимых переходов.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo проверяет переход по таблице допустимых переходов.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SellerSettable сообщает, может ли продавец явно выставить этот статус.
func (s OrderStatus) SellerSettable() bool {
	return s == OrderStatusAccepted || s == OrderStatusRejected || s == OrderStatusCompleted
}

// Overdue сообщает, что заказ ожидает подтверждения дольше допустимого.
func (o *Order) Overdue(now time.Time) bool {
	return o.Status == OrderStatusPending && !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}

// EffectiveStatus вычисляет фактический статус с учётом срока ожидания, не изменяя заказ.
func (o *Order) EffectiveStatus(now time.Time) OrderStatus {
	if o.Overdue(now) {
		return OrderStatusExpired
	}
	return o.Status
}

// Transition переводит заказ в новый статус и проставляет соответствующую метку времени.
// Проверка выполняется относительно фактического статуса на момент now.
func (o *Order) Transition(next OrderStatus, now time.Time) error {
	current := o.EffectiveStatus(now)
	if !current.CanTransitionTo(next) {
		return &StateError{Current: current, Target: next}
	}

	o.Status = next
	switch next {
	case OrderStatusAccepted:
		o.AcceptedAt = stamp(o.AcceptedAt, now)
	case OrderStatusCompleted:
		o.CompletedAt = stamp(o.CompletedAt, now)
	case OrderStatusCancelled:
		o.CancelledAt = stamp(o.CancelledAt, now)
	}
	return nil
}

func stamp(existing *time.Time, now time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	t := now
	return &t
}
