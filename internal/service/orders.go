package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/nearbymart/internal/events"
	"github.com/mmeshcher/nearbymart/internal/model"
	"github.com/mmeshcher/nearbymart/internal/validation"
)

// AcceptedCancellationCharge удерживается с покупателя при отмене принятого заказа.
var AcceptedCancellationCharge = decimal.NewFromInt(50)

const (
	expireAttempts = 3
	sweepBatchSize = 100
)

// CreateOrderInput параметры нового заказа.
type CreateOrderInput struct {
	ProductID      string
	Quantity       int
	DeliveryMethod model.DeliveryMethod
	Schedule       model.Schedule
	BuyerAddress   string
}

// CreateOrder оформляет заказ покупателя в статусе pending.
func (s *Service) CreateOrder(ctx context.Context, buyerID string, in CreateOrderInput) (*model.Order, error) {
	if in.Quantity < 1 {
		return nil, model.Invalid("quantity", "must be positive")
	}
	if err := validation.DeliveryMethod(in.DeliveryMethod); err != nil {
		return nil, err
	}
	if err := validation.Schedule(in.Schedule); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, model.Invalid("product_id", "must not be empty")
	}

	quote, product, err := s.pricing.Quote(ctx, in.ProductID, in.Quantity, in.DeliveryMethod)
	if err != nil {
		return nil, err
	}

	if !product.Active {
		return nil, model.Invalid("product_id", "product is not available")
	}
	if product.SellerID == buyerID {
		return nil, model.Invalid("product_id", "cannot order own product")
	}
	if !product.Supports(in.DeliveryMethod) {
		return nil, model.Invalid("delivery_method", "not offered for this product")
	}
	if err := validation.Quantity(product, in.Quantity); err != nil {
		return nil, err
	}

	now := s.now()
	o := &model.Order{
		ID:             uuid.NewString(),
		BuyerID:        buyerID,
		SellerID:       product.SellerID,
		ProductID:      product.ID,
		Quantity:       in.Quantity,
		UnitPrice:      quote.UnitPrice,
		DeliveryMethod: in.DeliveryMethod,
		DeliveryFee:    quote.DeliveryFee,
		TotalPrice:     quote.Total,
		Schedule:       in.Schedule,
		BuyerAddress:   strings.TrimSpace(in.BuyerAddress),
		Status:         model.OrderStatusPending,
		CreatedAt:      now,
		ExpiresAt:      s.expiry.ExpiresAt(now),
		Version:        1,
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.metrics.OrderCreated(string(o.DeliveryMethod))
	s.publish(ctx, events.TypeOrderCreated, o)
	return o, nil
}

// ListOrders возвращает заказы стороны в указанной роли, новые первыми.
// Просроченные ожидающие заказы переводятся в expired и сохраняются.
func (s *Service) ListOrders(ctx context.Context, partyID string, role model.Role) ([]model.Order, error) {
	if role != model.RoleBuyer && role != model.RoleSeller {
		return nil, model.Invalid("role", `expected "buyer" or "seller"`)
	}

	orders, err := s.repo.ListOrders(ctx, partyID, role)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	now := s.now()
	for i := range orders {
		if !orders[i].Overdue(now) {
			continue
		}
		updated, err := s.expire(ctx, &orders[i], "read")
		if err != nil {
			return nil, err
		}
		orders[i] = *updated
	}

	return orders, nil
}

// GetOrder возвращает заказ покупателю или продавцу.
func (s *Service) GetOrder(ctx context.Context, partyID, orderID string) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if _, ok := o.PartyRole(partyID); !ok {
		return nil, model.ErrForbidden
	}

	if o.Overdue(s.now()) {
		return s.expire(ctx, o, "read")
	}
	return o, nil
}

// SetOrderStatus выставляет статус заказа от имени продавца.
func (s *Service) SetOrderStatus(ctx context.Context, sellerID, orderID, status string) (*model.Order, error) {
	next, ok := model.ParseOrderStatus(strings.TrimSpace(status))
	if !ok || !next.SellerSettable() {
		return nil, model.Invalid("status", `expected "accepted", "rejected" or "completed"`)
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if o.SellerID != sellerID {
		return nil, model.ErrForbidden
	}

	return s.transition(ctx, o, next, decimal.Zero)
}

// CancelOrder отменяет заказ от имени покупателя и возвращает его с удержанной суммой.
// Отмена ожидающего заказа бесплатна, принятого стоит AcceptedCancellationCharge.
func (s *Service) CancelOrder(ctx context.Context, buyerID, orderID string) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if o.BuyerID != buyerID {
		return nil, model.ErrForbidden
	}

	charge := decimal.Zero
	if o.EffectiveStatus(s.now()) == model.OrderStatusAccepted {
		charge = AcceptedCancellationCharge
	}

	return s.transition(ctx, o, model.OrderStatusCancelled, charge)
}

// SweepExpired переводит в expired все ожидающие заказы, срок которых истёк.
// Возвращает количество переведённых заказов.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		overdue, err := s.repo.ListOverdueOrders(ctx, s.now(), sweepBatchSize)
		if err != nil {
			return total, fmt.Errorf("list overdue orders: %w", err)
		}

		expired := 0
		for i := range overdue {
			updated, err := s.expire(ctx, &overdue[i], "sweep")
			if err != nil {
				return total, err
			}
			if updated.Status == model.OrderStatusExpired {
				expired++
			}
		}
		total += expired

		if len(overdue) < sweepBatchSize || expired == 0 {
			return total, nil
		}
	}
}

func (s *Service) transition(ctx context.Context, o *model.Order, next model.OrderStatus, charge decimal.Decimal) (*model.Order, error) {
	now := s.now()

	if o.Overdue(now) {
		expired, err := s.expire(ctx, o, "read")
		if err != nil {
			return nil, err
		}
		o = expired
	}

	from := o.Status
	if err := o.Transition(next, now); err != nil {
		return nil, err
	}
	if next == model.OrderStatusCancelled {
		o.CancellationCharge = charge
	}

	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		if errors.Is(err, model.ErrVersionConflict) {
			s.metrics.VersionConflict()
		}
		return nil, fmt.Errorf("update order %s: %w", o.ID, err)
	}

	s.metrics.Transition(string(from), string(next))
	if next == model.OrderStatusCancelled {
		s.metrics.CancellationCharge(o.CancellationCharge.InexactFloat64())
	}
	s.publish(ctx, eventType(next), o)
	return o, nil
}

// expire сохраняет переход просроченного заказа в expired.
// При конфликте версий запись перечитывается: её мог изменить другой запрос.
func (s *Service) expire(ctx context.Context, o *model.Order, trigger string) (*model.Order, error) {
	for attempt := 0; attempt < expireAttempts; attempt++ {
		now := s.now()
		if !o.Overdue(now) {
			return o, nil
		}

		next := *o
		if err := next.Transition(model.OrderStatusExpired, now); err != nil {
			return nil, err
		}

		err := s.repo.UpdateOrder(ctx, &next)
		if err == nil {
			s.metrics.Expired(trigger)
			s.metrics.Transition(string(model.OrderStatusPending), string(model.OrderStatusExpired))
			s.publish(ctx, events.TypeOrderExpired, &next)
			return &next, nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return nil, fmt.Errorf("expire order %s: %w", o.ID, err)
		}

		s.metrics.VersionConflict()
		s.logger.Debug("expire order: version conflict, re-reading",
			zap.String("order_id", o.ID),
			zap.String("trigger", trigger),
		)

		o, err = s.repo.GetOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("reload order: %w", err)
		}
	}

	return nil, fmt.Errorf("expire order %s: %w", o.ID, model.ErrVersionConflict)
}

func eventType(status model.OrderStatus) string {
	switch status {
	case model.OrderStatusAccepted:
		return events.TypeOrderAccepted
	case model.OrderStatusRejected:
		return events.TypeOrderRejected
	case model.OrderStatusCompleted:
		return events.TypeOrderCompleted
	case model.OrderStatusCancelled:
		return events.TypeOrderCancelled
	case model.OrderStatusExpired:
		return events.TypeOrderExpired
	}
	return events.TypeOrderCreated
}
