package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/idempotency"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/pricing"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService turns carts into sales orders and moves them through the
// approval gate.
type OrderService struct {
	deps Dependencies
	now  func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(deps Dependencies) *OrderService {
	return &OrderService{deps: deps.withDefaults(), now: time.Now}
}

type SubmitOrderInput struct {
	UserID          int
	Items           []entity.CartItem
	ShippingAddress string
	PaymentMethod   entity.PaymentMethod
	IdempotencyKey  string
}

func (in SubmitOrderInput) validate() error {
	if len(in.Items) == 0 {
		return entity.ErrEmptyCart
	}
	if _, err := entity.MergeItems(in.Items); err != nil {
		return err
	}
	if in.UserID <= 0 {
		return fmt.Errorf("%w: user is required", entity.ErrValidation)
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return fmt.Errorf("%w: shipping address is required", entity.ErrValidation)
	}
	if !in.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", entity.ErrValidation, in.PaymentMethod)
	}
	return nil
}

// SubmitOrder creates a pending order and decrements stock for every line in
// one unit of work. The second return value is true when the order already
// existed for the idempotency key and was returned without re-executing.
func (s *OrderService) SubmitOrder(ctx context.Context, in SubmitOrderInput) (*entity.Order, bool, error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	if existing, err := s.replay(ctx, key, in.UserID); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, entity.ErrNotFound) {
		return nil, false, err
	}

	claimed, err := s.deps.Keys.Claim(ctx, idempotency.ScopeOrder, key)
	if err != nil {
		// The unique key on orders still guards against double execution.
		logger.Warn().Err(err).Msgf("Error claiming idempotent key %s, relying on database", key)
		claimed = true
	}
	if !claimed {
		if existing, err := s.replay(ctx, key, in.UserID); err == nil {
			return existing, true, nil
		}
		return nil, false, fmt.Errorf("%w: %s", entity.ErrRequestInFlight, key)
	}

	order, err := s.placeOrder(ctx, in, key)
	if err != nil {
		if errors.Is(err, entity.ErrDuplicateKey) {
			if existing, rerr := s.replay(ctx, key, in.UserID); rerr == nil {
				return existing, true, nil
			}
		}
		s.deps.releaseKey(ctx, idempotency.ScopeOrder, key)
		logger.Error().Err(err).Msgf("Error creating order for user %d", in.UserID)
		return nil, false, err
	}

	s.deps.completeKey(ctx, idempotency.ScopeOrder, key, order.ID)
	if s.deps.Carts != nil {
		cartCtx, cancel := detached(ctx)
		if err := s.deps.Carts.Clear(cartCtx, in.UserID); err != nil {
			logger.Warn().Err(err).Msgf("Error clearing cart of user %d after order %d", in.UserID, order.ID)
		}
		cancel()
	}

	productIDs := sortedIDs(order.Quantities())
	s.deps.invalidateStock(ctx, productIDs)
	s.deps.publish(ctx, entity.Event{
		Type:        entity.EventOrderCreated,
		AggregateID: order.ID,
		ProductIDs:  productIDs,
		Payload:     order,
	})

	logger.Info().Msgf("Order %s created for user %d, total %s", order.OrderNumber, order.UserID, order.TotalAmount)
	return order, false, nil
}

// replay returns the order stored under key. A key belongs to the user who
// submitted it first.
func (s *OrderService) replay(ctx context.Context, key string, userID int) (*entity.Order, error) {
	existing, err := s.deps.Store.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, classify(err)
	}
	if existing.UserID != userID {
		return nil, fmt.Errorf("%w: idempotency key %s belongs to another user", entity.ErrDuplicateKey, key)
	}
	return existing, nil
}

func (s *OrderService) placeOrder(ctx context.Context, in SubmitOrderInput, key string) (*entity.Order, error) {
	// Sorted by product id so concurrent orders touch rows in the same order.
	items, err := entity.MergeItems(in.Items)
	if err != nil {
		return nil, err
	}

	var placed *entity.Order
	err = runTx(ctx, s.deps.Store, s.deps.Retry, func(tx repository.Tx) error {
		lines := make([]entity.OrderLine, 0, len(items))
		for _, it := range items {
			p, err := tx.GetProductByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if !p.IsActive {
				return fmt.Errorf("%w: product %d", entity.ErrProductInactive, p.ID)
			}
			lines = append(lines, pricing.PriceOrderLine(p, it.Quantity))
		}

		now := s.now().UTC()
		order := &entity.Order{
			OrderNumber:     documentNumber("CMD", now),
			UserID:          in.UserID,
			Lines:           lines,
			ShippingAddress: strings.TrimSpace(in.ShippingAddress),
			PaymentMethod:   in.PaymentMethod,
			Status:          entity.OrderPending,
			TotalAmount:     s.deps.Pricing.OrderTotal(lines, nil),
			IdempotencyKey:  key,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		for _, l := range order.Lines {
			if _, err := tx.AdjustStock(ctx, l.ProductID, -l.Quantity, entity.SaleReason(order.ID)); err != nil {
				return err
			}
		}
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// Approve moves a pending order to processing and fixes its delivery cost.
func (s *OrderService) Approve(ctx context.Context, id int64, deliveryCost decimal.Decimal) (*entity.Order, error) {
	if deliveryCost.IsNegative() {
		return nil, fmt.Errorf("%w: delivery cost must not be negative", entity.ErrValidation)
	}
	return s.transition(ctx, id, entity.ActionApprove, nil, func(ctx context.Context, tx repository.Tx, o *entity.Order) error {
		cost := deliveryCost.Round(3)
		o.DeliveryCost = &cost
		o.TotalAmount = s.deps.Pricing.OrderTotal(o.Lines, o.DeliveryCost)
		return nil
	})
}

// Reject cancels a pending order on behalf of the shop and returns its stock.
func (s *OrderService) Reject(ctx context.Context, id int64) (*entity.Order, error) {
	return s.transition(ctx, id, entity.ActionReject, nil, s.restoreStock)
}

// CustomerCancel cancels a pending order on behalf of its owner and returns its stock.
func (s *OrderService) CustomerCancel(ctx context.Context, id int64, userID int) (*entity.Order, error) {
	owner := func(o *entity.Order) error {
		if o.UserID != userID {
			return fmt.Errorf("%w: order %d belongs to another user", entity.ErrForbidden, o.ID)
		}
		return nil
	}
	return s.transition(ctx, id, entity.ActionCustomerCancel, owner, s.restoreStock)
}

func (s *OrderService) Ship(ctx context.Context, id int64) (*entity.Order, error) {
	return s.transition(ctx, id, entity.ActionShip, nil, nil)
}

func (s *OrderService) Deliver(ctx context.Context, id int64) (*entity.Order, error) {
	return s.transition(ctx, id, entity.ActionDeliver, nil, nil)
}

// Apply dispatches a target status to the matching action. Cancelling as the
// owner goes through CustomerCancel, as an admin through Reject.
func (s *OrderService) Apply(ctx context.Context, id int64, to entity.OrderStatus, deliveryCost *decimal.Decimal) (*entity.Order, error) {
	switch to {
	case entity.OrderProcessing:
		if deliveryCost == nil {
			return nil, fmt.Errorf("%w: delivery_cost is required to approve", entity.ErrValidation)
		}
		return s.Approve(ctx, id, *deliveryCost)
	case entity.OrderCancelled:
		return s.Reject(ctx, id)
	case entity.OrderShipped:
		return s.Ship(ctx, id)
	case entity.OrderDelivered:
		return s.Deliver(ctx, id)
	}
	return nil, fmt.Errorf("%w: cannot move an order to %s", entity.ErrInvalidTransition, to)
}

// restoreStock gives back every line of a cancelled order.
func (s *OrderService) restoreStock(ctx context.Context, tx repository.Tx, o *entity.Order) error {
	quantities := o.Quantities()
	for _, pid := range sortedIDs(quantities) {
		if _, err := tx.AdjustStock(ctx, pid, quantities[pid], entity.SaleCancelReason(o.ID)); err != nil {
			return err
		}
	}
	return nil
}

// transition applies action to order id in one unit of work. check runs on
// the loaded order before the status table is consulted; apply runs after
// the status changed and before it is saved.
func (s *OrderService) transition(
	ctx context.Context,
	id int64,
	action entity.OrderAction,
	check func(o *entity.Order) error,
	apply func(ctx context.Context, tx repository.Tx, o *entity.Order) error,
) (*entity.Order, error) {
	var updated *entity.Order
	err := runTx(ctx, s.deps.Store, s.deps.Retry, func(tx repository.Tx) error {
		o, err := tx.GetOrderByID(ctx, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		from := o.Status
		to, err := entity.OrderTransitions.Next(from, action)
		if err != nil {
			return fmt.Errorf("order %d: %w", id, err)
		}
		o.Status = to
		if apply != nil {
			if err := apply(ctx, tx, o); err != nil {
				return err
			}
		}
		if err := tx.SaveOrderStatus(ctx, o, from); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Error applying %s to order %d", action, id)
		return nil, err
	}

	event := entity.Event{Type: orderEventType(action), AggregateID: updated.ID, Payload: updated}
	if updated.Status == entity.OrderCancelled {
		event.ProductIDs = sortedIDs(updated.Quantities())
		s.deps.invalidateStock(ctx, event.ProductIDs)
	}
	s.deps.publish(ctx, event)

	logger.Info().Msgf("Order %d is now %s", updated.ID, updated.Status)
	return updated, nil
}

func orderEventType(action entity.OrderAction) entity.EventType {
	switch action {
	case entity.ActionApprove:
		return entity.EventOrderApproved
	case entity.ActionShip:
		return entity.EventOrderShipped
	case entity.ActionDeliver:
		return entity.EventOrderDelivered
	}
	return entity.EventOrderCancelled
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*entity.Order, error) {
	o, err := s.deps.Store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return o, nil
}

// ListOrders returns matching orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter entity.OrderFilter) ([]*entity.Order, error) {
	orders, err := s.deps.Store.ListOrders(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing orders")
		return nil, classify(err)
	}
	return orders, nil
}

// Checkout submits the stored cart of userID.
func (s *OrderService) Checkout(ctx context.Context, userID int, shippingAddress string, method entity.PaymentMethod, key string) (*entity.Order, bool, error) {
	in := SubmitOrderInput{
		UserID:          userID,
		ShippingAddress: shippingAddress,
		PaymentMethod:   method,
		IdempotencyKey:  key,
	}
	if s.deps.Carts == nil {
		return nil, false, entity.ErrEmptyCart
	}
	c, err := s.deps.Carts.Get(ctx, userID)
	if err != nil {
		return nil, false, classify(err)
	}
	// A checkout retried after the cart was cleared still replays.
	if c.IsEmpty() && strings.TrimSpace(key) != "" {
		if existing, err := s.replay(ctx, strings.TrimSpace(key), userID); err == nil {
			return existing, true, nil
		}
	}
	in.Items = c.Items
	return s.SubmitOrder(ctx, in)
}
