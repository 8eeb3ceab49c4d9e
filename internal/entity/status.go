package entity

import (
	"fmt"
	"sort"
)

// OrderStatus is the closed set of sales order states.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderAction names an event that moves an order between states.
type OrderAction string

const (
	ActionApprove        OrderAction = "approve"
	ActionReject         OrderAction = "reject"
	ActionCustomerCancel OrderAction = "customer_cancel"
	ActionShip           OrderAction = "ship"
	ActionDeliver        OrderAction = "deliver"
)

// PurchaseOrderStatus is the closed set of purchase order (bon de commande) states.
type PurchaseOrderStatus string

const (
	PurchaseOrderPending   PurchaseOrderStatus = "en_attente"
	PurchaseOrderConfirmed PurchaseOrderStatus = "confirmé"
	PurchaseOrderDelivered PurchaseOrderStatus = "livré"
	PurchaseOrderCancelled PurchaseOrderStatus = "annulée"
)

// PurchaseOrderAction names an event that moves a purchase order between states.
type PurchaseOrderAction string

const (
	ActionConfirmReceipt  PurchaseOrderAction = "confirm"
	ActionCancelPurchase  PurchaseOrderAction = "cancel"
	ActionDeliverPurchase PurchaseOrderAction = "deliver"
)

// Transitions is an explicit from-state x action -> to-state table.
// Pairs missing from the table are rejected.
type Transitions[S ~string, A ~string] map[S]map[A]S

// Next returns the state reached by applying action in from.
func (t Transitions[S, A]) Next(from S, action A) (S, error) {
	if to, ok := t[from][action]; ok {
		return to, nil
	}
	var zero S
	return zero, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, from)
}

// Allowed lists the actions accepted in from, sorted.
func (t Transitions[S, A]) Allowed(from S) []A {
	actions := make([]A, 0, len(t[from]))
	for a := range t[from] {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// IsTerminal reports whether no action leaves state s.
func (t Transitions[S, A]) IsTerminal(s S) bool {
	return len(t[s]) == 0
}

var OrderTransitions = Transitions[OrderStatus, OrderAction]{
	OrderPending: {
		ActionApprove:        OrderProcessing,
		ActionReject:         OrderCancelled,
		ActionCustomerCancel: OrderCancelled,
	},
	OrderProcessing: {
		ActionShip: OrderShipped,
	},
	OrderShipped: {
		ActionDeliver: OrderDelivered,
	},
}

var PurchaseOrderTransitions = Transitions[PurchaseOrderStatus, PurchaseOrderAction]{
	PurchaseOrderPending: {
		ActionConfirmReceipt: PurchaseOrderConfirmed,
		ActionCancelPurchase: PurchaseOrderCancelled,
	},
	PurchaseOrderConfirmed: {
		ActionDeliverPurchase: PurchaseOrderDelivered,
	},
}

// ParseOrderStatus validates a wire value.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
}

// ParsePurchaseOrderStatus validates a wire value. The unaccented spellings
// sent by older clients are accepted.
func ParsePurchaseOrderStatus(s string) (PurchaseOrderStatus, error) {
	switch s {
	case string(PurchaseOrderPending):
		return PurchaseOrderPending, nil
	case string(PurchaseOrderConfirmed), "confirme":
		return PurchaseOrderConfirmed, nil
	case string(PurchaseOrderDelivered), "livre":
		return PurchaseOrderDelivered, nil
	case string(PurchaseOrderCancelled), "annulee":
		return PurchaseOrderCancelled, nil
	}
	return "", fmt.Errorf("%w: unknown purchase order status %q", ErrValidation, s)
}

// HoldsStock reports whether an order in this status has its decrement applied.
// Pending orders hold stock because the decrement happens at submission.
func (s OrderStatus) HoldsStock() bool {
	return s != OrderCancelled
}

// CountsStock reports whether a purchase order in this status has its increment applied.
func (s PurchaseOrderStatus) CountsStock() bool {
	return s == PurchaseOrderConfirmed || s == PurchaseOrderDelivered
}
