package entity

import (
	"fmt"
	"strings"
	"time"
)

type EventType string

const (
	EventOrderCreated           EventType = "order.created"
	EventOrderApproved          EventType = "order.approved"
	EventOrderCancelled         EventType = "order.cancelled"
	EventOrderShipped           EventType = "order.shipped"
	EventOrderDelivered         EventType = "order.delivered"
	EventPurchaseOrderCreated   EventType = "purchase_order.created"
	EventPurchaseOrderConfirmed EventType = "purchase_order.confirmed"
	EventPurchaseOrderCancelled EventType = "purchase_order.cancelled"
	EventPurchaseOrderDelivered EventType = "purchase_order.delivered"
	EventStockAdjusted          EventType = "stock.adjusted"
)

// MovesStock reports whether consumers should treat cached stock of the
// event's products as outdated.
func (t EventType) MovesStock() bool {
	switch t {
	case EventOrderCreated, EventOrderCancelled, EventPurchaseOrderConfirmed, EventStockAdjusted:
		return true
	}
	return false
}

// Event is a lifecycle notification published after a commit.
type Event struct {
	Type        EventType `json:"type"`
	AggregateID int64     `json:"aggregate_id"`
	ProductIDs  []int     `json:"product_ids,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload,omitempty"`
}

// Key is the partition key, e.g. order-created-12.
func (e Event) Key() string {
	return fmt.Sprintf("%s-%d", strings.ReplaceAll(string(e.Type), ".", "-"), e.AggregateID)
}
