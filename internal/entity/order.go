package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              int64            `json:"id"`
	OrderNumber     string           `json:"order_number"`
	UserID          int              `json:"user_id"`
	Lines           []OrderLine      `json:"lines"`
	ShippingAddress string           `json:"shipping_address"`
	PaymentMethod   PaymentMethod    `json:"payment_method"`
	Status          OrderStatus      `json:"status"`
	DeliveryCost    *decimal.Decimal `json:"delivery_cost"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	IdempotencyKey  string           `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// OrderLine holds the price snapshot taken at submission. Immutable once stored.
type OrderLine struct {
	ProductID int             `json:"product_id"`
	Reference string          `json:"reference"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Quantities sums line quantities per product.
func (o *Order) Quantities() map[int]int {
	q := make(map[int]int, len(o.Lines))
	for _, l := range o.Lines {
		q[l.ProductID] += l.Quantity
	}
	return q
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCard           PaymentMethod = "card"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentCheque         PaymentMethod = "cheque"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentCard, PaymentBankTransfer, PaymentCheque:
		return true
	}
	return false
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	Status OrderStatus
	UserID int
}

func (f OrderFilter) Match(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.UserID != 0 && o.UserID != f.UserID {
		return false
	}
	return true
}

/*
Mysql Table

CREATE TABLE orders (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	order_number VARCHAR(32) NOT NULL UNIQUE,
	user_id INT NOT NULL,
	shipping_address TEXT NOT NULL,
	payment_method VARCHAR(32) NOT NULL,
	status VARCHAR(20) NOT NULL,
	delivery_cost DECIMAL(12,3) NULL,
	total_amount DECIMAL(12,3) NOT NULL,
	idempotency_key VARCHAR(255) NOT NULL UNIQUE,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL
);

CREATE TABLE order_lines (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	order_id BIGINT NOT NULL REFERENCES orders(id),
	product_id INT NOT NULL,
	reference VARCHAR(64) NOT NULL,
	name VARCHAR(255) NOT NULL,
	quantity INT NOT NULL,
	unit_price DECIMAL(12,3) NOT NULL,
	line_total DECIMAL(12,3) NOT NULL
);
*/
