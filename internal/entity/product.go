package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int             `json:"id"`
	Reference string          `json:"reference"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"is_active"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductPatch carries admin edits. Stock is deliberately absent: it only
// moves through the ledger.
type ProductPatch struct {
	Reference *string          `json:"reference"`
	Name      *string          `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	IsActive  *bool            `json:"is_active"`
}

func (p *Product) Validate() error {
	if p.Reference == "" {
		return fmt.Errorf("%w: reference is required", ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	return nil
}

// Apply copies the set fields of patch onto p.
func (p *Product) Apply(patch ProductPatch) {
	if patch.Reference != nil {
		p.Reference = *patch.Reference
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
}

// StockMovement is the audit record of one ledger write.
type StockMovement struct {
	ID          int64     `json:"id"`
	ProductID   int       `json:"product_id"`
	Delta       int       `json:"delta"`
	StockBefore int       `json:"stock_before"`
	StockAfter  int       `json:"stock_after"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ledger reasons. A (product, reason) pair is applied at most once.

func SaleReason(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

func SaleCancelReason(orderID int64) string {
	return fmt.Sprintf("order:%d:cancel", orderID)
}

func ReceiptReason(purchaseOrderID int64) string {
	return fmt.Sprintf("purchase_order:%d", purchaseOrderID)
}

func AdjustmentReason(ref string) string {
	return "adjust:" + ref
}

/*
Mysql Table

CREATE TABLE products (
	id INT AUTO_INCREMENT PRIMARY KEY,
	reference VARCHAR(64) NOT NULL UNIQUE,
	name VARCHAR(255) NOT NULL,
	price DECIMAL(12,3) NOT NULL,
	stock INT NOT NULL CHECK (stock >= 0),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	version BIGINT NOT NULL DEFAULT 0,
	updated_at DATETIME(6) NOT NULL
);

CREATE TABLE stock_movements (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	product_id INT NOT NULL,
	delta INT NOT NULL,
	stock_before INT NOT NULL,
	stock_after INT NOT NULL,
	reason VARCHAR(128) NOT NULL,
	created_at DATETIME(6) NOT NULL,
	UNIQUE KEY uq_movement (product_id, reason)
);
*/
