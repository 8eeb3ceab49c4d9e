package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is a bon de commande sent to a supplier.
type PurchaseOrder struct {
	ID                  int64               `json:"id"`
	SupplierID          int                 `json:"fournisseur"`
	OrderID             *int64              `json:"order_id"`
	Lines               []PurchaseOrderLine `json:"articles"`
	Status              PurchaseOrderStatus `json:"statut"`
	TotalHT             decimal.Decimal     `json:"total_ht"`
	TotalTTC            decimal.Decimal     `json:"total_ttc"`
	DateCommande        time.Time           `json:"date_commande"`
	DateLivraisonPrevue *time.Time          `json:"date_livraison_prevue"`
	InvoiceNumber       string              `json:"invoice_number"`
	IdempotencyKey      string              `json:"idempotency_key,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// PurchaseOrderLine may reference a catalog product or be free text.
type PurchaseOrderLine struct {
	ProductID   *int            `json:"product_id"`
	Reference   string          `json:"reference"`
	Designation string          `json:"designation"`
	Quantity    int             `json:"quantite"`
	UnitPrice   decimal.Decimal `json:"prix_unitaire"`
	LineTotal   decimal.Decimal `json:"total"`
}

// ReceiptQuantities sums quantities of product-linked lines per product.
func (po *PurchaseOrder) ReceiptQuantities() (map[int]int, error) {
	q := make(map[int]int)
	for i, l := range po.Lines {
		if l.ProductID == nil {
			continue
		}
		if l.Quantity < 1 || l.Quantity > MaxLineQuantity {
			return nil, fmt.Errorf("%w: article %d: quantite must be between 1 and %d", ErrValidation, i+1, MaxLineQuantity)
		}
		if err := addQuantity(q, *l.ProductID, l.Quantity); err != nil {
			return nil, err
		}
	}
	return q, nil
}

type PurchaseOrderFilter struct {
	Status     PurchaseOrderStatus
	SupplierID int
}

func (f PurchaseOrderFilter) Match(po *PurchaseOrder) bool {
	if f.Status != "" && po.Status != f.Status {
		return false
	}
	if f.SupplierID != 0 && po.SupplierID != f.SupplierID {
		return false
	}
	return true
}

/*
Mysql Table

CREATE TABLE purchase_orders (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	supplier_id INT NOT NULL,
	order_id BIGINT NULL,
	statut VARCHAR(20) NOT NULL,
	total_ht DECIMAL(12,3) NOT NULL,
	total_ttc DECIMAL(12,3) NOT NULL,
	date_commande DATETIME(6) NOT NULL,
	date_livraison_prevue DATETIME(6) NULL,
	invoice_number VARCHAR(32) NOT NULL UNIQUE,
	idempotency_key VARCHAR(255) NOT NULL UNIQUE,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL
);

CREATE TABLE purchase_order_lines (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	purchase_order_id BIGINT NOT NULL REFERENCES purchase_orders(id),
	product_id INT NULL,
	reference VARCHAR(64) NOT NULL,
	designation VARCHAR(255) NOT NULL,
	quantity INT NOT NULL,
	unit_price DECIMAL(12,3) NOT NULL,
	line_total DECIMAL(12,3) NOT NULL
);
*/
