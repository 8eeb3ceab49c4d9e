package repository

import (
	"context"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
)

// Store is implemented by the MySQL store and the in-memory store.
// Reads outside WithinTx see committed data only.
type Store interface {
	// WithinTx runs fn in one unit of work. fn's writes become visible
	// together on success, and none of them survive an error.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error)
	UpdateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error)
	GetProductByID(ctx context.Context, id int) (*entity.Product, error)
	GetProducts(ctx context.Context) ([]*entity.Product, error)
	ListMovements(ctx context.Context, productID int) ([]*entity.StockMovement, error)

	GetOrderByID(ctx context.Context, id int64) (*entity.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*entity.Order, error)
	ListOrders(ctx context.Context, filter entity.OrderFilter) ([]*entity.Order, error)

	GetPurchaseOrderByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error)
	GetPurchaseOrderByIdempotencyKey(ctx context.Context, key string) (*entity.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, filter entity.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error)

	CreateSupplier(ctx context.Context, supplier *entity.Supplier) (*entity.Supplier, error)
	GetSupplierByID(ctx context.Context, id int) (*entity.Supplier, error)
	GetSuppliers(ctx context.Context) ([]*entity.Supplier, error)

	Close() error
}

// Tx is the unit of work handed to WithinTx callbacks.
type Tx interface {
	GetProductByID(ctx context.Context, id int) (*entity.Product, error)

	// AdjustStock applies delta to the product's stock and records a movement
	// for reason. It fails with ErrInsufficientStock below zero, ErrStaleWrite
	// when the row changed underneath, and ErrDuplicateMovement when reason was
	// already applied to this product.
	AdjustStock(ctx context.Context, productID int, delta int, reason string) (int, error)

	// CreateOrder stores the order and its lines and assigns ID. A reused
	// idempotency key fails with ErrDuplicateKey.
	CreateOrder(ctx context.Context, order *entity.Order) error
	GetOrderByID(ctx context.Context, id int64) (*entity.Order, error)
	// SaveOrderStatus writes status, delivery cost and total if the stored
	// status is still from, else ErrInvalidTransition.
	SaveOrderStatus(ctx context.Context, order *entity.Order, from entity.OrderStatus) error

	CreatePurchaseOrder(ctx context.Context, po *entity.PurchaseOrder) error
	GetPurchaseOrderByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error)
	// SavePurchaseOrderStatus writes statut and supplier if the stored statut
	// is still from, else ErrInvalidTransition.
	SavePurchaseOrderStatus(ctx context.Context, po *entity.PurchaseOrder, from entity.PurchaseOrderStatus) error

	GetSupplierByID(ctx context.Context, id int) (*entity.Supplier, error)
}
