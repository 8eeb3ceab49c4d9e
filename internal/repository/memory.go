package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/sharding"
)

const memoryLockShards = 32

// MemoryStore keeps everything in process. It is used by tests and when the
// service runs with ENV=test. Stock rows are guarded by per-product locks;
// units of work stage their writes and validate product versions at commit.
type MemoryStore struct {
	locks *sharding.LockTable

	productsMu    sync.RWMutex // guards the products map itself, not the rows
	products      map[int]*productRow
	nextProductID int

	// mu guards orders, purchase orders, suppliers and their key indexes.
	mu             sync.RWMutex
	orders         map[int64]*entity.Order
	orderKeys      map[string]int64
	purchaseOrders map[int64]*entity.PurchaseOrder
	poKeys         map[string]int64
	suppliers      map[int]*entity.Supplier
	nextSupplierID int

	nextOrderID    atomic.Int64
	nextPOID       atomic.Int64
	nextMovementID atomic.Int64
}

// productRow is guarded by locks.Lock(product.ID).
type productRow struct {
	product   entity.Product
	movements []entity.StockMovement
	reasons   map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:          sharding.NewLockTable(memoryLockShards),
		products:       make(map[int]*productRow),
		orders:         make(map[int64]*entity.Order),
		orderKeys:      make(map[string]int64),
		purchaseOrders: make(map[int64]*entity.PurchaseOrder),
		poKeys:         make(map[string]int64),
		suppliers:      make(map[int]*entity.Supplier),
	}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) row(id int) (*productRow, bool) {
	s.productsMu.RLock()
	defer s.productsMu.RUnlock()
	r, ok := s.products[id]
	return r, ok
}

// readProduct copies a committed product row under its lock.
func (s *MemoryStore) readProduct(id int) (entity.Product, error) {
	r, ok := s.row(id)
	if !ok {
		return entity.Product{}, entity.ErrProductNotFound
	}
	unlock := s.locks.Lock(id)
	defer unlock()
	return r.product, nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	s.productsMu.Lock()
	defer s.productsMu.Unlock()

	for _, r := range s.products {
		if r.product.Reference == product.Reference {
			return nil, fmt.Errorf("%w: reference %s already exists", entity.ErrValidation, product.Reference)
		}
	}

	s.nextProductID++
	product.ID = s.nextProductID
	product.Version = 0
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = &productRow{product: *product, reasons: make(map[string]struct{})}

	out := *product
	return &out, nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	r, ok := s.row(product.ID)
	if !ok {
		return nil, entity.ErrProductNotFound
	}

	unlock := s.locks.Lock(product.ID)
	defer unlock()

	r.product.Reference = product.Reference
	r.product.Name = product.Name
	r.product.Price = product.Price
	r.product.IsActive = product.IsActive
	r.product.UpdatedAt = time.Now().UTC()

	out := r.product
	return &out, nil
}

func (s *MemoryStore) GetProductByID(ctx context.Context, id int) (*entity.Product, error) {
	p, err := s.readProduct(id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MemoryStore) GetProducts(ctx context.Context) ([]*entity.Product, error) {
	s.productsMu.RLock()
	ids := make([]int, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	s.productsMu.RUnlock()
	sort.Ints(ids)

	products := make([]*entity.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.readProduct(id)
		if err != nil {
			return nil, err
		}
		products = append(products, &p)
	}
	return products, nil
}

func (s *MemoryStore) ListMovements(ctx context.Context, productID int) ([]*entity.StockMovement, error) {
	r, ok := s.row(productID)
	if !ok {
		return nil, entity.ErrProductNotFound
	}
	unlock := s.locks.Lock(productID)
	defer unlock()

	movements := make([]*entity.StockMovement, 0, len(r.movements))
	for i := range r.movements {
		m := r.movements[i]
		movements = append(movements, &m)
	}
	return movements, nil
}

func (s *MemoryStore) GetOrderByID(ctx context.Context, id int64) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (s *MemoryStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.orderKeys[key]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	return copyOrder(s.orders[id]), nil
}

func (s *MemoryStore) ListOrders(ctx context.Context, filter entity.OrderFilter) ([]*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*entity.Order, 0)
	for _, o := range s.orders {
		if filter.Match(o) {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (s *MemoryStore) GetPurchaseOrderByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	po, ok := s.purchaseOrders[id]
	if !ok {
		return nil, entity.ErrPurchaseOrderNotFound
	}
	return copyPurchaseOrder(po), nil
}

func (s *MemoryStore) GetPurchaseOrderByIdempotencyKey(ctx context.Context, key string) (*entity.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.poKeys[key]
	if !ok {
		return nil, entity.ErrPurchaseOrderNotFound
	}
	return copyPurchaseOrder(s.purchaseOrders[id]), nil
}

func (s *MemoryStore) ListPurchaseOrders(ctx context.Context, filter entity.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos := make([]*entity.PurchaseOrder, 0)
	for _, po := range s.purchaseOrders {
		if filter.Match(po) {
			pos = append(pos, copyPurchaseOrder(po))
		}
	}
	sort.Slice(pos, func(i, j int) bool { return pos[i].ID > pos[j].ID })
	return pos, nil
}

func (s *MemoryStore) CreateSupplier(ctx context.Context, supplier *entity.Supplier) (*entity.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSupplierID++
	supplier.ID = s.nextSupplierID
	supplier.CreatedAt = time.Now().UTC()
	if supplier.Specialties == nil {
		supplier.Specialties = []string{}
	}
	s.suppliers[supplier.ID] = copySupplier(supplier)
	return copySupplier(supplier), nil
}

func (s *MemoryStore) GetSupplierByID(ctx context.Context, id int) (*entity.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, entity.ErrSupplierNotFound
	}
	return copySupplier(supplier), nil
}

func (s *MemoryStore) GetSuppliers(ctx context.Context) ([]*entity.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]*entity.Supplier, 0, len(s.suppliers))
	for _, supplier := range s.suppliers {
		suppliers = append(suppliers, copySupplier(supplier))
	}
	sort.Slice(suppliers, func(i, j int) bool { return suppliers[i].Name < suppliers[j].Name })
	return suppliers, nil
}

func copyOrder(o *entity.Order) *entity.Order {
	out := *o
	out.Lines = append([]entity.OrderLine(nil), o.Lines...)
	if o.DeliveryCost != nil {
		cost := *o.DeliveryCost
		out.DeliveryCost = &cost
	}
	return &out
}

func copyPurchaseOrder(po *entity.PurchaseOrder) *entity.PurchaseOrder {
	out := *po
	out.Lines = make([]entity.PurchaseOrderLine, len(po.Lines))
	for i, l := range po.Lines {
		if l.ProductID != nil {
			pid := *l.ProductID
			l.ProductID = &pid
		}
		out.Lines[i] = l
	}
	if po.OrderID != nil {
		id := *po.OrderID
		out.OrderID = &id
	}
	if po.DateLivraisonPrevue != nil {
		d := *po.DateLivraisonPrevue
		out.DateLivraisonPrevue = &d
	}
	return &out
}

func copySupplier(s *entity.Supplier) *entity.Supplier {
	out := *s
	out.Specialties = make([]string, len(s.Specialties))
	copy(out.Specialties, s.Specialties)
	return &out
}
