package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
)

// memoryTx stages writes and applies them in commit.
type memoryTx struct {
	s *MemoryStore

	stock map[int]*stagedStock

	newOrders    []*entity.Order
	orderUpdates map[int64]orderUpdate

	newPurchaseOrders []*entity.PurchaseOrder
	poUpdates         map[int64]purchaseOrderUpdate
}

type stagedStock struct {
	baseVersion int64
	stock       int
	movements   []entity.StockMovement
}

type orderUpdate struct {
	order *entity.Order
	from  entity.OrderStatus
}

type purchaseOrderUpdate struct {
	po   *entity.PurchaseOrder
	from entity.PurchaseOrderStatus
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memoryTx{
		s:            s,
		stock:        make(map[int]*stagedStock),
		orderUpdates: make(map[int64]orderUpdate),
		poUpdates:    make(map[int64]purchaseOrderUpdate),
	}

	if err := fn(tx); err != nil {
		return err
	}
	// A request that timed out must not commit.
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (t *memoryTx) GetProductByID(ctx context.Context, id int) (*entity.Product, error) {
	p, err := t.s.readProduct(id)
	if err != nil {
		return nil, err
	}
	if st, ok := t.stock[id]; ok {
		p.Stock = st.stock
	}
	return &p, nil
}

func (t *memoryTx) AdjustStock(ctx context.Context, productID int, delta int, reason string) (int, error) {
	if delta == 0 {
		return 0, fmt.Errorf("%w: stock delta must not be zero", entity.ErrValidation)
	}

	st, ok := t.stock[productID]
	if !ok {
		r, found := t.s.row(productID)
		if !found {
			return 0, entity.ErrProductNotFound
		}
		unlock := t.s.locks.Lock(productID)
		_, applied := r.reasons[reason]
		st = &stagedStock{baseVersion: r.product.Version, stock: r.product.Stock}
		unlock()

		if applied {
			return 0, fmt.Errorf("%w: %s on product %d", entity.ErrDuplicateMovement, reason, productID)
		}
	}

	for _, m := range st.movements {
		if m.Reason == reason {
			return 0, fmt.Errorf("%w: %s on product %d", entity.ErrDuplicateMovement, reason, productID)
		}
	}

	newStock := st.stock + delta
	if newStock < 0 {
		return st.stock, fmt.Errorf("%w: product %d has %d, requested %d", entity.ErrInsufficientStock, productID, st.stock, -delta)
	}

	st.movements = append(st.movements, entity.StockMovement{
		ProductID:   productID,
		Delta:       delta,
		StockBefore: st.stock,
		StockAfter:  newStock,
		Reason:      reason,
	})
	st.stock = newStock
	t.stock[productID] = st
	return newStock, nil
}

func (t *memoryTx) CreateOrder(ctx context.Context, order *entity.Order) error {
	t.s.mu.RLock()
	_, exists := t.s.orderKeys[order.IdempotencyKey]
	t.s.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, order.IdempotencyKey)
	}
	for _, o := range t.newOrders {
		if o.IdempotencyKey == order.IdempotencyKey {
			return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, order.IdempotencyKey)
		}
	}

	order.ID = t.s.nextOrderID.Add(1)
	t.newOrders = append(t.newOrders, copyOrder(order))
	return nil
}

func (t *memoryTx) GetOrderByID(ctx context.Context, id int64) (*entity.Order, error) {
	if u, ok := t.orderUpdates[id]; ok {
		return copyOrder(u.order), nil
	}
	for _, o := range t.newOrders {
		if o.ID == id {
			return copyOrder(o), nil
		}
	}
	return t.s.GetOrderByID(ctx, id)
}

func (t *memoryTx) SaveOrderStatus(ctx context.Context, order *entity.Order, from entity.OrderStatus) error {
	current, err := t.GetOrderByID(ctx, order.ID)
	if err != nil {
		return err
	}
	if current.Status != from {
		return fmt.Errorf("%w: order %d is no longer %s", entity.ErrInvalidTransition, order.ID, from)
	}

	order.UpdatedAt = time.Now().UTC()
	// Keep the status the committed row must still have.
	if prev, ok := t.orderUpdates[order.ID]; ok {
		from = prev.from
	}
	t.orderUpdates[order.ID] = orderUpdate{order: copyOrder(order), from: from}
	return nil
}

func (t *memoryTx) CreatePurchaseOrder(ctx context.Context, po *entity.PurchaseOrder) error {
	t.s.mu.RLock()
	_, exists := t.s.poKeys[po.IdempotencyKey]
	t.s.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, po.IdempotencyKey)
	}

	po.ID = t.s.nextPOID.Add(1)
	t.newPurchaseOrders = append(t.newPurchaseOrders, copyPurchaseOrder(po))
	return nil
}

func (t *memoryTx) GetPurchaseOrderByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	if u, ok := t.poUpdates[id]; ok {
		return copyPurchaseOrder(u.po), nil
	}
	for _, po := range t.newPurchaseOrders {
		if po.ID == id {
			return copyPurchaseOrder(po), nil
		}
	}
	return t.s.GetPurchaseOrderByID(ctx, id)
}

func (t *memoryTx) SavePurchaseOrderStatus(ctx context.Context, po *entity.PurchaseOrder, from entity.PurchaseOrderStatus) error {
	current, err := t.GetPurchaseOrderByID(ctx, po.ID)
	if err != nil {
		return err
	}
	if current.Status != from {
		return fmt.Errorf("%w: purchase order %d is no longer %s", entity.ErrInvalidTransition, po.ID, from)
	}

	po.UpdatedAt = time.Now().UTC()
	if prev, ok := t.poUpdates[po.ID]; ok {
		from = prev.from
	}
	t.poUpdates[po.ID] = purchaseOrderUpdate{po: copyPurchaseOrder(po), from: from}
	return nil
}

func (t *memoryTx) GetSupplierByID(ctx context.Context, id int) (*entity.Supplier, error) {
	return t.s.GetSupplierByID(ctx, id)
}

// commit locks the staged products in id order, then the order tables,
// re-validates everything read during the unit of work and applies it.
func (t *memoryTx) commit() error {
	ids := make([]int, 0, len(t.stock))
	for id := range t.stock {
		ids = append(ids, id)
	}
	unlockProducts := t.s.locks.LockAll(ids)
	defer unlockProducts()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	rows := make(map[int]*productRow, len(ids))
	for _, id := range ids {
		r, ok := t.s.row(id)
		if !ok {
			return entity.ErrProductNotFound
		}
		st := t.stock[id]
		if r.product.Version != st.baseVersion {
			return fmt.Errorf("%w: product %d", entity.ErrStaleWrite, id)
		}
		for _, m := range st.movements {
			if _, dup := r.reasons[m.Reason]; dup {
				return fmt.Errorf("%w: %s on product %d", entity.ErrDuplicateMovement, m.Reason, id)
			}
		}
		rows[id] = r
	}
	for _, o := range t.newOrders {
		if _, dup := t.s.orderKeys[o.IdempotencyKey]; dup {
			return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, o.IdempotencyKey)
		}
	}
	for id, u := range t.orderUpdates {
		if committed, ok := t.s.orders[id]; ok && committed.Status != u.from {
			return fmt.Errorf("%w: order %d is no longer %s", entity.ErrInvalidTransition, id, u.from)
		}
	}
	for _, po := range t.newPurchaseOrders {
		if _, dup := t.s.poKeys[po.IdempotencyKey]; dup {
			return fmt.Errorf("%w: %s", entity.ErrDuplicateKey, po.IdempotencyKey)
		}
	}
	for id, u := range t.poUpdates {
		if committed, ok := t.s.purchaseOrders[id]; ok && committed.Status != u.from {
			return fmt.Errorf("%w: purchase order %d is no longer %s", entity.ErrInvalidTransition, id, u.from)
		}
	}

	now := time.Now().UTC()
	for id, r := range rows {
		st := t.stock[id]
		if st.stock < 0 {
			panic(fmt.Sprintf("stock invariant violated: product %d would commit stock %d", id, st.stock))
		}
		r.product.Stock = st.stock
		r.product.Version++
		r.product.UpdatedAt = now
		for _, m := range st.movements {
			m.ID = t.s.nextMovementID.Add(1)
			m.CreatedAt = now
			r.movements = append(r.movements, m)
			r.reasons[m.Reason] = struct{}{}
		}
	}
	for _, o := range t.newOrders {
		t.s.orders[o.ID] = o
		t.s.orderKeys[o.IdempotencyKey] = o.ID
	}
	for id, u := range t.orderUpdates {
		t.s.orders[id] = u.order
	}
	for _, po := range t.newPurchaseOrders {
		t.s.purchaseOrders[po.ID] = po
		t.s.poKeys[po.IdempotencyKey] = po.ID
	}
	for id, u := range t.poUpdates {
		t.s.purchaseOrders[id] = u.po
	}
	return nil
}
