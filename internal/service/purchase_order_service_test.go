package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestCreatePurchaseOrderComputesTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "BR-195-65-R15", 90, 7)
	sup := f.supplier(t, "Pneus du Sahel")
	svc := NewPurchaseOrderService(f.deps)

	po, replayed, err := svc.Create(ctx, CreatePurchaseOrderInput{
		SupplierID: sup.ID,
		Lines: []entity.PurchaseOrderLine{
			{ProductID: intPtr(p.ID), Quantity: 5, UnitPrice: decimal.NewFromInt(60)},
			{Designation: "Valves", Quantity: 10, UnitPrice: decimal.RequireFromString("1.5")},
		},
		IdempotencyKey: "po-1",
	})
	require.NoError(t, err)
	assert.False(t, replayed)

	assert.Equal(t, entity.PurchaseOrderPending, po.Status)
	assert.True(t, decimal.NewFromInt(315).Equal(po.TotalHT), po.TotalHT.String())
	assert.True(t, decimal.RequireFromString("374.85").Equal(po.TotalTTC), po.TotalTTC.String())
	assert.Equal(t, p.Reference, po.Lines[0].Reference)
	assert.Equal(t, p.Name, po.Lines[0].Designation)
	assert.True(t, decimal.NewFromInt(300).Equal(po.Lines[0].LineTotal))
	assert.Regexp(t, `^BC-\d{8}-[0-9A-F]{8}$`, po.InvoiceNumber)

	// no stock moves before confirmation
	assert.Equal(t, 7, f.stock(t, p.ID))

	again, replayed, err := svc.Create(ctx, CreatePurchaseOrderInput{
		SupplierID:     sup.ID,
		Lines:          []entity.PurchaseOrderLine{{Designation: "x", Quantity: 1}},
		IdempotencyKey: "po-1",
	})
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, po.ID, again.ID)
}

func TestCreatePurchaseOrderValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sup := f.supplier(t, "S")
	svc := NewPurchaseOrderService(f.deps)
	line := entity.PurchaseOrderLine{Designation: "x", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}

	_, _, err := svc.Create(ctx, CreatePurchaseOrderInput{SupplierID: sup.ID})
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, _, err = svc.Create(ctx, CreatePurchaseOrderInput{SupplierID: 99, Lines: []entity.PurchaseOrderLine{line}})
	assert.ErrorIs(t, err, entity.ErrSupplierNotFound)

	bad := line
	bad.Quantity = 0
	_, _, err = svc.Create(ctx, CreatePurchaseOrderInput{SupplierID: sup.ID, Lines: []entity.PurchaseOrderLine{bad}})
	assert.ErrorIs(t, err, entity.ErrValidation)

	bad = line
	bad.UnitPrice = decimal.NewFromInt(-2)
	_, _, err = svc.Create(ctx, CreatePurchaseOrderInput{SupplierID: sup.ID, Lines: []entity.PurchaseOrderLine{bad}})
	assert.ErrorIs(t, err, entity.ErrValidation)

	ordered := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	expected := ordered.AddDate(0, 0, -1)
	_, _, err = svc.Create(ctx, CreatePurchaseOrderInput{
		SupplierID:          sup.ID,
		Lines:               []entity.PurchaseOrderLine{line},
		DateCommande:        &ordered,
		DateLivraisonPrevue: &expected,
	})
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestConfirmPurchaseOrderAddsStockOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "A", 90, 7)
	sup := f.supplier(t, "S")
	svc := NewPurchaseOrderService(f.deps)

	po, _, err := svc.Create(ctx, CreatePurchaseOrderInput{
		SupplierID: sup.ID,
		Lines: []entity.PurchaseOrderLine{
			{ProductID: intPtr(p.ID), Quantity: 2, UnitPrice: decimal.NewFromInt(60)},
			{ProductID: intPtr(p.ID), Quantity: 3, UnitPrice: decimal.NewFromInt(60)},
			{Designation: "Montage", Quantity: 1, UnitPrice: decimal.NewFromInt(20)},
		},
	})
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, po.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderConfirmed, confirmed.Status)
	assert.Equal(t, 12, f.stock(t, p.ID))

	_, err = svc.Confirm(ctx, po.ID, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	assert.Equal(t, 12, f.stock(t, p.ID))

	movements, err := f.store.ListMovements(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.ReceiptReason(po.ID), movements[0].Reason)
	assert.Equal(t, 5, movements[0].Delta)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, eventOfType(entity.EventPurchaseOrderConfirmed))
	assert.Contains(t, f.cache.deleted, p.ID)

	delivered, err := svc.Apply(ctx, po.ID, entity.PurchaseOrderDelivered, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderDelivered, delivered.Status)
	assert.Equal(t, 12, f.stock(t, p.ID))
}

func TestConfirmPurchaseOrderReassignsSupplier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.supplier(t, "First")
	second := f.supplier(t, "Second")
	svc := NewPurchaseOrderService(f.deps)

	po, _, err := svc.Create(ctx, CreatePurchaseOrderInput{
		SupplierID: first.ID,
		Lines:      []entity.PurchaseOrderLine{{Designation: "x", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, po.ID, intPtr(404))
	assert.ErrorIs(t, err, entity.ErrSupplierNotFound)

	confirmed, err := svc.Confirm(ctx, po.ID, intPtr(second.ID))
	require.NoError(t, err)
	assert.Equal(t, second.ID, confirmed.SupplierID)

	list, err := svc.List(ctx, entity.PurchaseOrderFilter{SupplierID: second.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, po.ID, list[0].ID)
}

func TestConfirmPurchaseOrderRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.product(t, "A", 90, 7)
	b := f.product(t, "B", 90, 3)
	sup := f.supplier(t, "S")
	svc := NewPurchaseOrderService(f.deps)

	po, _, err := svc.Create(ctx, CreatePurchaseOrderInput{
		SupplierID: sup.ID,
		Lines: []entity.PurchaseOrderLine{
			{ProductID: intPtr(a.ID), Quantity: 4, UnitPrice: decimal.NewFromInt(60)},
			{ProductID: intPtr(b.ID), Quantity: 4, UnitPrice: decimal.NewFromInt(60)},
		},
	})
	require.NoError(t, err)

	// A movement with the receipt reason already exists on b, so the second
	// line fails after the first one was staged.
	require.NoError(t, f.store.WithinTx(ctx, func(tx repository.Tx) error {
		_, err := tx.AdjustStock(ctx, b.ID, 1, entity.ReceiptReason(po.ID))
		return err
	}))

	_, err = svc.Confirm(ctx, po.ID, nil)
	require.ErrorIs(t, err, entity.ErrDuplicateMovement)

	assert.Equal(t, 7, f.stock(t, a.ID))
	assert.Equal(t, 4, f.stock(t, b.ID))
	stored, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderPending, stored.Status)
}

func TestPurchaseOrderRejectsOverflowingQuantities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "A", 90, 7)
	sup := f.supplier(t, "S")
	svc := NewPurchaseOrderService(f.deps)

	_, _, err := svc.Create(ctx, CreatePurchaseOrderInput{
		SupplierID: sup.ID,
		Lines: []entity.PurchaseOrderLine{
			{ProductID: intPtr(p.ID), Quantity: math.MaxInt, UnitPrice: decimal.NewFromInt(1)},
			{ProductID: intPtr(p.ID), Quantity: math.MaxInt, UnitPrice: decimal.NewFromInt(1)},
		},
	})
	require.ErrorIs(t, err, entity.ErrValidation)

	_, _, err = svc.Create(ctx, CreatePurchaseOrderInput{
		SupplierID: sup.ID,
		Lines: []entity.PurchaseOrderLine{
			{ProductID: intPtr(p.ID), Quantity: entity.MaxLineQuantity, UnitPrice: decimal.NewFromInt(1)},
			{ProductID: intPtr(p.ID), Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
		},
	})
	require.ErrorIs(t, err, entity.ErrValidation)

	pos, err := svc.List(ctx, entity.PurchaseOrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, pos)
}

func TestConfirmPurchaseOrderRejectsOverflowingReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "A", 90, 7)
	sup := f.supplier(t, "S")
	svc := NewPurchaseOrderService(f.deps)

	// stored directly, bypassing the checks in Create
	po := &entity.PurchaseOrder{
		SupplierID: sup.ID,
		Status:     entity.PurchaseOrderPending,
		Lines: []entity.PurchaseOrderLine{
			{ProductID: intPtr(p.ID), Quantity: math.MaxInt},
			{ProductID: intPtr(p.ID), Quantity: math.MaxInt},
		},
		InvoiceNumber:  "BC-20260101-LEGACY01",
		IdempotencyKey: "legacy-1",
		DateCommande:   time.Now().UTC(),
	}
	require.NoError(t, f.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.CreatePurchaseOrder(ctx, po)
	}))

	_, err := svc.Confirm(ctx, po.ID, nil)
	require.ErrorIs(t, err, entity.ErrValidation)
	assert.Equal(t, 7, f.stock(t, p.ID))

	stored, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderPending, stored.Status)
}

func TestCancelPurchaseOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "A", 90, 7)
	sup := f.supplier(t, "S")
	svc := NewPurchaseOrderService(f.deps)

	po, _, err := svc.Create(ctx, CreatePurchaseOrderInput{
		SupplierID: sup.ID,
		Lines:      []entity.PurchaseOrderLine{{ProductID: intPtr(p.ID), Quantity: 4, UnitPrice: decimal.NewFromInt(60)}},
	})
	require.NoError(t, err)

	cancelled, err := svc.Apply(ctx, po.ID, entity.PurchaseOrderCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderCancelled, cancelled.Status)

	_, err = svc.Confirm(ctx, po.ID, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	assert.Equal(t, 7, f.stock(t, p.ID))
}

func TestCreatePurchaseOrderReleasesKeyAfterDeadline(t *testing.T) {
	f := newFixture(t)
	sup := f.supplier(t, "S")
	in := CreatePurchaseOrderInput{
		SupplierID:     sup.ID,
		Lines:          []entity.PurchaseOrderLine{{Designation: "Valves", Quantity: 10, UnitPrice: decimal.NewFromInt(1)}},
		IdempotencyKey: "po-retry",
	}

	ctx, cancel := context.WithCancel(context.Background())
	deps := f.deps
	deps.Keys = &claimThenExpire{Store: f.keys, cancel: cancel}

	_, _, err := NewPurchaseOrderService(deps).Create(ctx, in)
	require.ErrorIs(t, err, entity.ErrTransportFailure)

	po, replayed, err := NewPurchaseOrderService(f.deps).Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, entity.PurchaseOrderPending, po.Status)
}
