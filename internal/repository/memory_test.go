package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s *MemoryStore, ref string, stock int) *entity.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), &entity.Product{
		Reference: ref,
		Name:      "Pneu " + ref,
		Price:     decimal.NewFromInt(120),
		Stock:     stock,
		IsActive:  true,
	})
	require.NoError(t, err)
	return p
}

func stockOf(t *testing.T, s *MemoryStore, id int) int {
	t.Helper()
	p, err := s.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestAdjustStockCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "GY-225-45-R17", 10)

	err := s.WithinTx(ctx, func(tx Tx) error {
		n, err := tx.AdjustStock(ctx, p.ID, -3, "order:1")
		require.NoError(t, err)
		assert.Equal(t, 7, n)

		seen, err := tx.GetProductByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, seen.Stock, "unit of work reads its own writes")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 7, stockOf(t, s, p.ID))

	movements, err := s.ListMovements(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, -3, movements[0].Delta)
	assert.Equal(t, 10, movements[0].StockBefore)
	assert.Equal(t, 7, movements[0].StockAfter)
	assert.Equal(t, "order:1", movements[0].Reason)
}

func TestAdjustStockRejectsNegative(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "PIR-P7", 2)

	err := s.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.AdjustStock(ctx, p.ID, -3, "order:1")
		return err
	})

	assert.ErrorIs(t, err, entity.ErrInsufficientStock)
	assert.Equal(t, 2, stockOf(t, s, p.ID))
}

func TestErrorRollsBackEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := seedProduct(t, s, "A", 5)
	b := seedProduct(t, s, "B", 1)

	err := s.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.AdjustStock(ctx, a.ID, -2, "order:9"); err != nil {
			return err
		}
		_, err := tx.AdjustStock(ctx, b.ID, -2, "order:9")
		return err
	})

	assert.ErrorIs(t, err, entity.ErrInsufficientStock)
	assert.Equal(t, 5, stockOf(t, s, a.ID))
	assert.Equal(t, 1, stockOf(t, s, b.ID))

	movements, err := s.ListMovements(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestDuplicateReasonIsRejected(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "CONT-1", 7)

	confirm := func() error {
		return s.WithinTx(ctx, func(tx Tx) error {
			_, err := tx.AdjustStock(ctx, p.ID, 5, "purchase_order:3")
			return err
		})
	}

	require.NoError(t, confirm())
	assert.ErrorIs(t, confirm(), entity.ErrDuplicateMovement)
	assert.Equal(t, 12, stockOf(t, s, p.ID))

	err := s.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.AdjustStock(ctx, p.ID, 1, "adjust:x"); err != nil {
			return err
		}
		_, err := tx.AdjustStock(ctx, p.ID, 1, "adjust:x")
		return err
	})
	assert.ErrorIs(t, err, entity.ErrDuplicateMovement)
	assert.Equal(t, 12, stockOf(t, s, p.ID))
}

func TestConcurrentWriterCausesStaleWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "DUN-1", 5)

	err := s.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.AdjustStock(ctx, p.ID, -1, "order:1"); err != nil {
			return err
		}
		// another request commits on the same product meanwhile
		inner := s.WithinTx(ctx, func(tx2 Tx) error {
			_, err := tx2.AdjustStock(ctx, p.ID, -4, "order:2")
			return err
		})
		require.NoError(t, inner)
		return nil
	})

	assert.ErrorIs(t, err, entity.ErrStaleWrite)
	assert.Equal(t, 1, stockOf(t, s, p.ID), "only the committed writer is visible")
}

func TestConcurrentDecrementsNeverOversell(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "HANK-1", 20)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				err := s.WithinTx(ctx, func(tx Tx) error {
					_, err := tx.AdjustStock(ctx, p.ID, -1, entity.SaleReason(int64(i)))
					return err
				})
				if errors.Is(err, entity.ErrStaleWrite) {
					continue
				}
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
				return
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, succeeded)
	assert.Equal(t, 0, stockOf(t, s, p.ID))
}

func TestCreateOrderDuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	create := func() (*entity.Order, error) {
		o := &entity.Order{UserID: 1, Status: entity.OrderPending, IdempotencyKey: "key-1", Lines: []entity.OrderLine{{ProductID: 1, Quantity: 1}}}
		err := s.WithinTx(ctx, func(tx Tx) error { return tx.CreateOrder(ctx, o) })
		return o, err
	}

	first, err := create()
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = create()
	assert.ErrorIs(t, err, entity.ErrDuplicateKey)

	found, err := s.GetOrderByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestSaveOrderStatusIsGuarded(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	o := &entity.Order{UserID: 1, Status: entity.OrderPending, IdempotencyKey: "k"}
	require.NoError(t, s.WithinTx(ctx, func(tx Tx) error { return tx.CreateOrder(ctx, o) }))

	approve := func() error {
		return s.WithinTx(ctx, func(tx Tx) error {
			current, err := tx.GetOrderByID(ctx, o.ID)
			if err != nil {
				return err
			}
			current.Status = entity.OrderProcessing
			return tx.SaveOrderStatus(ctx, current, entity.OrderPending)
		})
	}

	require.NoError(t, approve())
	assert.ErrorIs(t, approve(), entity.ErrInvalidTransition)

	stored, err := s.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderProcessing, stored.Status)
}

func TestCancelledContextDoesNotCommit(t *testing.T) {
	s := NewMemoryStore()
	p := seedProduct(t, s, "TIMEOUT", 3)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.AdjustStock(ctx, p.ID, -1, "order:1")
		cancel()
		return err
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, stockOf(t, s, p.ID))
}

func TestUpdateProductKeepsStock(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "META", 4)

	p.Name = "Renamed"
	p.Stock = 999
	updated, err := s.UpdateProduct(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 4, updated.Stock)
}

func TestDuplicateReference(t *testing.T) {
	s := NewMemoryStore()
	seedProduct(t, s, "SAME", 1)
	_, err := s.CreateProduct(context.Background(), &entity.Product{Reference: "SAME", Name: "x"})
	assert.ErrorIs(t, err, entity.ErrValidation)
}
