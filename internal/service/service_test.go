package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/cart"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/idempotency"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/pricing"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/repository"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *repository.MemoryStore
	carts     *cart.LocalStore
	keys      *idempotency.MemoryStore
	publisher *MockPublisher
	cache     *memoryStockCache
	deps      Dependencies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		carts:     cart.NewLocalStore(),
		keys:      idempotency.NewMemoryStore(time.Hour),
		publisher: new(MockPublisher),
		cache:     newMemoryStockCache(),
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.deps = Dependencies{
		Store:      f.store,
		Carts:      f.carts,
		Keys:       f.keys,
		Publisher:  f.publisher,
		StockCache: f.cache,
		Pricing:    pricing.NewCalculator(0.19),
		Retry: retry.Config{
			MaxAttempts:  20,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   1.5,
		},
	}
	return f
}

func (f *fixture) product(t *testing.T, ref string, price int64, stock int) *entity.Product {
	t.Helper()
	p, err := f.store.CreateProduct(context.Background(), &entity.Product{
		Reference: ref,
		Name:      "Pneu " + ref,
		Price:     decimal.NewFromInt(price),
		Stock:     stock,
		IsActive:  true,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) supplier(t *testing.T, name string) *entity.Supplier {
	t.Helper()
	s, err := f.store.CreateSupplier(context.Background(), &entity.Supplier{Name: name, Rating: 4})
	require.NoError(t, err)
	return s
}

func (f *fixture) stock(t *testing.T, productID int) int {
	t.Helper()
	p, err := f.store.GetProductByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

// memoryStockCache is an in-process StockCache.
type memoryStockCache struct {
	mu       sync.Mutex
	products map[int]entity.Product
	deleted  []int
}

func newMemoryStockCache() *memoryStockCache {
	return &memoryStockCache{products: make(map[int]entity.Product)}
}

func (c *memoryStockCache) Get(ctx context.Context, productID int) (*entity.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *memoryStockCache) Set(ctx context.Context, product *entity.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[product.ID] = *product
	return nil
}

func (c *memoryStockCache) Delete(ctx context.Context, productIDs ...int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range productIDs {
		delete(c.products, id)
		c.deleted = append(c.deleted, id)
	}
	return nil
}

// claimThenExpire lets the claim through and then ends the request context,
// as a deadline running out mid-request does.
type claimThenExpire struct {
	idempotency.Store
	cancel context.CancelFunc
}

func (k *claimThenExpire) Claim(ctx context.Context, scope, key string) (bool, error) {
	claimed, err := k.Store.Claim(ctx, scope, key)
	k.cancel()
	return claimed, err
}
