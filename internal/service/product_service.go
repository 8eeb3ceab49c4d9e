package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/go-redis/redis/v8"
)

// StockCache holds product snapshots for stock reads. It is advisory: every
// stock write goes through the ledger and drops the cached entry.
type StockCache interface {
	Get(ctx context.Context, productID int) (*entity.Product, bool, error)
	Set(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, productIDs ...int) error
}

type RedisStockCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStockCache(rdb redis.Cmdable, ttl time.Duration) *RedisStockCache {
	return &RedisStockCache{rdb: rdb, ttl: ttl}
}

func stockCacheKey(productID int) string {
	return fmt.Sprintf("product:%d", productID)
}

func (c *RedisStockCache) Get(ctx context.Context, productID int) (*entity.Product, bool, error) {
	cached, err := c.rdb.Get(ctx, stockCacheKey(productID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var product entity.Product
	if err := json.Unmarshal([]byte(cached), &product); err != nil {
		return nil, false, err
	}
	return &product, true, nil
}

func (c *RedisStockCache) Set(ctx context.Context, product *entity.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, stockCacheKey(product.ID), data, c.ttl).Err()
}

func (c *RedisStockCache) Delete(ctx context.Context, productIDs ...int) error {
	if len(productIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, stockCacheKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// NopStockCache caches nothing.
type NopStockCache struct{}

func (NopStockCache) Get(context.Context, int) (*entity.Product, bool, error) { return nil, false, nil }
func (NopStockCache) Set(context.Context, *entity.Product) error              { return nil }
func (NopStockCache) Delete(context.Context, ...int) error                    { return nil }

// ProductService manages the catalog. Stock is read here but only written by
// the ledger.
type ProductService struct {
	deps Dependencies
}

// NewProductService creates a new instance of ProductService.
func NewProductService(deps Dependencies) *ProductService {
	return &ProductService{deps: deps.withDefaults()}
}

// CreateProduct adds a catalog product with its opening stock.
func (p *ProductService) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}
	created, err := p.deps.Store.CreateProduct(ctx, product)
	if err != nil {
		logger.Error().Err(err).Msgf("Error creating product %s", product.Reference)
		return nil, classify(err)
	}
	return created, nil
}

// UpdateProduct applies a metadata patch. Stock and version are left as stored.
func (p *ProductService) UpdateProduct(ctx context.Context, id int, patch entity.ProductPatch) (*entity.Product, error) {
	product, err := p.deps.Store.GetProductByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	product.Apply(patch)
	if err := product.Validate(); err != nil {
		return nil, err
	}

	updated, err := p.deps.Store.UpdateProduct(ctx, product)
	if err != nil {
		logger.Error().Err(err).Msgf("Error updating product %d", id)
		return nil, classify(err)
	}
	p.deps.invalidateStock(ctx, []int{id})
	return updated, nil
}

func (p *ProductService) GetProduct(ctx context.Context, id int) (*entity.Product, error) {
	product, err := p.deps.Store.GetProductByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return product, nil
}

func (p *ProductService) GetProducts(ctx context.Context) ([]*entity.Product, error) {
	products, err := p.deps.Store.GetProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting products")
		return nil, classify(err)
	}
	return products, nil
}

// GetProductStock retrieves the stock for a product, cache first. A failing
// cache never fails the read.
func (p *ProductService) GetProductStock(ctx context.Context, productID int) (int, error) {
	cached, ok, err := p.deps.StockCache.Get(ctx, productID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting stock for product %d from cache", productID)
	}
	if ok {
		return cached.Stock, nil
	}

	product, err := p.deps.Store.GetProductByID(ctx, productID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting product by ID %d", productID)
		return 0, classify(err)
	}

	if err := p.deps.StockCache.Set(ctx, product); err != nil {
		logger.Error().Err(err).Msgf("Error setting product %d in cache", productID)
	}
	return product.Stock, nil
}

// InvalidateStock drops cached stock of the given products.
func (p *ProductService) InvalidateStock(ctx context.Context, productIDs ...int) error {
	return p.deps.StockCache.Delete(ctx, productIDs...)
}

// PreWarmCache loads every product into the stock cache.
func (p *ProductService) PreWarmCache(ctx context.Context) error {
	products, err := p.deps.Store.GetProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting products")
		return classify(err)
	}

	for _, product := range products {
		if err := p.deps.StockCache.Set(ctx, product); err != nil {
			logger.Error().Err(err).Msgf("Error setting product %d in cache", product.ID)
		}
	}
	return nil
}
