package api

import (
	"net/http"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/service"
	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	productService *service.ProductService
	ledgerService  *service.LedgerService
}

// NewProductHandler creates a new instance of ProductHandler
func NewProductHandler(productService *service.ProductService, ledgerService *service.LedgerService) *ProductHandler {
	return &ProductHandler{productService: productService, ledgerService: ledgerService}
}

type stockAdjustmentRequest struct {
	Delta     int    `json:"delta"`
	Reference string `json:"reference"`
}

// CreateProduct --> POST /products
func (ph *ProductHandler) CreateProduct(c echo.Context) error {
	product := entity.Product{IsActive: true}
	if err := c.Bind(&product); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	created, err := ph.productService.CreateProduct(c.Request().Context(), &product)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateProduct edits catalog fields, never stock --> PATCH /products/:id
func (ph *ProductHandler) UpdateProduct(c echo.Context) error {
	id, ok := paramInt(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	patch := entity.ProductPatch{}
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	updated, err := ph.productService.UpdateProduct(c.Request().Context(), id, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// GetProducts --> GET /products
func (ph *ProductHandler) GetProducts(c echo.Context) error {
	products, err := ph.productService.GetProducts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct --> GET /products/:id
func (ph *ProductHandler) GetProduct(c echo.Context) error {
	id, ok := paramInt(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	product, err := ph.productService.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// GetProductStock gets the stock of a product --> /products/:id/stock
func (ph *ProductHandler) GetProductStock(c echo.Context) error {
	id, ok := paramInt(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	stock, err := ph.productService.GetProductStock(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"product_id": id, "stock": stock})
}

// AdjustStock books a manual correction --> POST /products/:id/stock-adjustments
func (ph *ProductHandler) AdjustStock(c echo.Context) error {
	id, ok := paramInt(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	req := stockAdjustmentRequest{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	ref := req.Reference
	if ref == "" {
		ref = idempotencyKey(c)
	}

	stock, err := ph.ledgerService.AdjustStock(c.Request().Context(), id, req.Delta, ref)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"product_id": id, "stock": stock})
}

// GetMovements lists the stock audit trail --> GET /products/:id/movements
func (ph *ProductHandler) GetMovements(c echo.Context) error {
	id, ok := paramInt(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	movements, err := ph.ledgerService.Movements(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, movements)
}

// PreWarmupCache pre-warms the stock cache --> POST /products/warmup-cache
func (ph *ProductHandler) PreWarmupCache(c echo.Context) error {
	if err := ph.productService.PreWarmCache(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Cache pre-warmed"})
}
