package api

import (
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/auth"
	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Orders         *OrderHandler
	PurchaseOrders *PurchaseOrderHandler
	Carts          *CartHandler
	Products       *ProductHandler
	Suppliers      *SupplierHandler
}

// RegisterRoutes mounts every route. All of them except /health need a
// bearer token signed with jwtSecret.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "pneushop",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	g := e.Group("", auth.Middleware(jwtSecret))
	admin := auth.RequireAdmin

	g.POST("/orders", h.Orders.CreateOrder)
	g.GET("/orders", h.Orders.ListOrders)
	g.GET("/orders/:id", h.Orders.GetOrder)
	g.PATCH("/orders/:id", h.Orders.UpdateOrder)

	g.POST("/purchase-orders", h.PurchaseOrders.CreatePurchaseOrder, admin)
	g.GET("/purchase-orders", h.PurchaseOrders.ListPurchaseOrders, admin)
	g.GET("/purchase-orders/:id", h.PurchaseOrders.GetPurchaseOrder, admin)
	g.PATCH("/purchase-orders/:id", h.PurchaseOrders.UpdatePurchaseOrder, admin)

	g.GET("/cart", h.Carts.GetCart)
	g.DELETE("/cart", h.Carts.ClearCart)
	g.POST("/cart/items", h.Carts.AddItem)
	g.PATCH("/cart/items/:product_id", h.Carts.SetItem)
	g.DELETE("/cart/items/:product_id", h.Carts.RemoveItem)
	g.POST("/cart/checkout", h.Carts.Checkout)

	g.GET("/products", h.Products.GetProducts)
	g.POST("/products", h.Products.CreateProduct, admin)
	g.POST("/products/warmup-cache", h.Products.PreWarmupCache, admin)
	g.GET("/products/:id", h.Products.GetProduct)
	g.PATCH("/products/:id", h.Products.UpdateProduct, admin)
	g.GET("/products/:id/stock", h.Products.GetProductStock)
	g.POST("/products/:id/stock-adjustments", h.Products.AdjustStock, admin)
	g.GET("/products/:id/movements", h.Products.GetMovements, admin)

	g.POST("/suppliers", h.Suppliers.CreateSupplier, admin)
	g.GET("/suppliers", h.Suppliers.GetSuppliers, admin)
	g.GET("/suppliers/:id", h.Suppliers.GetSupplier, admin)
}
