package api

import (
	"net/http"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/auth"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/cart"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/service"
	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	carts        cart.Store
	orderService *service.OrderService
}

func NewCartHandler(carts cart.Store, orderService *service.OrderService) *CartHandler {
	return &CartHandler{carts: carts, orderService: orderService}
}

type checkoutRequest struct {
	ShippingAddress string               `json:"shipping_address"`
	PaymentMethod   entity.PaymentMethod `json:"payment_method"`
}

func (h *CartHandler) respond(c echo.Context, userID int) error {
	current, err := h.carts.Get(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, current)
}

// GetCart --> GET /cart
func (h *CartHandler) GetCart(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	return h.respond(c, claims.UserID)
}

// AddItem adds quantity to a cart line --> POST /cart/items
func (h *CartHandler) AddItem(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	item := entity.CartItem{}
	if err := c.Bind(&item); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	if err := h.carts.AddItem(c.Request().Context(), claims.UserID, item.ProductID, item.Quantity); err != nil {
		return writeError(c, err)
	}
	return h.respond(c, claims.UserID)
}

// SetItem replaces the quantity of a cart line --> PATCH /cart/items/:product_id
func (h *CartHandler) SetItem(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	productID, ok := paramInt(c, "product_id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	req := struct {
		Quantity int `json:"quantity"`
	}{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	if err := h.carts.SetItem(c.Request().Context(), claims.UserID, productID, req.Quantity); err != nil {
		return writeError(c, err)
	}
	return h.respond(c, claims.UserID)
}

// RemoveItem --> DELETE /cart/items/:product_id
func (h *CartHandler) RemoveItem(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	productID, ok := paramInt(c, "product_id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	if err := h.carts.RemoveItem(c.Request().Context(), claims.UserID, productID); err != nil {
		return writeError(c, err)
	}
	return h.respond(c, claims.UserID)
}

// ClearCart --> DELETE /cart
func (h *CartHandler) ClearCart(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.carts.Clear(c.Request().Context(), claims.UserID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout submits the stored cart --> POST /cart/checkout
func (h *CartHandler) Checkout(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	req := checkoutRequest{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	order, replayed, err := h.orderService.Checkout(c.Request().Context(), claims.UserID, req.ShippingAddress, req.PaymentMethod, idempotencyKey(c))
	if err != nil {
		return writeError(c, err)
	}
	return created(c, replayed, order)
}
