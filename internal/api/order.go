package api

import (
	"net/http"
	"strconv"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/auth"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

type createOrderRequest struct {
	Items           []entity.CartItem    `json:"items"`
	ShippingAddress string               `json:"shipping_address"`
	PaymentMethod   entity.PaymentMethod `json:"payment_method"`
}

type updateOrderRequest struct {
	Status       string           `json:"status"`
	DeliveryCost *decimal.Decimal `json:"delivery_cost"`
}

// CreateOrder submits an order for the caller --> POST /orders
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	req := createOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	order, replayed, err := h.orderService.SubmitOrder(c.Request().Context(), service.SubmitOrderInput{
		UserID:          claims.UserID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  idempotencyKey(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return created(c, replayed, order)
}

// UpdateOrder moves an order to a new status --> PATCH /orders/:id
// Admins drive every transition; owners may only cancel their pending orders.
func (h *OrderHandler) UpdateOrder(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return badRequest(c, "Invalid ID")
	}
	req := updateOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	status, err := entity.ParseOrderStatus(req.Status)
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	var order *entity.Order
	switch {
	case claims.IsAdmin():
		order, err = h.orderService.Apply(ctx, id, status, req.DeliveryCost)
	case status == entity.OrderCancelled:
		order, err = h.orderService.CustomerCancel(ctx, id, claims.UserID)
	default:
		return writeError(c, entity.ErrForbidden)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// GetOrder --> GET /orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}
	id, ok := paramInt64(c, "id")
	if !ok {
		return badRequest(c, "Invalid ID")
	}

	order, err := h.orderService.GetOrder(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if !claims.IsAdmin() && order.UserID != claims.UserID {
		return writeError(c, entity.ErrForbidden)
	}
	return c.JSON(http.StatusOK, order)
}

// ListOrders --> GET /orders?status=&user_id=
// Customers only ever see their own orders.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	claims, err := auth.ClaimsFromContext(c)
	if err != nil {
		return writeError(c, err)
	}

	filter := entity.OrderFilter{}
	if s := c.QueryParam("status"); s != "" {
		if filter.Status, err = entity.ParseOrderStatus(s); err != nil {
			return writeError(c, err)
		}
	}
	if claims.IsAdmin() {
		if u := c.QueryParam("user_id"); u != "" {
			if filter.UserID, err = strconv.Atoi(u); err != nil {
				return badRequest(c, "Invalid user_id")
			}
		}
	} else {
		filter.UserID = claims.UserID
	}

	orders, err := h.orderService.ListOrders(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}
