package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/service"
	"github.com/labstack/echo/v4"
)

type PurchaseOrderHandler struct {
	purchaseOrderService *service.PurchaseOrderService
}

func NewPurchaseOrderHandler(purchaseOrderService *service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{purchaseOrderService: purchaseOrderService}
}

// wireDate accepts "2006-01-02" as well as RFC 3339 timestamps.
type wireDate struct {
	time.Time
}

func (d *wireDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: invalid date %q", entity.ErrValidation, s)
}

func (d *wireDate) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

type createPurchaseOrderRequest struct {
	SupplierID          int                        `json:"fournisseur"`
	OrderID             *int64                     `json:"order_id"`
	Lines               []entity.PurchaseOrderLine `json:"articles"`
	DateCommande        *wireDate                  `json:"date_commande"`
	DateLivraisonPrevue *wireDate                  `json:"date_livraison_prevue"`
}

type updatePurchaseOrderRequest struct {
	Status     string `json:"statut"`
	SupplierID *int   `json:"fournisseur"`
}

// CreatePurchaseOrder --> POST /purchase-orders
func (h *PurchaseOrderHandler) CreatePurchaseOrder(c echo.Context) error {
	req := createPurchaseOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	po, replayed, err := h.purchaseOrderService.Create(c.Request().Context(), service.CreatePurchaseOrderInput{
		SupplierID:          req.SupplierID,
		OrderID:             req.OrderID,
		Lines:               req.Lines,
		DateCommande:        req.DateCommande.ptr(),
		DateLivraisonPrevue: req.DateLivraisonPrevue.ptr(),
		IdempotencyKey:      idempotencyKey(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return created(c, replayed, po)
}

// UpdatePurchaseOrder --> PATCH /purchase-orders/:id
func (h *PurchaseOrderHandler) UpdatePurchaseOrder(c echo.Context) error {
	id, ok := paramInt64(c, "id")
	if !ok {
		return badRequest(c, "Invalid ID")
	}
	req := updatePurchaseOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	status, err := entity.ParsePurchaseOrderStatus(req.Status)
	if err != nil {
		return writeError(c, err)
	}

	po, err := h.purchaseOrderService.Apply(c.Request().Context(), id, status, req.SupplierID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, po)
}

// GetPurchaseOrder --> GET /purchase-orders/:id
func (h *PurchaseOrderHandler) GetPurchaseOrder(c echo.Context) error {
	id, ok := paramInt64(c, "id")
	if !ok {
		return badRequest(c, "Invalid ID")
	}
	po, err := h.purchaseOrderService.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, po)
}

// ListPurchaseOrders --> GET /purchase-orders?statut=&fournisseur=
func (h *PurchaseOrderHandler) ListPurchaseOrders(c echo.Context) error {
	filter := entity.PurchaseOrderFilter{}
	var err error
	if s := c.QueryParam("statut"); s != "" {
		if filter.Status, err = entity.ParsePurchaseOrderStatus(s); err != nil {
			return writeError(c, err)
		}
	}
	if s := c.QueryParam("fournisseur"); s != "" {
		if filter.SupplierID, err = strconv.Atoi(s); err != nil {
			return badRequest(c, "Invalid fournisseur")
		}
	}

	pos, err := h.purchaseOrderService.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pos)
}
