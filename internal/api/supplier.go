package api

import (
	"net/http"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/service"
	"github.com/labstack/echo/v4"
)

type SupplierHandler struct {
	supplierService *service.SupplierService
}

func NewSupplierHandler(supplierService *service.SupplierService) *SupplierHandler {
	return &SupplierHandler{supplierService: supplierService}
}

func (h *SupplierHandler) CreateSupplier(c echo.Context) error {
	supplier := entity.Supplier{}
	if err := c.Bind(&supplier); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	created, err := h.supplierService.CreateSupplier(c.Request().Context(), &supplier)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *SupplierHandler) GetSupplier(c echo.Context) error {
	id, ok := paramInt(c, "id")
	if !ok {
		return badRequest(c, "Invalid ID")
	}
	supplier, err := h.supplierService.GetSupplier(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, supplier)
}

func (h *SupplierHandler) GetSuppliers(c echo.Context) error {
	suppliers, err := h.supplierService.GetSuppliers(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, suppliers)
}
