package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/Bahrichadha23/Pneushopp-sub000/internal/auth"
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf maps domain errors to HTTP status and a stable code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart"
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, entity.ErrProductInactive):
		return http.StatusBadRequest, "product_inactive"
	case errors.Is(err, entity.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, entity.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, entity.ErrStaleWrite):
		return http.StatusConflict, "stale_write"
	case errors.Is(err, entity.ErrRequestInFlight):
		return http.StatusConflict, "request_in_flight"
	case errors.Is(err, entity.ErrDuplicateMovement):
		return http.StatusConflict, "duplicate_movement"
	case errors.Is(err, entity.ErrDuplicateKey):
		return http.StatusConflict, "duplicate_key"
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, auth.ErrMissingClaims):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, entity.ErrTransportFailure):
		return http.StatusServiceUnavailable, "transport_failure"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(c echo.Context, err error) error {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Msgf("%s %s failed", c.Request().Method, c.Path())
	}
	return c.JSON(status, errorResponse{Error: err.Error(), Code: code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "validation"})
}

func paramInt64(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func paramInt(c echo.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	return id, err == nil && id > 0
}

// idempotencyKey reads Idempotency-Key, or the older Idempotent-Key header.
func idempotencyKey(c echo.Context) string {
	h := c.Request().Header
	if key := strings.TrimSpace(h.Get("Idempotency-Key")); key != "" {
		return key
	}
	return strings.TrimSpace(h.Get("Idempotent-Key"))
}

// created answers 201 for a new resource and 200 for a replayed one.
func created(c echo.Context, replayed bool, body any) error {
	if replayed {
		return c.JSON(http.StatusOK, body)
	}
	return c.JSON(http.StatusCreated, body)
}
