package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-operations/internal/apperr"
)

var errUnauthorized = errors.New("unauthorized")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Entity   string `json:"entity,omitempty"`
	EntityID uint64 `json:"entity_id,omitempty"`
}

// statusOf maps an engine error kind onto an HTTP status.  Storage faults
// are retry-safe and answered with 503.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

// writeError renders err.  Storage details never leave the process.
func writeError(c echo.Context, err error) error {
	if errors.Is(err, errUnauthorized) {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "missing staff identity"})
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindStorage {
		c.Logger().Errorf("request failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "storage_unavailable", Message: "temporarily unavailable, retry"})
	}
	return c.JSON(statusOf(ae.Kind), errorBody{
		Error:    ae.Code,
		Message:  ae.Message,
		Entity:   ae.Entity,
		EntityID: ae.EntityID,
	})
}
