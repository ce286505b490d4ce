package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/service"
)

// GetTable handles GET /v1/tables/:id.
func (h *VenueHandler) GetTable(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	t, err := h.engine.GetTable(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// SetTableStatus handles PATCH /v1/tables/:id/status.
func (h *VenueHandler) SetTableStatus(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var body struct {
		Status string  `json:"status"`
		Notes  *string `json:"notes"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}

	t, err := h.engine.SetTableStatus(c.Request().Context(), service.SetTableStatusInput{
		TableID: id,
		Status:  model.TableStatus(strings.ToLower(strings.TrimSpace(body.Status))),
		ActorID: actor,
		Notes:   body.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
