package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/service"
)

// OpenTab handles POST /v1/events/:event_id/tabs.
func (h *VenueHandler) OpenTab(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return writeError(c, err)
	}
	var body struct {
		Number   string             `json:"number"`
		TableID  *uint64            `json:"table_id"`
		ClientID *uint64            `json:"client_id"`
		Kind     model.TabKind      `json:"kind"`
		Notes    *string            `json:"notes"`
		Settings *model.TabSettings `json:"settings"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}

	tab, err := h.engine.OpenTab(c.Request().Context(), service.OpenTabInput{
		EventID:  eventID,
		Number:   body.Number,
		TableID:  body.TableID,
		ClientID: body.ClientID,
		Kind:     body.Kind,
		ActorID:  actor,
		Notes:    body.Notes,
		Settings: body.Settings,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, tab)
}

// GetTab handles GET /v1/tabs/:id.
func (h *VenueHandler) GetTab(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	tab, err := h.engine.GetTab(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tab)
}

// CloseTab handles POST /v1/tabs/:id/close.
func (h *VenueHandler) CloseTab(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	tab, err := h.engine.CloseTab(c.Request().Context(), id, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tab)
}

// AddParticipant handles POST /v1/tabs/:id/participants.
func (h *VenueHandler) AddParticipant(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var body struct {
		ClientID *uint64 `json:"client_id"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}
	p, err := h.engine.AddParticipant(c.Request().Context(), id, body.ClientID, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// RemoveParticipant handles DELETE /v1/participants/:id.
func (h *VenueHandler) RemoveParticipant(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	p, err := h.engine.RemoveParticipant(c.Request().Context(), id, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
