package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/service"
)

// ListLocks handles GET /v1/events/:event_id/locks.
func (h *VenueHandler) ListLocks(c echo.Context) error {
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return writeError(c, err)
	}
	locks, err := h.engine.ListActiveLocks(c.Request().Context(), eventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"locks": locks})
}

// CreateLock handles POST /v1/events/:event_id/locks.
func (h *VenueHandler) CreateLock(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return writeError(c, err)
	}
	var body struct {
		Kind      model.LockKind `json:"kind"`
		RefID     uint64         `json:"ref_id"`
		Reason    string         `json:"reason"`
		Detail    *string        `json:"detail"`
		Temporary bool           `json:"temporary"`
		ExpiresAt *time.Time     `json:"expires_at"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}

	lock, err := h.engine.CreateLock(c.Request().Context(), service.CreateLockInput{
		Kind:      body.Kind,
		RefID:     body.RefID,
		EventID:   eventID,
		Reason:    body.Reason,
		Detail:    body.Detail,
		ActorID:   actor,
		Temporary: body.Temporary,
		ExpiresAt: body.ExpiresAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, lock)
}

// CancelLock handles DELETE /v1/locks/:id.
func (h *VenueHandler) CancelLock(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	lock, err := h.engine.CancelLock(c.Request().Context(), id, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, lock)
}
