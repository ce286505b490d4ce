package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/service"
)

// IssueCard handles POST /v1/events/:event_id/cards.  The response is the
// only place the access code is returned.
func (h *VenueHandler) IssueCard(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return writeError(c, err)
	}
	var body struct {
		Number      string              `json:"number"`
		ClientID    *uint64             `json:"client_id"`
		GroupID     *uint64             `json:"group_id"`
		CreditCents *int64              `json:"credit_cents"`
		LimitCents  *int64              `json:"limit_cents"`
		Settings    *model.CardSettings `json:"settings"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, err)
	}

	card, err := h.engine.IssueCard(c.Request().Context(), service.IssueCardInput{
		EventID:     eventID,
		Number:      body.Number,
		ClientID:    body.ClientID,
		GroupID:     body.GroupID,
		CreditCents: body.CreditCents,
		LimitCents:  body.LimitCents,
		ActorID:     actor,
		Settings:    body.Settings,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, card)
}
