package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-operations/internal/model"
)

// GetLayout handles GET /v1/events/:event_id/layout.
func (h *VenueHandler) GetLayout(c echo.Context) error {
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return writeError(c, err)
	}
	var f model.LayoutFilter
	if f.ActiveOnly, err = queryBool(c, "active_only"); err != nil {
		return writeError(c, err)
	}
	f.AreaKind = strings.TrimSpace(c.QueryParam("area_kind"))
	f.TableStatus = model.TableStatus(strings.TrimSpace(c.QueryParam("table_status")))
	if f.CardGroupID, err = queryID(c, "card_group_id"); err != nil {
		return writeError(c, err)
	}
	refresh, err := queryBool(c, "refresh")
	if err != nil {
		return writeError(c, err)
	}

	tree, err := h.engine.GetLayout(c.Request().Context(), eventID, f, refresh)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tree)
}

// GetStatistics handles GET /v1/events/:event_id/statistics.
func (h *VenueHandler) GetStatistics(c echo.Context) error {
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return writeError(c, err)
	}
	refresh, err := queryBool(c, "refresh")
	if err != nil {
		return writeError(c, err)
	}
	st, err := h.engine.GetStatistics(c.Request().Context(), eventID, refresh)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Search handles GET /v1/events/:event_id/search?q=&type=.
func (h *VenueHandler) Search(c echo.Context) error {
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return writeError(c, err)
	}
	var typ *model.SearchType
	if raw := strings.TrimSpace(c.QueryParam("type")); raw != "" {
		t := model.SearchType(strings.ToLower(raw))
		typ = &t
	}
	hits, err := h.engine.Search(c.Request().Context(), eventID, c.QueryParam("q"), typ)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"results": hits, "count": len(hits)})
}
