// Package handler exposes the venue engine over HTTP.  Handlers bind and
// check the request shape, take the acting staff member from the JWT and
// leave every rule to the engine; engine errors are mapped onto status
// codes in one place (writeError).
package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/middleware"
	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/service"
)

// Engine is the part of service.Engine the handlers drive.
type Engine interface {
	GetLayout(ctx context.Context, eventID uint64, f model.LayoutFilter, refresh bool) (*model.LayoutTree, error)
	GetStatistics(ctx context.Context, eventID uint64, refresh bool) (*model.Stats, error)
	Search(ctx context.Context, eventID uint64, text string, typ *model.SearchType) ([]model.SearchHit, error)
	GetTable(ctx context.Context, id uint64) (*model.Table, error)
	GetTab(ctx context.Context, id uint64) (*model.Tab, error)
	ListActiveLocks(ctx context.Context, eventID uint64) ([]model.Lock, error)

	SetTableStatus(ctx context.Context, in service.SetTableStatusInput) (*model.Table, error)
	OpenTab(ctx context.Context, in service.OpenTabInput) (*model.Tab, error)
	CloseTab(ctx context.Context, tabID, actorID uint64) (*model.Tab, error)
	AddParticipant(ctx context.Context, tabID uint64, clientID *uint64, actorID uint64) (*model.Participant, error)
	RemoveParticipant(ctx context.Context, participantID, actorID uint64) (*model.Participant, error)
	IssueCard(ctx context.Context, in service.IssueCardInput) (*model.Card, error)
	CreateLock(ctx context.Context, in service.CreateLockInput) (*model.Lock, error)
	CancelLock(ctx context.Context, lockID, actorID uint64) (*model.Lock, error)
}

var _ Engine = (*service.Engine)(nil)

// VenueHandler serves the /v1 staff API.
type VenueHandler struct {
	engine Engine
}

// NewVenueHandler returns the handler set; it panics on a nil engine.
func NewVenueHandler(engine Engine) *VenueHandler {
	if engine == nil {
		panic("nil engine passed to NewVenueHandler")
	}
	return &VenueHandler{engine: engine}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid_"+name, "invalid "+name)
	}
	return id, nil
}

// actorID returns the staff id JWTAuth put in the context.
func actorID(c echo.Context) (uint64, error) {
	id, ok := middleware.StaffID(c)
	if !ok {
		return 0, errUnauthorized
	}
	return id, nil
}

// queryBool accepts 1/0, true/false and yes/no; an absent parameter is false.
func queryBool(c echo.Context, name string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(c.QueryParam(name))) {
	case "", "0", "false", "no":
		return false, nil
	case "1", "true", "yes":
		return true, nil
	}
	return false, apperr.Validation("invalid_"+name, name+" must be a boolean")
}

// queryID parses an optional positive numeric query parameter.
func queryID(c echo.Context, name string) (*uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, apperr.Validation("invalid_"+name, "invalid "+name)
	}
	return &id, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation("invalid_body", "invalid request body")
	}
	return nil
}
