package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-operations/internal/handler"
	"github.com/iliyamo/venue-operations/internal/metrics"
	"github.com/iliyamo/venue-operations/internal/middleware"
	"github.com/iliyamo/venue-operations/internal/notify"
	"github.com/iliyamo/venue-operations/internal/utils"
)

const secret = "router-secret"

// nopEngine satisfies handler.Engine; none of its methods are reached here.
type nopEngine struct{ handler.Engine }

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.LocksReaped(2)

	e := echo.New()
	RegisterRoutes(e, Deps{
		Venue:     handler.NewVenueHandler(nopEngine{}),
		Stream:    handler.NewEventStream(notify.NewHub(nil), nil),
		Gatherer:  reg,
		JWTSecret: secret,
	})
	return e
}

func TestRoutesRegistered(t *testing.T) {
	t.Parallel()

	e := newServer(t)
	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"GET /v1/events/:event_id/layout",
		"GET /v1/events/:event_id/statistics",
		"GET /v1/events/:event_id/search",
		"GET /v1/events/:event_id/ws",
		"GET /v1/events/:event_id/locks",
		"POST /v1/events/:event_id/locks",
		"DELETE /v1/locks/:id",
		"GET /v1/tables/:id",
		"PATCH /v1/tables/:id/status",
		"POST /v1/events/:event_id/tabs",
		"GET /v1/tabs/:id",
		"POST /v1/tabs/:id/close",
		"POST /v1/tabs/:id/participants",
		"DELETE /v1/participants/:id",
		"POST /v1/events/:event_id/cards",
	} {
		assert.True(t, got[want], want)
	}
	assert.False(t, got["GET /readyz"], "no store, no readiness probe")
}

func TestProbesAreOpen(t *testing.T) {
	t.Parallel()

	e := newServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "venue_locks_reaped_total 2")
}

func TestStaffAPIRequiresToken(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tabs/1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLockManagementIsManagerOnly(t *testing.T) {
	t.Parallel()

	tok, err := utils.NewAccessToken(secret, 3, middleware.RoleStaff, 5)
	require.NoError(t, err)
	e := newServer(t)
	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/v1/events/1/locks"},
		{http.MethodDelete, "/v1/locks/1"},
	} {
		req := httptest.NewRequest(r.method, r.path, nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, r.path)
	}
}
