// Package router wires the HTTP surface onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-operations/internal/config"
	"github.com/iliyamo/venue-operations/internal/handler"
	"github.com/iliyamo/venue-operations/internal/middleware"
)

// Deps carries what the routes need.  Redis and Gatherer may be nil.
type Deps struct {
	Venue     *handler.VenueHandler
	Stream    *handler.EventStream
	DB        handler.Pinger
	Gatherer  prometheus.Gatherer
	Redis     *redis.Client
	JWTSecret string
	RateLimit config.RateLimitConfig
}

// RegisterRoutes registers the probes and the metrics endpoint without
// authentication and the staff API under /v1.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.DB != nil {
		e.GET("/readyz", handler.Ready(d.DB))
	}
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
	)
	registerVenue(g, d.Venue)
	if d.Stream != nil {
		g.GET("/events/:event_id/ws", d.Stream.Serve)
	}
}

func registerVenue(g *echo.Group, h *handler.VenueHandler) {
	// ---- Venue-event views ----
	g.GET("/events/:event_id/layout", h.GetLayout)
	g.GET("/events/:event_id/statistics", h.GetStatistics)
	g.GET("/events/:event_id/search", h.Search)

	// ---- Tables ----
	g.GET("/tables/:id", h.GetTable)
	g.PATCH("/tables/:id/status", h.SetTableStatus)

	// ---- Tabs ----
	g.POST("/events/:event_id/tabs", h.OpenTab)
	g.GET("/tabs/:id", h.GetTab)
	g.POST("/tabs/:id/close", h.CloseTab)
	g.POST("/tabs/:id/participants", h.AddParticipant)
	g.DELETE("/participants/:id", h.RemoveParticipant)

	// ---- Cards ----
	g.POST("/events/:event_id/cards", h.IssueCard)

	// ---- Locks ----
	g.GET("/events/:event_id/locks", h.ListLocks)
	manager := middleware.RequireRole(middleware.RoleManager)
	g.POST("/events/:event_id/locks", h.CreateLock, manager)
	g.DELETE("/locks/:id", h.CancelLock, manager)
}
