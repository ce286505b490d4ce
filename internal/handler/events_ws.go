package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-operations/internal/notify"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 512
)

// Notifier is the registration side of the change notifier.
type Notifier interface {
	Register(eventID uint64, connID string) (*notify.Subscription, error)
	Unregister(connID string)
}

// EventStream pushes change notifications of one venue-event to a
// websocket observer.  Observers only receive; anything they send besides
// control frames is read and dropped.
type EventStream struct {
	hub      Notifier
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewEventStream returns the websocket sink for hub.
func NewEventStream(hub Notifier, logger *slog.Logger) *EventStream {
	if hub == nil {
		panic("nil notifier passed to NewEventStream")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventStream{
		hub: hub,
		upgrader: websocket.Upgrader{
			// Staff terminals are authenticated by JWT before the upgrade.
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With("component", "ws"),
	}
}

// Serve handles GET /v1/events/:event_id/ws.
func (s *EventStream) Serve(c echo.Context) error {
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return writeError(c, err)
	}
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already answered the client.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	connID := uuid.NewString()
	sub, err := s.hub.Register(eventID, connID)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "registration failed"), time.Now().Add(wsWriteWait))
		return nil
	}
	defer s.hub.Unregister(connID)
	staff, _ := actorID(c)
	s.logger.Info("observer connected", "conn_id", connID, "event_id", eventID, "staff_id", staff)

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, sub, done)
	s.logger.Info("observer disconnected", "conn_id", connID, "event_id", eventID, "dropped", sub.Dropped())
	return nil
}

// readPump keeps the read side alive for pongs and close frames.  It closes
// done when the peer goes away.
func (s *EventStream) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on conn.
func (s *EventStream) writePump(conn *websocket.Conn, sub *notify.Subscription, done <-chan struct{}) {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
