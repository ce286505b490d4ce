package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-operations/internal/middleware"
	"github.com/iliyamo/venue-operations/internal/notify"
	"github.com/iliyamo/venue-operations/internal/utils"
)

func TestEventStreamDeliversNotifications(t *testing.T) {
	t.Parallel()

	hub := notify.NewHub(nil)
	e := echo.New()
	e.GET("/v1/events/:event_id/ws", NewEventStream(hub, nil).Serve, middleware.JWTAuth(testSecret))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	tok, err := utils.NewAccessToken(testSecret, 9, middleware.RoleStaff, 5)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events/4/ws?access_token=" + tok.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections(4) == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Publish(notify.Event{Name: notify.TabOpened, EventID: 4, ActorID: 9, Timestamp: time.Now()})
	hub.Publish(notify.Event{Name: notify.TabClosed, EventID: 5})
	hub.Publish(notify.Event{Name: notify.TabClosed, EventID: 4, ActorID: 9, Timestamp: time.Now()})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first, second notify.Event
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, notify.TabOpened, first.Name)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, notify.TabClosed, second.Name)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, uint64(4), second.EventID)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(4) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventStreamRequiresToken(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/v1/events/:event_id/ws", NewEventStream(notify.NewHub(nil), nil).Serve, middleware.JWTAuth(testSecret))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/events/4/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
