package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/TraderJoe97/stackflow/internal/services"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWebSocket(t *testing.T, server *httptest.Server, authorization string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	header := http.Header{}
	header.Set("Authorization", authorization)
	header.Set("Origin", "http://localhost:3000")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	return conn
}

func TestWebSocketReceivesBroadcast(t *testing.T) {
	env := setupTestEnv(t)
	server := httptest.NewServer(env.Router)
	defer server.Close()

	conn := dialWebSocket(t, server, bearerFor(t, env.Admin))
	defer conn.Close()

	// First frame is the welcome message.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var welcome map[string]string
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "connected", welcome["type"])

	env.Hub.Broadcast(services.Event{
		EntityType: services.EntityTicket,
		EntityID:   7,
		Action:     services.ActionUpdated,
		OldStatus:  "To_Do",
	})

	var event services.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, services.EntityTicket, event.EntityType)
	assert.Equal(t, uint(7), event.EntityID)
	assert.Equal(t, services.ActionUpdated, event.Action)
	assert.Equal(t, "To_Do", event.OldStatus)
}

func TestWebSocketDisconnectReleasesResources(t *testing.T) {
	env := setupTestEnv(t)
	server := httptest.NewServer(env.Router)
	defer server.Close()

	token := bearerFor(t, env.Admin)
	before := runtime.NumGoroutine()

	for i := 0; i < 5; i++ {
		conn := dialWebSocket(t, server, token)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var welcome map[string]string
		require.NoError(t, conn.ReadJSON(&welcome))
		require.NoError(t, conn.Close())
	}

	// Every connection's goroutines must wind down after the client goes
	// away; a small allowance covers runtime background noise.
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 3*time.Second, 25*time.Millisecond)
}
