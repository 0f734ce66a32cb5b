package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidpulse/internal/config"
	"covidpulse/pkg/contracts/events"
)

func newTestServer(t *testing.T, hub *Hub, origins []string) *httptest.Server {
	t.Helper()
	cfg := config.Default().WebSocket
	upgrader := NewUpgrader(cfg, origins, testLogger())
	srv := httptest.NewServer(ServeWS(hub, upgrader, testLogger()))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg wireMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestServeWSRoundTrip(t *testing.T) {
	handler := &fakeHandler{state: map[string]int{"revision": 0}}
	hub := newTestHub(t, handler)
	srv := newTestServer(t, hub, []string{"http://localhost:8080"})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, events.MessageTypeConnection, readMessage(t, conn).Type)
	state := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeDocumentState, state.Type)
	assert.NotEmpty(t, state.TraceID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"button:click"}`)))
	require.Eventually(t, func() bool { return len(handler.received()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestServeWSOriginCheck(t *testing.T) {
	hub := newTestHub(t, &fakeHandler{state: struct{}{}})
	srv := newTestServer(t, hub, []string{"http://localhost:8080"})

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:8080")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	conn.Close()
}

func TestServeWSHubNotRunning(t *testing.T) {
	hub := NewHub(testLogger(), HubOptions{})
	srv := newTestServer(t, hub, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
