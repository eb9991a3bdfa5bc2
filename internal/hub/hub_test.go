package hub

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hello() []byte { return []byte(`{"type":"hello"}`) }

func newTestHub(t *testing.T, handle Handler) (*Hub, string) {
	t.Helper()
	return serve(t, New(slog.New(slog.NewTextHandler(io.Discard, nil)), handle, hello))
}

func serve(t *testing.T, h *Hub) (*Hub, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	var greeting map[string]any
	require.NoError(t, json.Unmarshal(msg, &greeting))
	require.Equal(t, "hello", greeting["type"])
	return conn
}

func TestHubGreetsEachClient(t *testing.T) {
	var calls atomic.Int32
	h, url := serve(t, New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, func() []byte {
		n := calls.Add(1)
		return []byte(fmt.Sprintf(`{"type":"status","connected":%t}`, n > 1))
	}))

	for _, want := range []string{
		`{"type":"status","connected":false}`,
		`{"type":"status","connected":true}`,
	} {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, want, string(msg))
	}
	assert.Equal(t, 2, h.Len())
}

func TestHubWithoutGreeter(t *testing.T) {
	h, url := serve(t, New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 10*time.Millisecond)

	h.BroadcastText([]byte(`{"type":"beat"}`))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"beat"}`, string(msg))
}

func TestHubBroadcast(t *testing.T) {
	h, url := newTestHub(t, nil)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return h.Len() == 2 }, time.Second, 10*time.Millisecond)

	h.BroadcastBinary([]byte{1, 2, 3})
	h.BroadcastText([]byte(`{"type":"params"}`))

	for _, c := range []*websocket.Conn{a, b} {
		kind, msg, err := c.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, kind)
		assert.Equal(t, []byte{1, 2, 3}, msg)

		kind, msg, err = c.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, kind)
		assert.JSONEq(t, `{"type":"params"}`, string(msg))
	}

	st := h.Stats()
	assert.Equal(t, 2, st.Clients)
	assert.Equal(t, int64(1), st.BinaryMessages)
	assert.Equal(t, int64(1), st.TextMessages)
}

func TestHubCommandReply(t *testing.T) {
	_, url := newTestHub(t, func(msg []byte) []byte {
		return append([]byte("ack:"), msg...)
	})
	c := dial(t, url)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("reset")))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ack:reset", string(msg))
}

func TestHubForgetsClosedClients(t *testing.T) {
	h, url := newTestHub(t, nil)
	c := dial(t, url)
	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	c.Close()
	assert.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	h.BroadcastText([]byte("nobody listens"))
	assert.Zero(t, h.Stats().Dropped)
}
