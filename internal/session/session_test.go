package session_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"github.com/Shoaibashk/wsss/internal/serial"
	"github.com/Shoaibashk/wsss/internal/session"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newTestServer(t *testing.T, reg *serial.Registry) *httptest.Server {
	return newTestServerCapturing(t, reg, nil)
}

// newTestServerCapturing is like newTestServer but, when capture is non-nil,
// hands the live *session.Session to capture before running it, so a test
// can inspect session state (e.g. DropCount) after the connection closes.
func newTestServerCapturing(t *testing.T, reg *serial.Registry, capture func(*session.Session)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "")
		s := session.New(conn, reg, testLogger())
		if capture != nil {
			capture(s)
		}
		_ = s.Run(r.Context())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + srv.URL[len("http"):]
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

type frame map[string]map[string]interface{}

func request(t *testing.T, conn *websocket.Conn, v interface{}) frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, v))

	var out frame
	require.NoError(t, wsjson.Read(ctx, conn, &out))
	return out
}

func TestSession_ListReturnsArray(t *testing.T) {
	reg := serial.NewRegistry(serial.PortConfig{BaudRate: 9600, DataBits: 8}, testLogger())
	t.Cleanup(reg.Shutdown)

	srv := newTestServer(t, reg)
	conn := dial(t, srv)

	resp := request(t, conn, map[string]interface{}{"List": map[string]interface{}{}})
	body, ok := resp["List"]
	require.True(t, ok)
	_, ok = body["ports"].([]interface{})
	require.True(t, ok)
}

func TestSession_OpenFailureIsReported(t *testing.T) {
	reg := serial.NewRegistry(serial.PortConfig{BaudRate: 9600, DataBits: 8}, testLogger())
	t.Cleanup(reg.Shutdown)

	resp := request(t, dial(t, newTestServer(t, reg)), map[string]interface{}{
		"Open": map[string]interface{}{"port": "/dev/definitely-not-a-real-port"},
	})
	errBody, ok := resp["Error"]
	require.True(t, ok)
	require.Equal(t, "OpenFailed", errBody["code"])
}

func TestSession_UnknownTagProducesError(t *testing.T) {
	reg := serial.NewRegistry(serial.PortConfig{BaudRate: 9600, DataBits: 8}, testLogger())
	t.Cleanup(reg.Shutdown)

	srv := newTestServer(t, reg)
	conn := dial(t, srv)

	resp := request(t, conn, map[string]interface{}{"Frobnicate": map[string]interface{}{}})
	errBody, ok := resp["Error"]
	require.True(t, ok)
	require.Equal(t, "UnknownRequest", errBody["code"])
}

func TestSession_SlowClientDropsRatherThanBlocks(t *testing.T) {
	reg := serial.NewRegistry(serial.PortConfig{BaudRate: 9600, DataBits: 8}, testLogger())
	t.Cleanup(reg.Shutdown)

	sessions := make(chan *session.Session, 1)
	srv := newTestServerCapturing(t, reg, func(s *session.Session) { sessions <- s })
	conn := dial(t, srv)

	// Flood far more List requests than the outbound queue holds, never
	// reading a single response: the session must drop the overflow rather
	// than stall its writeLoop or the Registry.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 500; i++ {
		require.NoError(t, wsjson.Write(ctx, conn, map[string]interface{}{"List": map[string]interface{}{}}))
	}

	conn.Close(websocket.StatusNormalClosure, "")

	s := <-sessions
	require.Eventually(t, func() bool { return s.DropCount() > 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestSession_WriteToUnopenedPortIsRejected(t *testing.T) {
	reg := serial.NewRegistry(serial.PortConfig{BaudRate: 9600, DataBits: 8}, testLogger())
	t.Cleanup(reg.Shutdown)

	resp := request(t, dial(t, newTestServer(t, reg)), map[string]interface{}{
		"Write": map[string]interface{}{"port": "COM1", "data": base64.StdEncoding.EncodeToString([]byte("hi"))},
	})
	errBody, ok := resp["Error"]
	require.True(t, ok)
	require.Equal(t, "NotOpen", errBody["code"])
}
