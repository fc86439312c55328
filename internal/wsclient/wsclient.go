// Package wsclient is a thin WebSocket client used by wsss's CLI debug
// commands (open/close/write/read) to talk to a running server using the
// same websocket-serial-json protocol a browser client would.
package wsclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Shoaibashk/wsss/internal/wsproto"
)

// Client is a single WebSocket connection to a wsss server.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to url and negotiates the websocket-serial-json subprotocol.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{wsproto.Subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Close terminates the connection with a normal closure.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// Send writes one JSON request frame.
func (c *Client) Send(ctx context.Context, req interface{}) error {
	return wsjson.Write(ctx, c.conn, req)
}

// Next reads one JSON response frame, returned as a generic tag->body map so
// callers can inspect whichever tag arrived without importing wsproto's
// unexported body types.
func (c *Client) Next(ctx context.Context) (map[string]json.RawMessage, error) {
	var raw json.RawMessage
	if err := wsjson.Read(ctx, c.conn, &raw); err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// OpenRequest builds the {"Open":{"port":...}} frame.
func OpenRequest(port string) interface{} {
	return map[string]interface{}{"Open": map[string]interface{}{"port": port}}
}

// CloseRequest builds the {"Close":{"port":...}} frame, or {"Close":{}} for
// port == "" (close every port this connection holds).
func CloseRequest(port string) interface{} {
	body := map[string]interface{}{}
	if port != "" {
		body["port"] = port
	}
	return map[string]interface{}{"Close": body}
}

// ListRequest builds the {"List":{}} frame.
func ListRequest() interface{} {
	return map[string]interface{}{"List": map[string]interface{}{}}
}

// WriteLockRequest builds the {"WriteLock":{"port":...}} frame.
func WriteLockRequest(port string) interface{} {
	return map[string]interface{}{"WriteLock": map[string]interface{}{"port": port}}
}

// WriteRequest builds the {"Write":{"port":...,"data":...}} frame. data is
// expected to already be base64-encoded, matching the wire format.
func WriteRequest(port, base64Data string) interface{} {
	return map[string]interface{}{"Write": map[string]interface{}{"port": port, "data": base64Data}}
}
