package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// WSDetectionStream is the websocket implementation of the vision
// collaborator: each text frame carries one JSON detection event.
type WSDetectionStream struct {
	endpoint string
	apiKey   string
}

// NewWSDetectionStream creates a websocket detection stream
func NewWSDetectionStream(endpoint, apiKey string) *WSDetectionStream {
	return &WSDetectionStream{endpoint: endpoint, apiKey: apiKey}
}

// Name returns the stream identifier
func (s *WSDetectionStream) Name() string {
	return "ws"
}

// Connect dials the websocket endpoint
func (s *WSDetectionStream) Connect(ctx context.Context) (DetectionConn, error) {
	header := http.Header{}
	if s.apiKey != "" {
		header.Set("Authorization", "Bearer "+s.apiKey)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", s.endpoint, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", s.endpoint, err)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

// Next blocks for the next detection event frame. Frames that do not
// decode are skipped rather than killing the subscription.
func (c *wsConn) Next() (*DetectionEvent, error) {
	for {
		var ev DetectionEvent
		err := c.conn.ReadJSON(&ev)
		if err == nil {
			return &ev, nil
		}

		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			// Malformed frame: keep reading
			continue
		}
		return nil, fmt.Errorf("read event: %w", err)
	}
}

// Close shuts the connection down
func (c *wsConn) Close() error {
	return c.conn.Close()
}
