package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rl1809/stock-sync/pkg/api"
)

// WatchHandler receives one decoded server message. update, tx and
// alert are mutually exclusive; exactly one is non-nil per call.
type WatchHandler func(update *api.WSStockUpdate, tx *api.WSTransaction, alert *api.WSStockAlert)

// Watch subscribes to live updates and invokes fn per message until the
// context is canceled or the connection drops. The caller is expected
// to reconnect and catch up through History on any error.
func (c *Client) Watch(ctx context.Context, locationIDs, itemIDs []string, fn WatchHandler) error {
	wsURL, err := c.websocketURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	// close the socket when the context ends so the read loop unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	sub := api.WSClientMessage{
		Type:        api.WSTypeSubscribe,
		LocationIDs: locationIDs,
		ItemIDs:     itemIDs,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		var env api.WSEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Type {
		case api.WSTypeStockUpdate:
			var update api.WSStockUpdate
			if json.Unmarshal(data, &update) == nil {
				fn(&update, nil, nil)
			}
		case api.WSTypeTransaction:
			var tx api.WSTransaction
			if json.Unmarshal(data, &tx) == nil {
				fn(nil, &tx, nil)
			}
		case api.WSTypeStockAlert:
			var alert api.WSStockAlert
			if json.Unmarshal(data, &alert) == nil {
				fn(nil, nil, &alert)
			}
		case api.WSTypeSubscribed:
			// ack, nothing to do
		}
	}
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	if c.token != "" {
		q := u.Query()
		q.Set("token", c.token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
