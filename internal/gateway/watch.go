package gateway

import (
	"context"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/model"
)

// Watch connects to the server's event stream and calls fn for every change
// event until ctx is cancelled or the connection drops. It returns nil when
// ctx was cancelled.
func (c *Client) Watch(ctx context.Context, fn func(model.Event)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/events"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return apperr.Network(err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev model.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			c.logger.Debug("event stream closed", zap.Error(err))
			return apperr.Network(err)
		}
		fn(ev)
	}
}
