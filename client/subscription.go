package client

import (
	"context"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
	"github.com/jeewonyang/TCSlotScheduler/internal/storage"
)

const (
	reconnectBase = 1 * time.Second
	reconnectMax  = 30 * time.Second
)

// Subscribe opens a WebSocket to the server's event stream and fires
// onChange for every reservation event, plus once after each successful
// connect to cover events published while disconnected. The connection
// reconnects with capped backoff until the subscription is cancelled,
// so a coordinator built on a remote store survives server restarts the
// same way it survives transient query failures.
func (c *Client) Subscribe(onChange func()) storage.Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &wsSubscription{cancel: cancel, stopped: make(chan struct{})}
	go sub.run(ctx, c, onChange)
	return sub
}

// Close releases the client. Connections held by individual
// subscriptions are owned by those subscriptions and closed by their
// Cancel; nothing else is pooled beyond the standard http.Client.
func (c *Client) Close() error {
	c.HTTP.CloseIdleConnections()
	return nil
}

type wsSubscription struct {
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

// Cancel stops the read loop and closes the connection. It blocks until
// the loop has exited, so no onChange call fires after Cancel returns.
func (s *wsSubscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		<-s.stopped
	})
}

func (s *wsSubscription) run(ctx context.Context, c *Client, onChange func()) {
	defer close(s.stopped)

	backoff := reconnectBase
	for {
		conn, err := c.dialEvents(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}
		backoff = reconnectBase

		// The feed carries no history: anything published while we were
		// disconnected is gone. Fire once per (re)connect so listeners
		// re-fetch and converge on the current store state.
		onChange()

		s.readLoop(ctx, conn, onChange)
		conn.Close(websocket.StatusNormalClosure, "subscription closing")

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// readLoop fires onChange once per event until the connection drops or
// the subscription is cancelled.
func (s *wsSubscription) readLoop(ctx context.Context, conn *websocket.Conn, onChange func()) {
	for {
		var event core.Event
		if err := wsjson.Read(ctx, conn, &event); err != nil {
			return
		}
		onChange()
	}
}

func (c *Client) dialEvents(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws/reservations"

	opts := &websocket.DialOptions{}
	if c.APIKey != "" {
		opts.HTTPHeader = map[string][]string{
			"Authorization": {"Bearer " + c.APIKey},
		}
	}
	conn, _, err := websocket.Dial(ctx, u.String(), opts)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
