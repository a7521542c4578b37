package portal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"onboarding/internal/domain/events"
)

// Watch subscribes to form status events. The channel closes when ctx ends
// or the connection drops; there is no reconnect and no replay, so a caller
// that missed events reloads the application instead.
func (c *Client) Watch(ctx context.Context, employeeID string) (<-chan events.FormStatusUpdated, error) {
	target, err := url.Parse(c.BaseURL + apiPrefix + "/onboarding/events")
	if err != nil {
		return nil, err
	}
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}
	if employeeID != "" {
		target.RawQuery = url.Values{"employeeId": {employeeID}}.Encode()
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second, Jar: c.HTTP.Jar}
	conn, resp, err := dialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("watch events: %s", strings.ToLower(resp.Status))
		}
		return nil, fmt.Errorf("watch events: %w", err)
	}

	out := make(chan events.FormStatusUpdated, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer close(done)
		for {
			var evt events.FormStatusUpdated
			if err := conn.ReadJSON(&evt); err != nil {
				if ctx.Err() == nil {
					slog.Debug("event stream closed", "err", err)
				}
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
