package link

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	// MaxMessageSize bounds one inbound websocket message. Packets are a few dozen bytes.
	MaxMessageSize = 64 << 10
)

// WebsocketDialer dials the rover bridge over a websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

// Dial connects to address. A bare host:port is dialed as ws://host:port.
func (d WebsocketDialer) Dial(ctx context.Context, address string) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	url := URL(address)
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(MaxMessageSize)
	return conn, nil
}

// URL returns the websocket URL for address. http and https URLs map to ws and wss.
func URL(address string) string {
	switch {
	case strings.HasPrefix(address, "http://"):
		return "ws://" + strings.TrimPrefix(address, "http://")
	case strings.HasPrefix(address, "https://"):
		return "wss://" + strings.TrimPrefix(address, "https://")
	case strings.Contains(address, "://"):
		return address
	default:
		return "ws://" + address
	}
}
