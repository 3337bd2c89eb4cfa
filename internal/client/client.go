// Package client is the socket side of the overlay and admin programs.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/DoyleJ11/selection-protocol/internal/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

var ErrClosed = errors.New("client closed")

type Handler = func(env types.Envelope)

type Client struct {
	conn *websocket.Conn
	log  *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
}

// URL turns a server base address into the socket endpoint for a channel.
// http and https bases are mapped to ws and wss.
func URL(base, channel string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	if channel != "" {
		q.Set("channel", channel)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func Dial(ctx context.Context, endpoint string, logger *zap.Logger) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return New(conn, logger), nil
}

func New(conn *websocket.Conn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		conn:     conn,
		log:      logger.With(zap.String("component", "client")),
		handlers: make(map[string][]Handler),
	}
}

// On registers h for an inbound event. Handlers run on the Run goroutine.
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// Emit sends a command without waiting for any answer. The returned id is
// the correlation token the server echoes as ref.
func (c *Client) Emit(event string, payload any) (string, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return "", ErrClosed
	}

	env, err := types.NewEnvelope(event, payload)
	if err != nil {
		return "", err
	}
	env.ID = uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, env); err != nil {
		return "", fmt.Errorf("emit %s: %w", event, err)
	}
	return env.ID, nil
}

// Run reads events until ctx ends or the connection closes, dispatching each
// one to its handlers in arrival order.
func (c *Client) Run(ctx context.Context) error {
	for {
		var env types.Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env types.Envelope) {
	c.mu.RLock()
	hs := c.handlers[env.Event]
	c.mu.RUnlock()

	if len(hs) == 0 {
		c.log.Debug("unhandled event", zap.String("event", env.Event))
		return
	}
	for _, h := range hs {
		h(env)
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
