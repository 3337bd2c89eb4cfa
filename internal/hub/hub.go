package hub

import (
	"context"
	"errors"
	"slices"

	"github.com/DoyleJ11/selection-protocol/internal/session"
	"go.uber.org/zap"
)

var ErrHubClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	Channel string
	Reply   chan *session.Session
}

type GetSession struct {
	Channel string
	Reply   chan *session.Session
}

type EnsureSession struct {
	Channel string
	Reply   chan *session.Session
}

type RemoveSession struct {
	Channel string
}

type ListChannels struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (ListChannels) isHubMsg()  {}
func (ShutdownHub) isHubMsg()   {}

// Factory builds the session for a channel. The hub owns its lifetime.
type Factory func(ctx context.Context, channel string) *session.Session

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	factory  Factory
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, factory Factory, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if logger == nil {
		logger = zap.NewNop()
	}
	if factory == nil {
		factory = func(ctx context.Context, channel string) *session.Session {
			return session.NewSession(ctx, session.Config{Channel: channel, AutoStart: true}, session.Deps{Logger: logger})
		}
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		factory:  factory,
		log:      logger.With(zap.String("component", "hub")),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once every session has been told to stop.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				msg.Reply <- h.ensure(msg.Channel)

			case GetSession:
				msg.Reply <- h.sessions[msg.Channel] // May be nil

			case EnsureSession:
				msg.Reply <- h.ensure(msg.Channel)

			case RemoveSession:
				if s := h.sessions[msg.Channel]; s != nil {
					s.Inbox() <- session.Shutdown{}
					delete(h.sessions, msg.Channel)
					h.log.Info("session removed", zap.String("channel", msg.Channel))
				}

			case ListChannels:
				out := make([]string, 0, len(h.sessions))
				for ch := range h.sessions {
					out = append(out, ch)
				}
				slices.Sort(out)
				msg.Reply <- out

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) ensure(channel string) *session.Session {
	if s := h.sessions[channel]; s != nil {
		return s
	}
	s := h.factory(h.ctx, channel)
	h.sessions[channel] = s
	h.log.Info("session created", zap.String("channel", channel))
	return s
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		select {
		case s.Inbox() <- session.Shutdown{}:
		case <-s.Done():
		}
	}
	clear(h.sessions)
}

// Ensure returns the session for channel, creating it on first use.
func (h *Hub) Ensure(ctx context.Context, channel string) (*session.Session, error) {
	return h.request(ctx, func(reply chan *session.Session) HubMsg {
		return EnsureSession{Channel: channel, Reply: reply}
	})
}

// Get returns the session for channel or nil.
func (h *Hub) Get(ctx context.Context, channel string) (*session.Session, error) {
	return h.request(ctx, func(reply chan *session.Session) HubMsg {
		return GetSession{Channel: channel, Reply: reply}
	})
}

func (h *Hub) request(ctx context.Context, build func(chan *session.Session) HubMsg) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	select {
	case h.inbox <- build(reply):
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
