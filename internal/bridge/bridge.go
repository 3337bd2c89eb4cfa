// Package bridge connects channels to NATS: chat bots publish votes in, and
// every broadcast event is mirrored out.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DoyleJ11/selection-protocol/internal/engine"
	"github.com/DoyleJ11/selection-protocol/internal/session"
	"github.com/DoyleJ11/selection-protocol/internal/types"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	natsMaxReconnects = -1 // Infinite reconnects
	natsReconnectWait = 2 * time.Second
	forwardTimeout    = 2 * time.Second
)

var ErrBadSubject = errors.New("bad vote subject")

func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	log := logger.With(zap.String("component", "nats"))
	opts := []nats.Option{
		nats.Name("selection-protocol"),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// VotesSubject is where a bot publishes chat votes for one channel.
func VotesSubject(prefix, channel string) string {
	return prefix + "." + channel + ".votes"
}

// EventSubject is where a broadcast event is mirrored.
func EventSubject(prefix, channel, event string) string {
	return prefix + "." + channel + ".events." + event
}

// Sessions resolves a channel name to its running session.
type Sessions interface {
	Ensure(ctx context.Context, channel string) (*session.Session, error)
}

type Subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Ingress forwards chat votes from NATS into sessions.
type Ingress struct {
	sub      Subscriber
	prefix   string
	sessions Sessions
	clock    clockwork.Clock
	log      *zap.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

func NewIngress(sub Subscriber, prefix string, sessions Sessions, clock clockwork.Clock, logger *zap.Logger) *Ingress {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ingress{
		sub:      sub,
		prefix:   prefix,
		sessions: sessions,
		clock:    clock,
		log:      logger.With(zap.String("component", "bridge")),
	}
}

// Start subscribes to the votes subject of every channel.
func (in *Ingress) Start() error {
	subject := VotesSubject(in.prefix, "*")
	s, err := in.sub.Subscribe(subject, in.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	in.mu.Lock()
	in.subs = append(in.subs, s)
	in.mu.Unlock()
	in.log.Info("listening for chat votes", zap.String("subject", subject))
	return nil
}

func (in *Ingress) Stop() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	var err error
	for _, s := range in.subs {
		err = multierr.Append(err, s.Unsubscribe())
	}
	in.subs = nil
	return err
}

func (in *Ingress) handle(msg *nats.Msg) {
	if err := in.forward(msg.Subject, msg.Data); err != nil {
		in.log.Warn("chat vote dropped", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func (in *Ingress) forward(subject string, data []byte) error {
	channel, err := in.channelOf(subject)
	if err != nil {
		return err
	}

	var p types.VoteCastPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode vote: %w", err)
	}
	if p.Username == "" {
		return errors.New("vote without username")
	}
	if !engine.ValidVoter(p.Username) {
		return fmt.Errorf("%w: %q", engine.ErrBadVoter, p.Username)
	}
	at := in.clock.Now()
	if p.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
			at = t
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
	defer cancel()
	s, err := in.sessions.Ensure(ctx, channel)
	if err != nil {
		return fmt.Errorf("resolve channel %q: %w", channel, err)
	}

	select {
	case s.Inbox() <- session.ChatVote{Username: p.Username, Vote: p.Vote, At: at}:
		return nil
	case <-s.Done():
		return fmt.Errorf("channel %q closed", channel)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (in *Ingress) channelOf(subject string) (string, error) {
	rest, ok := strings.CutPrefix(subject, in.prefix+".")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrBadSubject, subject)
	}
	channel, ok := strings.CutSuffix(rest, ".votes")
	if !ok || channel == "" || strings.Contains(channel, ".") {
		return "", fmt.Errorf("%w: %s", ErrBadSubject, subject)
	}
	return channel, nil
}

type Publisher interface {
	Publish(subj string, data []byte) error
}

// Mirror republishes session broadcasts. It satisfies session.Mirror.
type Mirror struct {
	pub    Publisher
	prefix string
	log    *zap.Logger
}

func NewMirror(pub Publisher, prefix string, logger *zap.Logger) *Mirror {
	return &Mirror{pub: pub, prefix: prefix, log: logger.With(zap.String("component", "mirror"))}
}

func (m *Mirror) Publish(channel string, env types.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		m.log.Error("marshal event", zap.String("event", env.Event), zap.Error(err))
		return
	}
	subject := EventSubject(m.prefix, channel, env.Event)
	if err := m.pub.Publish(subject, data); err != nil {
		m.log.Warn("mirror publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
