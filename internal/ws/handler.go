package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/selection-protocol/internal/hub"
	"github.com/DoyleJ11/selection-protocol/internal/session"
	"github.com/DoyleJ11/selection-protocol/internal/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

type Options struct {
	DefaultChannel string
	OriginPatterns []string // passed to websocket.AcceptOptions
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "ws"))

	return func(w http.ResponseWriter, r *http.Request) {
		channel := r.URL.Query().Get("channel")
		if channel == "" {
			channel = opts.DefaultChannel
		}
		if channel == "" {
			http.Error(w, "missing channel", http.StatusBadRequest)
			return
		}

		s, err := h.Ensure(r.Context(), channel)
		if err != nil || s == nil {
			http.Error(w, "channel unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.Envelope, outboxSize)
		clientID := uuid.NewString()
		clog := log.With(zap.String("client_id", clientID), zap.String("channel", channel))
		clog.Info("client connected")

		select {
		case s.Inbox() <- session.Join{ClientID: clientID, Outbox: out}:
		case <-s.Done():
			clog.Info("channel closed before join")
			return
		}
		defer func() {
			select {
			case s.Inbox() <- session.Leave{ClientID: clientID}:
			case <-s.Done():
			}
			clog.Info("client disconnected")
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for env := range out {
				payload, err := json.Marshal(env)
				if err != nil {
					clog.Error("marshal event", zap.String("event", env.Event), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					clog.Debug("write failed", zap.Error(err))
					return
				}
			}
			// session closed our outbox: we were dropped or it shut down
			conn.Close(websocket.StatusGoingAway, "session closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read ended", zap.Error(err))
				}
				return
			}

			var env types.Envelope
			if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
				writeError(r.Context(), conn, "", "bad json")
				continue
			}

			select {
			case s.Inbox() <- session.FromClient{ClientID: clientID, Env: env}:
			case <-s.Done():
				return
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, ref, msg string) {
	env := types.MustEnvelope(types.EvtError, types.ErrorPayload{Error: msg})
	env.Ref = ref
	payload, _ := json.Marshal(env)
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
