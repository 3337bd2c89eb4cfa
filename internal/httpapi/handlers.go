package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/DoyleJ11/selection-protocol/internal/engine"
	"github.com/DoyleJ11/selection-protocol/internal/hub"
	"github.com/DoyleJ11/selection-protocol/internal/journal"
	"github.com/DoyleJ11/selection-protocol/internal/session"
	"github.com/DoyleJ11/selection-protocol/internal/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const stateTimeout = 2 * time.Second

// History reads back persisted action log entries.
type History interface {
	Recent(ctx context.Context, channel string, n int) ([]journal.Entry, error)
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateChannel(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			existing, err := h.Get(r.Context(), c)
			if err != nil {
				http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
				return
			}
			if existing == nil {
				code = c
				break
			}
			log.Debug("collision on code, regenerating", zap.String("code", c))
		}

		if s, err := h.Ensure(r.Context(), code); err != nil || s == nil {
			http.Error(w, "failed to create channel", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

type stateResponse struct {
	Channel   string                 `json:"channel"`
	Version   int                    `json:"version"`
	Vote      types.VoteUpdate       `json:"vote"`
	Admin     types.AdminStateUpdate `json:"admin"`
	Cooldowns types.CooldownUpdate   `json:"cooldowns"`
}

func ChannelState(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		s, err := h.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if s == nil {
			http.Error(w, "channel not found", http.StatusNotFound)
			return
		}

		view, ok := requestView(r.Context(), s)
		if !ok {
			http.Error(w, "channel unavailable", http.StatusServiceUnavailable)
			return
		}

		vote := session.VotePayload(view.State)
		vote.Timestamp = time.Now()
		writeJSON(w, http.StatusOK, stateResponse{
			Channel:   code,
			Version:   view.Version,
			Vote:      vote,
			Admin:     session.AdminPayload(view.State, view.Admin, view.NumClients, view.ActionLog),
			Cooldowns: session.CooldownPayload(view.Cooldowns),
		})
	}
}

// ChannelLog serves the durable action log. n defaults to 50.
func ChannelLog(history History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := 50
		if raw := r.URL.Query().Get("n"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				http.Error(w, "invalid n", http.StatusBadRequest)
				return
			}
			n = v
		}

		entries, err := history.Recent(r.Context(), chi.URLParam(r, "code"), n)
		if err != nil {
			http.Error(w, "failed to read action log", http.StatusInternalServerError)
			return
		}
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = e.Line()
		}
		writeJSON(w, http.StatusOK, struct {
			Entries []string `json:"entries"`
		}{Entries: lines})
	}
}

type actionResponse struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Keypress      string `json:"keypress,omitempty"`
	CooldownGroup string `json:"cooldown_group,omitempty"`
}

func Actions(w http.ResponseWriter, r *http.Request) {
	out := make([]actionResponse, 0, len(engine.ActionTable))
	for _, a := range engine.ActionTable {
		if !a.Enabled {
			continue
		}
		out = append(out, actionResponse{
			Code:          string(a.Code),
			Name:          a.Name,
			Description:   a.Description,
			Keypress:      a.Keypress,
			CooldownGroup: a.CooldownGroup,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Actions []actionResponse `json:"actions"`
	}{Actions: out})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func requestView(ctx context.Context, s *session.Session) (session.View, bool) {
	ctx, cancel := context.WithTimeout(ctx, stateTimeout)
	defer cancel()

	reply := make(chan session.View, 1)
	select {
	case s.Inbox() <- session.GetState{Reply: reply}:
	case <-s.Done():
		return session.View{}, false
	case <-ctx.Done():
		return session.View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-s.Done():
		return session.View{}, false
	case <-ctx.Done():
		return session.View{}, false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
