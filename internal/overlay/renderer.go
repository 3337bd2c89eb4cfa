package overlay

import (
	"strconv"

	"github.com/DoyleJ11/selection-protocol/internal/types"
	"go.uber.org/zap"
)

// Element ids on the overlay surface.
const (
	IDKCount   = "k-count"
	IDLCount   = "l-count"
	IDXCount   = "x-count"
	IDClaimant = "l-claimant"
	IDChart    = "pieChart"
	IDTimer    = "time-remaining"
	IDStatus   = "status"
)

const (
	StatusActive  = "Chat decides fate (NOT YET LIVE). Features coming: KILL, REPRODUCE, change target, zoom, change/show/hide info overlay panels"
	StatusWaiting = "Waiting for next vote..."
)

// Surface is whatever the overlay draws on. Elements that do not exist yet
// are created on first write.
type Surface interface {
	Text(id string) string
	SetText(id, text string)
	Pulse(id string)
	SetColor(id string, c Color)
	SetGlow(id string, c Color)
	DrawChart(id string, c Chart)
}

// Renderer keeps no state of its own: every pass is a projection of the
// latest snapshot onto the surface.
type Renderer struct {
	surface Surface
	log     *zap.Logger
}

func NewRenderer(s Surface, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Renderer{surface: s, log: logger.With(zap.String("component", "overlay"))}
	s.DrawChart(IDChart, DrawChart(0, 0, 0))
	return r
}

func (r *Renderer) HandleVoteUpdate(v types.VoteUpdate) {
	r.setCount(IDKCount, v.KVotes)
	r.setCount(IDLCount, v.LVotes)
	r.setCount(IDXCount, v.XVotes)

	claimant := ""
	if v.FirstLClaimant != nil {
		claimant = *v.FirstLClaimant
	}
	r.surface.SetText(IDClaimant, claimant)

	r.surface.DrawChart(IDChart, DrawChart(v.KVotes, v.LVotes, v.XVotes))

	if v.TimeRemaining != nil {
		secs := *v.TimeRemaining
		color := TimerColor(secs)
		r.surface.SetText(IDTimer, strconv.Itoa(secs)+"s")
		r.surface.SetColor(IDTimer, color)
		r.surface.SetGlow(IDTimer, Glow(color))
	}

	if v.VotingActive {
		r.surface.SetText(IDStatus, StatusActive)
	} else {
		r.surface.SetText(IDStatus, StatusWaiting)
	}
}

// Handle decodes a vote_update envelope and renders it.
func (r *Renderer) Handle(env types.Envelope) {
	var v types.VoteUpdate
	if err := env.Decode(&v); err != nil {
		r.log.Warn("bad vote_update", zap.Error(err))
		return
	}
	r.log.Debug("vote update", zap.Int("k", v.KVotes), zap.Int("l", v.LVotes), zap.Int("x", v.XVotes))
	r.HandleVoteUpdate(v)
}

// setCount pulses the element only when its text actually changes.
func (r *Renderer) setCount(id string, n int) {
	text := strconv.Itoa(n)
	changed := r.surface.Text(id) != text
	r.surface.SetText(id, text)
	if changed {
		r.surface.Pulse(id)
	}
}
