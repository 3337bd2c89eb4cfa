package admin

import (
	"fmt"
	"strconv"

	"github.com/DoyleJ11/selection-protocol/internal/types"
	"go.uber.org/zap"
)

// Element ids on the admin surface.
const (
	IDLastAction      = "last-action-display"
	IDCameraMode      = "camera-mode"
	IDClientCount     = "client-count"
	IDKCount          = "admin-k-count"
	IDLCount          = "admin-l-count"
	IDXCount          = "admin-x-count"
	IDTimer           = "admin-timer"
	IDFirstL          = "admin-first-l"
	IDPrimaryCooldown = "primary-cooldown"
)

const noClaimant = "—"

// Surface is whatever the panel draws on.
type Surface interface {
	SetText(id, text string)
	SetDisabled(id string, disabled bool)
	SetHidden(id string, hidden bool)
}

// Subscriber delivers inbound events by name.
type Subscriber interface {
	On(event string, h func(types.Envelope))
}

type Panel struct {
	surface   Surface
	cooldowns bool
	log       *zap.Logger
}

func NewPanel(s Surface, cfg Config, logger *zap.Logger) *Panel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{surface: s, cooldowns: cfg.Cooldowns, log: logger.With(zap.String("component", "panel"))}
}

// Bind registers the panel's handlers. cooldown_update is only wired when
// cooldowns are on.
func (p *Panel) Bind(sub Subscriber) {
	sub.On(types.EvtAdminStateUpdate, decodeInto(p, p.HandleAdminState))
	sub.On(types.EvtVoteUpdate, decodeInto(p, p.HandleVoteUpdate))
	sub.On(types.EvtKeypressResult, func(env types.Envelope) {
		var r types.KeypressResult
		if err := env.Decode(&r); err != nil {
			p.log.Warn("bad keypress_result", zap.Error(err))
			return
		}
		p.HandleKeypressResult(r, env.Ref)
	})
	if p.cooldowns {
		sub.On(types.EvtCooldownUpdate, decodeInto(p, p.HandleCooldown))
	}
}

func decodeInto[T any](p *Panel, fn func(T)) func(types.Envelope) {
	return func(env types.Envelope) {
		var v T
		if err := env.Decode(&v); err != nil {
			p.log.Warn("bad payload", zap.String("event", env.Event), zap.Error(err))
			return
		}
		fn(v)
	}
}

func (p *Panel) HandleAdminState(a types.AdminStateUpdate) {
	if a.LastActionTime != nil && *a.LastActionTime != "" {
		action := ""
		if a.LastAction != nil {
			action = *a.LastAction
		}
		p.surface.SetText(IDLastAction, fmt.Sprintf("%s @ %s", action, *a.LastActionTime))
	}
	if a.CameraMode != nil && *a.CameraMode != "" {
		p.surface.SetText(IDCameraMode, *a.CameraMode)
	}
	if a.ConnectedClients != nil {
		p.surface.SetText(IDClientCount, strconv.Itoa(*a.ConnectedClients))
	}
}

func (p *Panel) HandleVoteUpdate(v types.VoteUpdate) {
	p.surface.SetText(IDKCount, strconv.Itoa(v.KVotes))
	p.surface.SetText(IDLCount, strconv.Itoa(v.LVotes))
	p.surface.SetText(IDXCount, strconv.Itoa(v.XVotes))
	if v.TimeRemaining != nil {
		p.surface.SetText(IDTimer, strconv.Itoa(*v.TimeRemaining)+"s")
	}
	firstL := noClaimant
	if v.FirstLClaimant != nil && *v.FirstLClaimant != "" {
		firstL = *v.FirstLClaimant
	}
	p.surface.SetText(IDFirstL, firstL)
}

// HandleKeypressResult only logs; failures never reach the panel itself.
func (p *Panel) HandleKeypressResult(r types.KeypressResult, ref string) {
	if r.Success {
		p.log.Info("keypress succeeded", zap.String("key", r.Key), zap.String("ref", ref))
		return
	}
	p.log.Error("keypress failed", zap.String("key", r.Key), zap.String("error", r.Error), zap.String("ref", ref))
}

// HandleCooldown updates each bucket on its own. A bucket missing from the
// payload leaves its controls untouched.
func (p *Panel) HandleCooldown(c types.CooldownUpdate) {
	if b := c.Primary; b != nil {
		for _, ctl := range primaryControls {
			p.gate(ctl, *b)
		}
		if b.Active {
			p.surface.SetText(IDPrimaryCooldown, strconv.Itoa(b.Remaining)+"s")
		} else {
			p.surface.SetText(IDPrimaryCooldown, "Ready")
		}
	}
	if b := c.Extend; b != nil {
		p.gate(extendControl, *b)
	}
	if b := c.Camera; b != nil {
		for _, ctl := range cameraControls {
			p.gate(ctl, *b)
		}
	}
	if b := c.ZoomIn; b != nil {
		p.gate(zoomInControl, *b)
	}
	if b := c.ZoomOut; b != nil {
		p.gate(zoomOutControl, *b)
	}
}

func (p *Panel) gate(ctl Control, b types.CooldownBucket) {
	p.surface.SetDisabled(ctl.Button, b.Active)
	if ctl.Badge == "" {
		return
	}
	if b.Active {
		p.surface.SetText(ctl.Badge, fmt.Sprintf("CD: %ds", b.Remaining))
	}
	p.surface.SetHidden(ctl.Badge, !b.Active)
}
