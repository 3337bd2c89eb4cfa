// Package admin is the operator side: outbound commands and the panel that
// mirrors server state.
package admin

import (
	"context"
	"time"

	"github.com/DoyleJ11/selection-protocol/internal/types"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ResetDuration is the timer length admin_reset_timer always asks for.
const ResetDuration = 30

const DefaultPollInterval = time.Second

// Emitter sends one command without waiting for an answer.
type Emitter interface {
	Emit(event string, payload any) (string, error)
}

type Config struct {
	// Cooldowns turns on the cooldown subsystem: keypresses carry their
	// group, the panel tracks cooldown_update and the poller runs.
	Cooldowns    bool
	PollInterval time.Duration
}

type Dispatcher struct {
	em    Emitter
	cfg   Config
	clock clockwork.Clock
	log   *zap.Logger
}

func NewDispatcher(em Emitter, cfg Config, clock clockwork.Clock, logger *zap.Logger) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{em: em, cfg: cfg, clock: clock, log: logger.With(zap.String("component", "admin"))}
}

func (d *Dispatcher) AddVote(voteType string) {
	d.emit(types.CmdAdminAddVote, types.VoteTypePayload{VoteType: voteType})
}

func (d *Dispatcher) RemoveVote(voteType string) {
	d.emit(types.CmdAdminRemoveVote, types.VoteTypePayload{VoteType: voteType})
}

func (d *Dispatcher) ForceExecute(action string) {
	d.emit(types.CmdAdminForceExecute, types.ForceExecutePayload{Action: action})
}

func (d *Dispatcher) PauseTimer()  { d.emit(types.CmdAdminPauseTimer, nil) }
func (d *Dispatcher) ResumeTimer() { d.emit(types.CmdAdminResumeTimer, nil) }

func (d *Dispatcher) ResetTimer() {
	d.emit(types.CmdAdminResetTimer, types.ResetTimerPayload{Duration: ResetDuration})
}

// SendKeypress drops the group when cooldowns are off, so the server
// presses the key unconditionally.
func (d *Dispatcher) SendKeypress(key, group string) {
	p := types.KeypressPayload{Key: key}
	if d.cfg.Cooldowns {
		p.CooldownGroup = group
	}
	d.emit(types.CmdAdminSendKeypress, p)
}

func (d *Dispatcher) RequestCooldowns() {
	d.emit(types.CmdGetCooldownState, nil)
}

// Poll asks for cooldown state every PollInterval until ctx ends. It returns
// at once when cooldowns are off.
func (d *Dispatcher) Poll(ctx context.Context) {
	if !d.cfg.Cooldowns {
		return
	}
	ticker := d.clock.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			d.RequestCooldowns()
		}
	}
}

func (d *Dispatcher) emit(event string, payload any) {
	id, err := d.em.Emit(event, payload)
	if err != nil {
		d.log.Warn("command not sent", zap.String("event", event), zap.Error(err))
		return
	}
	if event != types.CmdGetCooldownState {
		d.log.Debug("command sent", zap.String("event", event), zap.String("id", id))
	}
}
