package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/selection-protocol/internal/cooldown"
	"github.com/DoyleJ11/selection-protocol/internal/engine"
	"github.com/DoyleJ11/selection-protocol/internal/journal"
	"github.com/DoyleJ11/selection-protocol/internal/keys"
	"github.com/DoyleJ11/selection-protocol/internal/types"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const keypressTimeout = 5 * time.Second

type Msg interface{ isSessionMsg() }

type FromClient struct {
	ClientID string
	Env      types.Envelope
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan types.Envelope // where this client wants to receive events
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

// ChatVote arrives from the chat bridge rather than a socket client.
type ChatVote struct {
	Username string
	Vote     string
	At       time.Time
}

func (ChatVote) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type AdminState struct {
	CameraMode     string
	LastAction     string
	LastActionTime string
	BotActive      bool
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
	Admin      AdminState
	Cooldowns  cooldown.Snapshot
	ActionLog  []string
}

// Mirror receives a copy of every broadcast event.
type Mirror interface {
	Publish(channel string, env types.Envelope)
}

type Config struct {
	Channel      string
	TimerSec     int
	ResetSec     int // used when admin_reset_timer carries no duration
	TickInterval time.Duration
	AutoStart    bool
}

type Deps struct {
	Clock     clockwork.Clock
	Cooldowns *cooldown.Tracker
	Presser   keys.Presser
	Journal   *journal.Recorder
	Mirror    Mirror
	Logger    *zap.Logger
}

type Session struct {
	inbox   chan Msg
	cfg     Config
	state   engine.State
	admin   AdminState
	version int
	clients map[string]chan types.Envelope

	clock     clockwork.Clock
	cooldowns *cooldown.Tracker
	presser   keys.Presser
	journal   *journal.Recorder
	mirror    Mirror
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(parent context.Context, cfg Config, deps Deps) *Session {
	ctx, cancel := context.WithCancel(parent)

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.ResetSec <= 0 {
		cfg.ResetSec = 30
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Cooldowns == nil {
		deps.Cooldowns = cooldown.NewTracker(deps.Clock, nil)
	}
	if deps.Journal == nil {
		deps.Journal = journal.NewRecorder(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Presser == nil {
		deps.Presser = keys.NewDryRun(deps.Logger)
	}

	s := &Session{
		inbox:     make(chan Msg, 64),
		cfg:       cfg,
		state:     engine.NewState(cfg.TimerSec),
		admin:     AdminState{CameraMode: "unknown"},
		clients:   make(map[string]chan types.Envelope),
		clock:     deps.Clock,
		cooldowns: deps.Cooldowns,
		presser:   deps.Presser,
		journal:   deps.Journal,
		mirror:    deps.Mirror,
		log:       deps.Logger.With(zap.String("component", "session"), zap.String("channel", cfg.Channel)),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	if cfg.AutoStart {
		s.apply(engine.Command{Type: engine.CmdStartCycle, At: s.clock.Now()})
		s.logAction("Vote cycle started", "")
	}

	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)

	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-ticker.Chan():
			events, changed := s.apply(engine.Command{Type: engine.CmdTick, At: s.clock.Now()})
			if changed {
				s.afterChange(events)
			}

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current state immediately
				s.clients[msg.ClientID] = msg.Outbox
				s.logAction("Client connected", fmt.Sprintf("Total: %d", len(s.clients)))
				s.send(msg.ClientID, s.voteEnvelope())
				s.send(msg.ClientID, s.cooldownEnvelope())
				s.broadcast(s.adminEnvelope())

			case Leave:
				if _, ok := s.clients[msg.ClientID]; !ok {
					break
				}
				delete(s.clients, msg.ClientID)
				s.logAction("Client disconnected", fmt.Sprintf("Remaining: %d", len(s.clients)))
				s.broadcast(s.adminEnvelope())

			case FromClient:
				s.handleClient(msg)

			case ChatVote:
				s.castChatVote(msg.Username, msg.Vote, msg.At)

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
					Admin:      s.admin,
					Cooldowns:  s.cooldowns.Snapshot(),
					ActionLog:  s.journal.Lines(),
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch) // Tell client no more events
		delete(s.clients, id)
	}
	s.cancel()
}

// apply runs one engine command. changed is false when the engine rejected it
// or it produced no events.
func (s *Session) apply(cmd engine.Command) ([]engine.Event, bool) {
	events, next, err := engine.Apply(s.state, cmd)
	if err != nil {
		s.log.Debug("command rejected", zap.String("command", string(cmd.Type)), zap.Error(err))
		return nil, false
	}
	if len(events) == 0 {
		return nil, false
	}
	s.state = next
	s.version++
	return events, true
}

func (s *Session) afterChange(events []engine.Event) {
	resolved := false
	for _, ev := range events {
		if ev.Type == engine.EvtActionResolved {
			s.resolve(ev)
			resolved = true
		}
	}
	s.broadcastStates()
	if resolved {
		s.broadcast(s.cooldownEnvelope())
	}
}

// resolve carries out the winning action of a cycle.
func (s *Session) resolve(ev engine.Event) {
	label := "Vote resolved"
	if ev.Forced {
		label = "Force execute"
	}
	if ev.Choice == "" {
		s.logAction(label, "Tie - no action")
		return
	}

	action, ok := engine.LookupAction(ev.Choice)
	if !ok {
		return
	}
	s.logAction(label, fmt.Sprintf("%s (%s)", strings.ToUpper(string(action.Code)), action.Name))
	if action.Keypress == "" {
		return
	}

	if action.CooldownGroup != "" {
		left, err := s.cooldowns.Remaining(action.CooldownGroup)
		if err == nil && left > 0 {
			s.logAction("Action skipped", fmt.Sprintf("%s cooldown %ds", action.CooldownGroup, int(left/time.Second)))
			return
		}
	}
	if err := s.press(action.Keypress); err != nil {
		return
	}
	if action.CooldownGroup != "" {
		s.startCooldown(action.CooldownGroup)
	}
}

func (s *Session) press(key string) error {
	ctx, cancel := context.WithTimeout(s.ctx, keypressTimeout)
	defer cancel()

	if err := s.presser.Press(ctx, key); err != nil {
		s.logAction("Keypress FAILED: "+key, err.Error())
		return err
	}
	s.logAction("Keypress: "+key, "")
	return nil
}

func (s *Session) startCooldown(group string) {
	d, err := s.cooldowns.Start(group)
	if err != nil {
		s.log.Warn("cooldown not started", zap.String("group", group), zap.Error(err))
		return
	}
	s.logAction("Cooldown started", fmt.Sprintf("%s (%ds)", group, int(d/time.Second)))
}

func (s *Session) handleClient(msg FromClient) {
	env := msg.Env
	now := s.clock.Now()

	switch env.Event {
	case types.CmdAdminAddVote, types.CmdAdminRemoveVote:
		var p types.VoteTypePayload
		if !s.decode(msg, &p) {
			return
		}
		choice, ok := engine.ParseChoice(p.VoteType)
		if !ok {
			s.replyError(msg.ClientID, env, fmt.Errorf("%w: %q", engine.ErrInvalidChoice, p.VoteType))
			return
		}
		cmdType, sign := engine.CmdAddVote, "+1"
		if env.Event == types.CmdAdminRemoveVote {
			cmdType, sign = engine.CmdRemoveVote, "-1"
		}
		s.runAdmin(msg, engine.Command{Type: cmdType, Choice: choice, At: now},
			strings.ToUpper(string(choice))+" "+sign, s.countsDetail)

	case types.CmdAdminForceExecute:
		var p types.ForceExecutePayload
		if !s.decode(msg, &p) {
			return
		}
		choice, ok := engine.ParseChoice(p.Action)
		if !ok {
			s.replyError(msg.ClientID, env, fmt.Errorf("%w: %q", engine.ErrInvalidChoice, p.Action))
			return
		}
		s.runAdmin(msg, engine.Command{Type: engine.CmdForceExecute, Choice: choice, At: now}, "", nil)

	case types.CmdAdminPauseTimer:
		s.runAdmin(msg, engine.Command{Type: engine.CmdPauseTimer, At: now}, "Timer paused", nil)

	case types.CmdAdminResumeTimer:
		s.runAdmin(msg, engine.Command{Type: engine.CmdResumeTimer, At: now}, "Timer resumed", nil)

	case types.CmdAdminResetTimer:
		var p types.ResetTimerPayload
		if !s.decode(msg, &p) {
			return
		}
		if p.Duration == 0 {
			p.Duration = s.cfg.ResetSec
		}
		s.runAdmin(msg, engine.Command{Type: engine.CmdResetTimer, Duration: p.Duration, At: now},
			"Timer reset", func() string { return fmt.Sprintf("%ds", p.Duration) })

	case types.CmdAdminStartCycle:
		s.runAdmin(msg, engine.Command{Type: engine.CmdStartCycle, At: now}, "Vote cycle started", nil)

	case types.CmdAdminEndCycle:
		s.runAdmin(msg, engine.Command{Type: engine.CmdEndCycle, At: now}, "Vote cycle ended", nil)

	case types.CmdAdminSendKeypress:
		var p types.KeypressPayload
		if !s.decode(msg, &p) {
			return
		}
		s.sendKeypress(msg.ClientID, env.ID, p)

	case types.CmdGetCooldownState:
		s.send(msg.ClientID, s.cooldownEnvelope())

	case types.CmdGetActions:
		codes := engine.EnabledActions()
		out := make([]string, len(codes))
		for i, c := range codes {
			out[i] = string(c)
		}
		reply := types.MustEnvelope(types.EvtActions, types.ActionsPayload{Actions: out})
		reply.Ref = env.ID
		s.send(msg.ClientID, reply)

	case types.CmdBotConnected:
		var p types.BotConnectedPayload
		if !s.decode(msg, &p) {
			return
		}
		s.admin.BotActive = true
		s.logAction("Twitch bot connected", "@"+p.BotUsername)
		s.broadcast(s.adminEnvelope())

	case types.CmdVoteCast:
		var p types.VoteCastPayload
		if !s.decode(msg, &p) {
			return
		}
		at := now
		if p.Timestamp != "" {
			if t, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
				at = t
			}
		}
		ok := s.castChatVote(p.Username, p.Vote, at)
		reply := types.MustEnvelope(types.EvtVoteCastResult, types.VoteCastResult{Success: ok})
		reply.Ref = env.ID
		s.send(msg.ClientID, reply)

	default:
		s.replyError(msg.ClientID, env, fmt.Errorf("unknown event %q", env.Event))
	}
}

// runAdmin applies an operator command, journals it and broadcasts the result.
func (s *Session) runAdmin(msg FromClient, cmd engine.Command, action string, details func() string) {
	events, next, err := engine.Apply(s.state, cmd)
	if err != nil {
		s.replyError(msg.ClientID, msg.Env, err)
		return
	}
	s.state = next
	s.version++
	if action != "" {
		d := ""
		if details != nil {
			d = details()
		}
		s.logAction(action, d)
	}
	s.afterChange(events)
}

func (s *Session) castChatVote(username, vote string, at time.Time) bool {
	choice, ok := engine.ParseChoice(vote)
	if !ok {
		s.log.Debug("invalid vote ignored", zap.String("username", username), zap.String("vote", vote))
		return false
	}
	events, changed := s.apply(engine.Command{Type: engine.CmdCastVote, Voter: username, Choice: choice, At: at})
	if !changed {
		return false
	}
	s.logAction("Vote: "+username, strings.ToUpper(string(choice)))
	if ev, ok := engine.FindEvent(events, engine.EvtClaimChanged); ok {
		claimant := ev.Voter
		if claimant == "" {
			claimant = "None (no L voters)"
		}
		s.logAction("First-L claim", claimant)
	}
	s.afterChange(events)
	return true
}

func (s *Session) sendKeypress(clientID, ref string, p types.KeypressPayload) {
	reply := func(res types.KeypressResult) {
		env := types.MustEnvelope(types.EvtKeypressResult, res)
		env.Ref = ref
		s.send(clientID, env)
	}

	if p.Key == "" {
		reply(types.KeypressResult{Success: false, Error: "missing key"})
		return
	}

	if p.CooldownGroup != "" {
		left, err := s.cooldowns.Remaining(p.CooldownGroup)
		if err != nil {
			reply(types.KeypressResult{Success: false, Key: p.Key, Error: err.Error()})
			return
		}
		if left > 0 {
			reply(types.KeypressResult{
				Success:       false,
				Key:           p.Key,
				CooldownGroup: p.CooldownGroup,
				Error:         fmt.Sprintf("Cooldown active: %ds remaining", int(left/time.Second)),
			})
			return
		}
	}

	err := s.press(p.Key)
	if err == nil && p.CooldownGroup != "" {
		s.startCooldown(p.CooldownGroup)
	}
	if mode, ok := keys.CameraMode(p.Key); ok {
		s.admin.CameraMode = mode
	}

	if err != nil {
		reply(types.KeypressResult{Success: false, Key: p.Key, CooldownGroup: p.CooldownGroup, Error: err.Error()})
	} else {
		reply(types.KeypressResult{Success: true, Key: p.Key, CooldownGroup: p.CooldownGroup})
	}

	s.broadcastStates()
	s.broadcast(s.cooldownEnvelope())
}

func (s *Session) decode(msg FromClient, v any) bool {
	if err := msg.Env.Decode(v); err != nil {
		s.replyError(msg.ClientID, msg.Env, err)
		return false
	}
	return true
}

func (s *Session) replyError(clientID string, env types.Envelope, err error) {
	s.log.Debug("client command failed", zap.String("event", env.Event), zap.String("client_id", clientID), zap.Error(err))
	reply := types.MustEnvelope(types.EvtError, types.ErrorPayload{Error: err.Error()})
	reply.Ref = env.ID
	s.send(clientID, reply)
}

func (s *Session) logAction(action, details string) {
	now := s.clock.Now()
	s.admin.LastAction = action
	s.admin.LastActionTime = now.Format("15:04:05")

	entry := journal.Entry{Channel: s.cfg.Channel, At: now, Action: action, Details: details}
	if err := s.journal.Append(s.ctx, entry); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("action log write failed", zap.Error(err))
	}
	s.log.Info(entry.Line())
}

func (s *Session) countsDetail() string {
	c := s.state.Counts()
	return fmt.Sprintf("K=%d, L=%d, X=%d", c.K, c.L, c.X)
}

func (s *Session) broadcastStates() {
	s.broadcast(s.voteEnvelope())
	s.broadcast(s.adminEnvelope())
}

func (s *Session) send(clientID string, env types.Envelope) {
	ch, ok := s.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- env:
	default:
		// Client is slow/full - drop them.
		s.log.Warn("dropping slow client", zap.String("client_id", clientID))
		close(ch)
		delete(s.clients, clientID)
	}
}

func (s *Session) broadcast(env types.Envelope) {
	for id := range s.clients {
		s.send(id, env)
	}
	if s.mirror != nil {
		s.mirror.Publish(s.cfg.Channel, env)
	}
}

// Inbox exposes the inbox so the socket layer, the bridge and tests can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Channel() string { return s.cfg.Channel }
