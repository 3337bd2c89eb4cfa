package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is one named event on the socket, in either direction.
type Envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`  // client-generated correlation token
	Ref   string          `json:"ref,omitempty"` // echoes the ID of the command a result answers
	Data  json.RawMessage `json:"data,omitempty"`
}

// Server -> client
const (
	EvtVoteUpdate       = "vote_update"
	EvtAdminStateUpdate = "admin_state_update"
	EvtCooldownUpdate   = "cooldown_update"
	EvtKeypressResult   = "keypress_result"
	EvtActions          = "actions"
	EvtVoteCastResult   = "vote_cast_result"
	EvtError            = "error"
)

// Client -> server
const (
	CmdAdminAddVote      = "admin_add_vote"
	CmdAdminRemoveVote   = "admin_remove_vote"
	CmdAdminForceExecute = "admin_force_execute"
	CmdAdminPauseTimer   = "admin_pause_timer"
	CmdAdminResumeTimer  = "admin_resume_timer"
	CmdAdminResetTimer   = "admin_reset_timer"
	CmdAdminStartCycle   = "admin_start_cycle"
	CmdAdminEndCycle     = "admin_end_cycle"
	CmdAdminSendKeypress = "admin_send_keypress"
	CmdGetCooldownState  = "get_cooldown_state"
	CmdGetActions        = "get_actions"
	CmdBotConnected      = "bot_connected"
	CmdVoteCast          = "vote_cast"
)

type VoteUpdate struct {
	KVotes         int       `json:"k_votes"`
	LVotes         int       `json:"l_votes"`
	XVotes         int       `json:"x_votes"`
	TotalVotes     int       `json:"total_votes"`
	VoterCount     int       `json:"voter_count"`
	TimeRemaining  *int      `json:"time_remaining,omitempty"`
	VotingActive   bool      `json:"voting_active"`
	TimerPaused    bool      `json:"timer_paused"`
	FirstLClaimant *string   `json:"first_l_claimant"`
	Cycle          int       `json:"cycle"`
	Timestamp      time.Time `json:"timestamp"`
}

type AdminStateUpdate struct {
	LastAction       *string  `json:"last_action,omitempty"`
	LastActionTime   *string  `json:"last_action_time,omitempty"`
	CameraMode       *string  `json:"camera_mode,omitempty"`
	ConnectedClients *int     `json:"connected_clients,omitempty"`
	TimerDuration    int      `json:"timer_duration"`
	TimerPaused      bool     `json:"timer_paused"`
	BotActive        bool     `json:"twitch_bot_active"`
	ActionLog        []string `json:"action_log"`
	KVotes           int      `json:"k_votes"`
	LVotes           int      `json:"l_votes"`
}

type CooldownBucket struct {
	Active    bool `json:"active"`
	Remaining int  `json:"remaining"`
}

// CooldownUpdate leaves a bucket nil when the server did not report it.
type CooldownUpdate struct {
	Primary *CooldownBucket `json:"primary,omitempty"`
	Extend  *CooldownBucket `json:"extend,omitempty"`
	Camera  *CooldownBucket `json:"camera,omitempty"`
	ZoomIn  *CooldownBucket `json:"zoom_in,omitempty"`
	ZoomOut *CooldownBucket `json:"zoom_out,omitempty"`
}

type KeypressResult struct {
	Success       bool   `json:"success"`
	Key           string `json:"key,omitempty"`
	CooldownGroup string `json:"cooldown_group,omitempty"`
	Error         string `json:"error,omitempty"`
}

type VoteTypePayload struct {
	VoteType string `json:"vote_type"`
}

type ForceExecutePayload struct {
	Action string `json:"action"`
}

type ResetTimerPayload struct {
	Duration int `json:"duration"`
}

type KeypressPayload struct {
	Key           string `json:"key"`
	CooldownGroup string `json:"cooldown_group,omitempty"`
}

type VoteCastPayload struct {
	Username  string `json:"username"`
	Vote      string `json:"vote"`
	Timestamp string `json:"timestamp,omitempty"`
}

type VoteCastResult struct {
	Success bool `json:"success"`
}

type BotConnectedPayload struct {
	BotID       string `json:"bot_id"`
	BotUsername string `json:"bot_username"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type ActionsPayload struct {
	Actions []string `json:"actions"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// NewEnvelope marshals payload into an envelope. A nil payload leaves Data empty.
func NewEnvelope(event string, payload any) (Envelope, error) {
	env := Envelope{Event: event}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	env.Data = data
	return env, nil
}

// MustEnvelope is NewEnvelope for payloads that always marshal (the structs in this file).
func MustEnvelope(event string, payload any) Envelope {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// Decode unmarshals the envelope data into v. Empty data leaves v untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return nil
}
