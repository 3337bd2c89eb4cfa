package session

import (
	"github.com/DoyleJ11/selection-protocol/internal/cooldown"
	"github.com/DoyleJ11/selection-protocol/internal/engine"
	"github.com/DoyleJ11/selection-protocol/internal/types"
)

// VotePayload projects engine state onto the vote_update wire shape.
func VotePayload(st engine.State) types.VoteUpdate {
	c := st.Counts()
	remaining := st.Remaining
	v := types.VoteUpdate{
		KVotes:        c.K,
		LVotes:        c.L,
		XVotes:        c.X,
		TotalVotes:    c.Total(),
		VoterCount:    len(st.Ballots),
		TimeRemaining: &remaining,
		VotingActive:  st.Active,
		TimerPaused:   st.Paused,
		Cycle:         st.Cycle,
	}
	if st.Claimant != "" {
		claimant := st.Claimant
		v.FirstLClaimant = &claimant
	}
	return v
}

func CooldownPayload(snap cooldown.Snapshot) types.CooldownUpdate {
	b := func(x cooldown.Bucket) *types.CooldownBucket {
		return &types.CooldownBucket{Active: x.Active, Remaining: x.Remaining}
	}
	return types.CooldownUpdate{
		Primary: b(snap.Primary),
		Extend:  b(snap.Extend),
		Camera:  b(snap.Camera),
		ZoomIn:  b(snap.ZoomIn),
		ZoomOut: b(snap.ZoomOut),
	}
}

func AdminPayload(st engine.State, admin AdminState, clients int, log []string) types.AdminStateUpdate {
	c := st.Counts()
	camera := admin.CameraMode
	a := types.AdminStateUpdate{
		CameraMode:       &camera,
		ConnectedClients: &clients,
		TimerDuration:    st.Duration,
		TimerPaused:      st.Paused,
		BotActive:        admin.BotActive,
		ActionLog:        log,
		KVotes:           c.K,
		LVotes:           c.L,
	}
	if admin.LastActionTime != "" {
		action, at := admin.LastAction, admin.LastActionTime
		a.LastAction = &action
		a.LastActionTime = &at
	}
	if a.ActionLog == nil {
		a.ActionLog = []string{}
	}
	return a
}

func (s *Session) voteEnvelope() types.Envelope {
	v := VotePayload(s.state)
	v.Timestamp = s.clock.Now()
	return types.MustEnvelope(types.EvtVoteUpdate, v)
}

func (s *Session) adminEnvelope() types.Envelope {
	return types.MustEnvelope(types.EvtAdminStateUpdate,
		AdminPayload(s.state, s.admin, len(s.clients), s.journal.Lines()))
}

func (s *Session) cooldownEnvelope() types.Envelope {
	return types.MustEnvelope(types.EvtCooldownUpdate, CooldownPayload(s.cooldowns.Snapshot()))
}
