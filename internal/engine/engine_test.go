package engine

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func activeState() State {
	s := NewState(30)
	s.Active = true
	s.Cycle = 1
	return s
}

func mustApply(t *testing.T, s State, cmd Command) ([]Event, State) {
	t.Helper()
	events, next, err := Apply(s, cmd)
	if err != nil {
		t.Fatalf("Apply(%s): unexpected err %v", cmd.Type, err)
	}
	return events, next
}

func cast(t *testing.T, s State, voter string, c Choice, at time.Time) State {
	t.Helper()
	_, next := mustApply(t, s, Command{Type: CmdCastVote, Voter: voter, Choice: c, At: at})
	return next
}

func TestCastVote_LatestReplacesPrevious(t *testing.T) {
	s := activeState()
	s = cast(t, s, "alice", ChoiceKill, t0)
	s = cast(t, s, "alice", ChoiceExtend, t0.Add(time.Second))

	got := s.Counts()
	if got != (Counts{K: 0, L: 0, X: 1}) {
		t.Fatalf("counts: got %+v, want X=1 only", got)
	}
}

func TestCastVote_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
	}{
		{
			name:    "inactive cycle",
			setup:   NewState(30),
			cmd:     Command{Type: CmdCastVote, Voter: "bob", Choice: ChoiceKill},
			wantErr: ErrCycleInactive,
		},
		{
			name:    "unknown choice",
			setup:   activeState(),
			cmd:     Command{Type: CmdCastVote, Voter: "bob", Choice: "z"},
			wantErr: ErrInvalidChoice,
		},
		{
			name:    "missing voter",
			setup:   activeState(),
			cmd:     Command{Type: CmdCastVote, Choice: ChoiceLay},
			wantErr: ErrMissingVoter,
		},
		{
			name:    "voter with newline",
			setup:   activeState(),
			cmd:     Command{Type: CmdCastVote, Voter: "bob\nevent: x", Choice: ChoiceLay},
			wantErr: ErrBadVoter,
		},
		{
			name:    "remove with no ballots",
			setup:   activeState(),
			cmd:     Command{Type: CmdRemoveVote, Choice: ChoiceLay},
			wantErr: ErrNoVotes,
		},
		{
			name:    "reset with zero duration",
			setup:   activeState(),
			cmd:     Command{Type: CmdResetTimer, Duration: 0},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "unknown command",
			setup:   activeState(),
			cmd:     Command{Type: "Bogus"},
			wantErr: ErrUnsupportedCommand,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, got, err := Apply(tc.setup, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if len(got.Ballots) != len(tc.setup.Ballots) {
				t.Fatalf("state changed on error: %+v", got)
			}
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := activeState()
	s = cast(t, s, "alice", ChoiceKill, t0)

	_, _, err := Apply(s, Command{Type: CmdCastVote, Voter: "bob", Choice: ChoiceLay, At: t0})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if len(s.Ballots) != 1 {
		t.Fatalf("input ballots mutated: %+v", s.Ballots)
	}
}

func TestFirstLayClaim(t *testing.T) {
	s := activeState()
	s = cast(t, s, "alice", ChoiceLay, t0)
	s = cast(t, s, "bob", ChoiceLay, t0.Add(1*time.Second))
	s = cast(t, s, "carol", ChoiceLay, t0.Add(2*time.Second))

	if s.Claimant != "alice" {
		t.Fatalf("first L voter should hold claim, got %q", s.Claimant)
	}

	// alice switches away: the earliest remaining L voter inherits the claim
	events, s := mustApply(t, s, Command{Type: CmdCastVote, Voter: "alice", Choice: ChoiceKill, At: t0.Add(3 * time.Second)})
	if s.Claimant != "bob" {
		t.Fatalf("claim should transfer to bob, got %q", s.Claimant)
	}
	if ev, ok := FindEvent(events, EvtClaimChanged); !ok || ev.Voter != "bob" {
		t.Fatalf("expected ClaimChanged to bob, got %+v", events)
	}

	// alice returns to L: back of the queue
	s = cast(t, s, "alice", ChoiceLay, t0.Add(4*time.Second))
	if s.Claimant != "bob" {
		t.Fatalf("returning voter must not retake claim, got %q", s.Claimant)
	}

	s = cast(t, s, "bob", ChoiceExtend, t0.Add(5*time.Second))
	if s.Claimant != "carol" {
		t.Fatalf("want carol after bob leaves, got %q", s.Claimant)
	}

	s = cast(t, s, "carol", ChoiceExtend, t0.Add(6*time.Second))
	if s.Claimant != "alice" {
		t.Fatalf("want alice (new timestamp) after carol leaves, got %q", s.Claimant)
	}

	s = cast(t, s, "alice", ChoiceExtend, t0.Add(7*time.Second))
	if s.Claimant != "" {
		t.Fatalf("want no claimant when no L voters remain, got %q", s.Claimant)
	}
}

func TestAdminVotes(t *testing.T) {
	s := activeState()
	_, s = mustApply(t, s, Command{Type: CmdAddVote, Choice: ChoiceLay, At: t0})
	_, s = mustApply(t, s, Command{Type: CmdAddVote, Choice: ChoiceLay, At: t0.Add(time.Second)})

	if got := s.Counts().L; got != 2 {
		t.Fatalf("want L=2, got %d", got)
	}
	if s.Claimant != "admin#1" {
		t.Fatalf("want admin#1 claimant, got %q", s.Claimant)
	}

	// removes the most recent ballot first
	events, s := mustApply(t, s, Command{Type: CmdRemoveVote, Choice: ChoiceLay})
	if ev, _ := FindEvent(events, EvtVoteRemoved); ev.Voter != "admin#2" {
		t.Fatalf("want admin#2 removed, got %+v", events)
	}
	if s.Claimant != "admin#1" {
		t.Fatalf("claim should stay with admin#1, got %q", s.Claimant)
	}

	_, s = mustApply(t, s, Command{Type: CmdRemoveVote, Choice: ChoiceLay})
	if s.Claimant != "" || s.Counts().Total() != 0 {
		t.Fatalf("expected empty state, got %+v", s)
	}
}

func TestAddVote_AllowedOutsideCycle(t *testing.T) {
	_, s, err := Apply(NewState(30), Command{Type: CmdAddVote, Choice: ChoiceKill, At: t0})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if s.Counts().K != 1 {
		t.Fatalf("want K=1, got %+v", s.Counts())
	}
}

func TestWinner(t *testing.T) {
	cases := []struct {
		name   string
		votes  map[string]Choice
		want   Choice
		wantOK bool
	}{
		{name: "no votes defaults to extend", votes: nil, want: ChoiceExtend, wantOK: true},
		{name: "unique kill", votes: map[string]Choice{"a": ChoiceKill, "b": ChoiceKill, "c": ChoiceLay}, want: ChoiceKill, wantOK: true},
		{name: "unique extend", votes: map[string]Choice{"a": ChoiceExtend}, want: ChoiceExtend, wantOK: true},
		{name: "k/l tie", votes: map[string]Choice{"a": ChoiceKill, "b": ChoiceLay}, wantOK: false},
		{name: "three way tie", votes: map[string]Choice{"a": ChoiceKill, "b": ChoiceLay, "c": ChoiceExtend}, wantOK: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := activeState()
			for voter, c := range tc.votes {
				s = cast(t, s, voter, c, t0)
			}
			got, ok := s.Winner()
			if ok != tc.wantOK || (ok && got != tc.want) {
				t.Fatalf("Winner: got (%q,%v), want (%q,%v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestTick_CountsDownAndSkipsWhenPaused(t *testing.T) {
	s := activeState()
	events, s := mustApply(t, s, Command{Type: CmdTick})
	if s.Remaining != 29 || !ContainsEvent(events, EvtTimerTicked) {
		t.Fatalf("want remaining 29 with tick event, got %d %+v", s.Remaining, events)
	}

	_, s = mustApply(t, s, Command{Type: CmdPauseTimer})
	events, s = mustApply(t, s, Command{Type: CmdTick})
	if len(events) != 0 || s.Remaining != 29 {
		t.Fatalf("paused tick should be a no-op, got %d %+v", s.Remaining, events)
	}

	_, s = mustApply(t, s, Command{Type: CmdResumeTimer})
	_, s = mustApply(t, s, Command{Type: CmdTick})
	if s.Remaining != 28 {
		t.Fatalf("want 28 after resume, got %d", s.Remaining)
	}
}

func TestTick_InactiveIsNoop(t *testing.T) {
	events, s := mustApply(t, NewState(30), Command{Type: CmdTick})
	if len(events) != 0 || s.Remaining != 30 {
		t.Fatalf("inactive tick should be a no-op, got %d %+v", s.Remaining, events)
	}
}

func TestTick_ExpiryResolvesAndRestarts(t *testing.T) {
	s := activeState()
	s.Remaining = 1
	s = cast(t, s, "alice", ChoiceKill, t0)
	s = cast(t, s, "bob", ChoiceKill, t0)
	s = cast(t, s, "carol", ChoiceLay, t0)

	events, next := mustApply(t, s, Command{Type: CmdTick})

	for _, want := range []EventType{EvtTimerExpired, EvtActionResolved, EvtCycleEnded, EvtCycleStarted} {
		if !ContainsEvent(events, want) {
			t.Fatalf("expected %s in %+v", want, events)
		}
	}
	resolved, _ := FindEvent(events, EvtActionResolved)
	if resolved.Choice != ChoiceKill || resolved.Forced {
		t.Fatalf("want natural kill resolution, got %+v", resolved)
	}
	if next.Cycle != s.Cycle+1 || next.Remaining != next.Duration || len(next.Ballots) != 0 || next.Claimant != "" {
		t.Fatalf("cycle not restarted: %+v", next)
	}
}

func TestTick_ExpiryOnTieResolvesNothing(t *testing.T) {
	s := activeState()
	s.Remaining = 1
	s = cast(t, s, "alice", ChoiceKill, t0)
	s = cast(t, s, "bob", ChoiceLay, t0)

	events, _ := mustApply(t, s, Command{Type: CmdTick})
	resolved, ok := FindEvent(events, EvtActionResolved)
	if !ok || resolved.Choice != "" {
		t.Fatalf("want tie resolution with empty choice, got %+v", events)
	}
}

func TestForceExecute(t *testing.T) {
	s := activeState()
	s = cast(t, s, "alice", ChoiceKill, t0)
	s.Paused = true

	events, next := mustApply(t, s, Command{Type: CmdForceExecute, Choice: ChoiceLay})
	resolved, _ := FindEvent(events, EvtActionResolved)
	if resolved.Choice != ChoiceLay || !resolved.Forced {
		t.Fatalf("want forced L, got %+v", resolved)
	}
	if next.Counts().Total() != 0 || !next.Active {
		t.Fatalf("want fresh active cycle, got %+v", next)
	}
	if !next.Paused {
		t.Fatalf("force execute must not unpause the timer")
	}
}

func TestResetTimer(t *testing.T) {
	s := activeState()
	s.Remaining = 3
	_, s = mustApply(t, s, Command{Type: CmdResetTimer, Duration: 45})
	if s.Duration != 45 || s.Remaining != 45 {
		t.Fatalf("want 45/45, got %d/%d", s.Duration, s.Remaining)
	}
}

func TestParseChoice(t *testing.T) {
	if c, ok := ParseChoice(" K "); !ok || c != ChoiceKill {
		t.Fatalf("want k, got %q %v", c, ok)
	}
	if _, ok := ParseChoice("kill"); ok {
		t.Fatalf("words are not votes")
	}
	if got := EnabledActions(); len(got) != 3 {
		t.Fatalf("want 3 enabled actions, got %v", got)
	}
}
