package engine

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

var ErrInvalidChoice = errors.New("invalid vote choice")
var ErrMissingVoter = errors.New("missing voter")
var ErrBadVoter = errors.New("voter name has control characters")
var ErrNoVotes = errors.New("no votes to remove")
var ErrInvalidDuration = errors.New("invalid timer duration")
var ErrCycleInactive = errors.New("voting cycle not active")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Choice string

const (
	ChoiceKill   Choice = "k"
	ChoiceLay    Choice = "l"
	ChoiceExtend Choice = "x"
)

type Ballot struct {
	Choice Choice
	CastAt time.Time
}

type State struct {
	Ballots   map[string]Ballot
	Claimant  string // first-L claimant, "" when nobody holds the claim
	ClaimedAt time.Time
	Active    bool
	Cycle     int
	Remaining int
	Duration  int
	Paused    bool
	AdminSeq  int
}

type Counts struct {
	K int
	L int
	X int
}

func (c Counts) Total() int { return c.K + c.L + c.X }

func (s State) Counts() Counts {
	var c Counts
	for _, b := range s.Ballots {
		switch b.Choice {
		case ChoiceKill:
			c.K++
		case ChoiceLay:
			c.L++
		case ChoiceExtend:
			c.X++
		}
	}
	return c
}

// Winner returns the leading choice. No votes defaults to extend; a tie at the
// maximum returns ok=false.
func (s State) Winner() (Choice, bool) {
	c := s.Counts()
	if c.Total() == 0 {
		return ChoiceExtend, true
	}
	best := max(c.K, c.L, c.X)
	var leaders []Choice
	if c.K == best {
		leaders = append(leaders, ChoiceKill)
	}
	if c.L == best {
		leaders = append(leaders, ChoiceLay)
	}
	if c.X == best {
		leaders = append(leaders, ChoiceExtend)
	}
	if len(leaders) > 1 {
		return "", false
	}
	return leaders[0], true
}

type CommandType string

const (
	CmdCastVote     CommandType = "CastVote"
	CmdAddVote      CommandType = "AddVote"
	CmdRemoveVote   CommandType = "RemoveVote"
	CmdStartCycle   CommandType = "StartCycle"
	CmdEndCycle     CommandType = "EndCycle"
	CmdPauseTimer   CommandType = "PauseTimer"
	CmdResumeTimer  CommandType = "ResumeTimer"
	CmdResetTimer   CommandType = "ResetTimer"
	CmdTick         CommandType = "Tick"
	CmdForceExecute CommandType = "ForceExecute"
)

/*
	CmdCastVote     -> EvtVoteCast -> EvtClaimChanged (when the first-L claim moves)
	CmdAddVote      -> same as CastVote under a synthetic "admin#N" voter
	CmdRemoveVote   -> EvtVoteRemoved -> EvtClaimChanged
	CmdTick         -> EvtTimerTicked, or at zero:
	                   EvtTimerExpired -> EvtActionResolved -> EvtCycleEnded -> EvtCycleStarted
	CmdForceExecute -> EvtActionResolved(forced) -> EvtCycleEnded -> EvtCycleStarted
*/

type Command struct {
	Type     CommandType
	Voter    string
	Choice   Choice
	Duration int
	At       time.Time
}

type EventType string

const (
	EvtVoteCast       EventType = "VoteCast"
	EvtVoteRemoved    EventType = "VoteRemoved"
	EvtClaimChanged   EventType = "ClaimChanged"
	EvtCycleStarted   EventType = "CycleStarted"
	EvtCycleEnded     EventType = "CycleEnded"
	EvtTimerPaused    EventType = "TimerPaused"
	EvtTimerResumed   EventType = "TimerResumed"
	EvtTimerReset     EventType = "TimerReset"
	EvtTimerTicked    EventType = "TimerTicked"
	EvtTimerExpired   EventType = "TimerExpired"
	EvtActionResolved EventType = "ActionResolved"
)

type Event struct {
	Type      EventType
	Voter     string
	Choice    Choice // winner for EvtActionResolved, "" on a tie
	Forced    bool
	Remaining int
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s
	newState.Ballots = maps.Clone(s.Ballots)
	if newState.Ballots == nil {
		newState.Ballots = map[string]Ballot{}
	}

	switch cmd.Type {
	case CmdCastVote:
		if !s.Active {
			return nil, s, ErrCycleInactive
		}
		if cmd.Voter == "" {
			return nil, s, ErrMissingVoter
		}
		if !ValidVoter(cmd.Voter) {
			return nil, s, fmt.Errorf("%w: %q", ErrBadVoter, cmd.Voter)
		}
		if !IsValidAction(cmd.Choice) {
			return nil, s, fmt.Errorf("%w: %q", ErrInvalidChoice, cmd.Choice)
		}
		return castBallot(&newState, cmd.Voter, cmd.Choice, cmd.At), newState, nil

	case CmdAddVote:
		if !IsValidAction(cmd.Choice) {
			return nil, s, fmt.Errorf("%w: %q", ErrInvalidChoice, cmd.Choice)
		}
		newState.AdminSeq++
		voter := fmt.Sprintf("admin#%d", newState.AdminSeq)
		return castBallot(&newState, voter, cmd.Choice, cmd.At), newState, nil

	case CmdRemoveVote:
		if !IsValidAction(cmd.Choice) {
			return nil, s, fmt.Errorf("%w: %q", ErrInvalidChoice, cmd.Choice)
		}
		voter, ok := latestVoterFor(newState.Ballots, cmd.Choice)
		if !ok {
			return nil, s, ErrNoVotes
		}
		delete(newState.Ballots, voter)
		events := []Event{{Type: EvtVoteRemoved, Voter: voter, Choice: cmd.Choice}}
		if voter == newState.Claimant {
			events = append(events, reassignClaim(&newState))
		}
		return events, newState, nil

	case CmdStartCycle:
		newState.Paused = false
		return []Event{restart(&newState)}, newState, nil

	case CmdEndCycle:
		if !s.Active {
			return nil, s, ErrCycleInactive
		}
		newState.Active = false
		return []Event{{Type: EvtCycleEnded}}, newState, nil

	case CmdPauseTimer:
		newState.Paused = true
		return []Event{{Type: EvtTimerPaused, Remaining: newState.Remaining}}, newState, nil

	case CmdResumeTimer:
		newState.Paused = false
		return []Event{{Type: EvtTimerResumed, Remaining: newState.Remaining}}, newState, nil

	case CmdResetTimer:
		if cmd.Duration <= 0 {
			return nil, s, fmt.Errorf("%w: %d", ErrInvalidDuration, cmd.Duration)
		}
		newState.Duration = cmd.Duration
		newState.Remaining = cmd.Duration
		return []Event{{Type: EvtTimerReset, Remaining: cmd.Duration}}, newState, nil

	case CmdTick:
		if !s.Active || s.Paused {
			return nil, s, nil
		}
		newState.Remaining--
		if newState.Remaining > 0 {
			return []Event{{Type: EvtTimerTicked, Remaining: newState.Remaining}}, newState, nil
		}
		winner, _ := newState.Winner()
		events := []Event{
			{Type: EvtTimerExpired},
			{Type: EvtActionResolved, Choice: winner},
			{Type: EvtCycleEnded},
		}
		events = append(events, restart(&newState))
		return events, newState, nil

	case CmdForceExecute:
		if !IsValidAction(cmd.Choice) {
			return nil, s, fmt.Errorf("%w: %q", ErrInvalidChoice, cmd.Choice)
		}
		events := []Event{
			{Type: EvtActionResolved, Choice: cmd.Choice, Forced: true},
			{Type: EvtCycleEnded},
		}
		events = append(events, restart(&newState))
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// castBallot records the ballot (latest replaces previous) and applies the
// first-L claim rules.
func castBallot(s *State, voter string, choice Choice, at time.Time) []Event {
	prev, had := s.Ballots[voter]
	s.Ballots[voter] = Ballot{Choice: choice, CastAt: at}
	events := []Event{{Type: EvtVoteCast, Voter: voter, Choice: choice}}

	switch {
	case choice == ChoiceLay && (!had || prev.Choice != ChoiceLay):
		if s.Claimant == "" {
			s.Claimant = voter
			s.ClaimedAt = at
			events = append(events, Event{Type: EvtClaimChanged, Voter: voter})
		}
	case had && prev.Choice == ChoiceLay && choice != ChoiceLay:
		if voter == s.Claimant {
			events = append(events, reassignClaim(s))
		}
	}
	return events
}

func reassignClaim(s *State) Event {
	voter, at, ok := earliestLayVoter(s.Ballots)
	if !ok {
		s.Claimant = ""
		s.ClaimedAt = time.Time{}
		return Event{Type: EvtClaimChanged}
	}
	s.Claimant = voter
	s.ClaimedAt = at
	return Event{Type: EvtClaimChanged, Voter: voter}
}

func restart(s *State) Event {
	s.Active = true
	s.Cycle++
	s.Ballots = map[string]Ballot{}
	s.Claimant = ""
	s.ClaimedAt = time.Time{}
	s.Remaining = s.Duration
	return Event{Type: EvtCycleStarted, Remaining: s.Remaining}
}
