package engine

import "time"

const DefaultTimerSec = 60

func NewState(durationSec int) State {
	if durationSec <= 0 {
		durationSec = DefaultTimerSec
	}
	return State{
		Ballots:   map[string]Ballot{},
		Duration:  durationSec,
		Remaining: durationSec,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	_, ok := FindEvent(events, eventType)
	return ok
}

func FindEvent(events []Event, eventType EventType) (Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return Event{}, false
}

// earliestLayVoter returns the L voter with the oldest ballot. Equal timestamps
// fall back to voter name so the transfer is deterministic.
func earliestLayVoter(ballots map[string]Ballot) (string, time.Time, bool) {
	var (
		voter string
		at    time.Time
		found bool
	)
	for name, b := range ballots {
		if b.Choice != ChoiceLay {
			continue
		}
		if !found || b.CastAt.Before(at) || (b.CastAt.Equal(at) && name < voter) {
			voter, at, found = name, b.CastAt, true
		}
	}
	return voter, at, found
}

// latestVoterFor returns the voter whose ballot for c was cast most recently.
func latestVoterFor(ballots map[string]Ballot, c Choice) (string, bool) {
	var (
		voter string
		at    time.Time
		found bool
	)
	for name, b := range ballots {
		if b.Choice != c {
			continue
		}
		if !found || b.CastAt.After(at) || (b.CastAt.Equal(at) && name > voter) {
			voter, at, found = name, b.CastAt, true
		}
	}
	return voter, found
}
