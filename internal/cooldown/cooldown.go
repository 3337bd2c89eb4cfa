// Package cooldown tracks per-group cooldowns for game keypresses.
package cooldown

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrUnknownGroup = errors.New("unknown cooldown group")

const (
	GroupPrimary = "primary" // kill + lay share this bucket
	GroupCamera  = "camera"
	GroupZoomIn  = "zoom_in"
	GroupZoomOut = "zoom_out"
	GroupExtend  = "extend"
)

// Groups lists every bucket in the order snapshots report them.
var Groups = []string{GroupPrimary, GroupExtend, GroupCamera, GroupZoomIn, GroupZoomOut}

func DefaultDurations() map[string]time.Duration {
	return map[string]time.Duration{
		GroupPrimary: 15 * time.Second,
		GroupCamera:  10 * time.Second,
		GroupZoomIn:  5 * time.Second,
		GroupZoomOut: 5 * time.Second,
		GroupExtend:  30 * time.Second,
	}
}

// Bucket is the wire form of one group's state.
type Bucket struct {
	Active    bool `json:"active"`
	Remaining int  `json:"remaining"`
}

type Snapshot struct {
	Primary Bucket `json:"primary"`
	Extend  Bucket `json:"extend"`
	Camera  Bucket `json:"camera"`
	ZoomIn  Bucket `json:"zoom_in"`
	ZoomOut Bucket `json:"zoom_out"`
}

type Tracker struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	durations map[string]time.Duration
	expires   map[string]time.Time
}

func NewTracker(clock clockwork.Clock, durations map[string]time.Duration) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	d := DefaultDurations()
	for g, v := range durations {
		d[g] = v
	}
	return &Tracker{
		clock:     clock,
		durations: d,
		expires:   make(map[string]time.Time),
	}
}

// Start arms the group's cooldown and returns its duration.
func (t *Tracker) Start(group string) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.durations[group]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	t.expires[group] = t.clock.Now().Add(d)
	return d, nil
}

// Remaining returns the time left on a group, clearing it once expired.
func (t *Tracker) Remaining(group string) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.durations[group]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	return t.remainingLocked(group), nil
}

func (t *Tracker) remainingLocked(group string) time.Duration {
	exp, ok := t.expires[group]
	if !ok {
		return 0
	}
	left := exp.Sub(t.clock.Now())
	if left <= 0 {
		delete(t.expires, group)
		return 0
	}
	return left
}

// Snapshot reports every group. Remaining is truncated to whole seconds; a
// bucket stays active until the cooldown has fully run out.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := func(group string) Bucket {
		left := t.remainingLocked(group)
		return Bucket{Active: left > 0, Remaining: int(left / time.Second)}
	}
	return Snapshot{
		Primary: bucket(GroupPrimary),
		Extend:  bucket(GroupExtend),
		Camera:  bucket(GroupCamera),
		ZoomIn:  bucket(GroupZoomIn),
		ZoomOut: bucket(GroupZoomOut),
	}
}
