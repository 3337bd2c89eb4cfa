// Package surface is the in-memory display the overlay and admin panel draw
// on, plus the HTML it renders to.
package surface

import (
	"sync"

	"github.com/DoyleJ11/selection-protocol/internal/overlay"
)

type Element struct {
	Text     string
	Color    overlay.Color
	Glow     overlay.Color
	Disabled bool
	Hidden   bool
	Pulses   int // bumps on every pulse
}

// Board is safe for concurrent use. Elements are created on first write.
type Board struct {
	mu      sync.RWMutex
	elems   map[string]*Element
	charts  map[string]overlay.Chart
	version uint64
	subs    map[chan struct{}]struct{}
}

func NewBoard() *Board {
	return &Board{
		elems:  make(map[string]*Element),
		charts: make(map[string]overlay.Chart),
		subs:   make(map[chan struct{}]struct{}),
	}
}

func (b *Board) Text(id string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.elems[id]; ok {
		return e.Text
	}
	return ""
}

func (b *Board) SetText(id, text string) {
	b.update(id, func(e *Element) bool {
		if e.Text == text {
			return false
		}
		e.Text = text
		return true
	})
}

func (b *Board) Pulse(id string) {
	b.update(id, func(e *Element) bool {
		e.Pulses++
		return true
	})
}

func (b *Board) SetColor(id string, c overlay.Color) {
	b.update(id, func(e *Element) bool {
		if e.Color == c {
			return false
		}
		e.Color = c
		return true
	})
}

func (b *Board) SetGlow(id string, c overlay.Color) {
	b.update(id, func(e *Element) bool {
		if e.Glow == c {
			return false
		}
		e.Glow = c
		return true
	})
}

func (b *Board) SetDisabled(id string, disabled bool) {
	b.update(id, func(e *Element) bool {
		if e.Disabled == disabled {
			return false
		}
		e.Disabled = disabled
		return true
	})
}

func (b *Board) SetHidden(id string, hidden bool) {
	b.update(id, func(e *Element) bool {
		if e.Hidden == hidden {
			return false
		}
		e.Hidden = hidden
		return true
	})
}

func (b *Board) Disabled(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.elems[id]
	return ok && e.Disabled
}

// DrawChart replaces the chart wholesale.
func (b *Board) DrawChart(id string, c overlay.Chart) {
	b.mu.Lock()
	b.charts[id] = c
	b.version++
	b.mu.Unlock()
	b.notify()
}

func (b *Board) Chart(id string) (overlay.Chart, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.charts[id]
	return c, ok
}

func (b *Board) Element(id string) (Element, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.elems[id]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// Version increases on every visible change.
func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Subscribe returns a channel that receives a signal after changes. Signals
// coalesce: a slow reader sees one pending signal, not one per change.
func (b *Board) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
}

func (b *Board) update(id string, fn func(e *Element) bool) {
	b.mu.Lock()
	e, ok := b.elems[id]
	if !ok {
		e = &Element{}
		b.elems[id] = e
	}
	changed := fn(e)
	if changed {
		b.version++
	}
	b.mu.Unlock()
	if changed {
		b.notify()
	}
}

func (b *Board) notify() {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
