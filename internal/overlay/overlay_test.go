package overlay

import (
	"math"
	"testing"

	"github.com/DoyleJ11/selection-protocol/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	text   map[string]string
	color  map[string]Color
	glow   map[string]Color
	pulses map[string]int
	charts []Chart
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		text:   map[string]string{},
		color:  map[string]Color{},
		glow:   map[string]Color{},
		pulses: map[string]int{},
	}
}

func (f *fakeSurface) Text(id string) string        { return f.text[id] }
func (f *fakeSurface) SetText(id, text string)      { f.text[id] = text }
func (f *fakeSurface) Pulse(id string)              { f.pulses[id]++ }
func (f *fakeSurface) SetColor(id string, c Color)  { f.color[id] = c }
func (f *fakeSurface) SetGlow(id string, c Color)   { f.glow[id] = c }
func (f *fakeSurface) DrawChart(id string, c Chart) { f.charts = append(f.charts, c) }

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func TestTimerColor_Ends(t *testing.T) {
	for _, s := range []int{16, 17, 30, 60, 1000} {
		assert.Equal(t, ColorSafe, TimerColor(s), "seconds=%d", s)
	}
	for _, s := range []int{0, -1, -60} {
		assert.Equal(t, ColorDanger, TimerColor(s), "seconds=%d", s)
	}
}

func TestTimerColor_Ramp(t *testing.T) {
	assert.Equal(t, Color("hsl(158, 100%, 50%)"), TimerColor(15))
	assert.Equal(t, Color("hsl(0, 100%, 50%)"), TimerColor(1))
	assert.Equal(t, Color("hsl(79, 100%, 50%)"), TimerColor(8))

	// hue falls strictly as time runs out
	prev := TimerHue(15)
	for s := 14; s >= 1; s-- {
		h := TimerHue(s)
		assert.Less(t, h, prev, "seconds=%d", s)
		assert.Equal(t, TimerColor(s), TimerColor(s), "pure")
		prev = h
	}
}

func TestBorderColor(t *testing.T) {
	cases := []struct {
		name    string
		k, l, x int
		want    Color
	}{
		{"no votes", 0, 0, 0, ColorNeutral},
		{"kill leads", 3, 1, 1, ColorKill},
		{"lay leads", 0, 2, 1, ColorLay},
		{"extend leads", 1, 0, 5, ColorExtend},
		{"kill lay tie", 2, 2, 1, ColorNeutral},
		{"kill extend tie", 4, 0, 4, ColorNeutral},
		{"lay extend tie", 1, 3, 3, ColorNeutral},
		{"three way tie", 2, 2, 2, ColorNeutral},
		{"single kill", 1, 0, 0, ColorKill},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BorderColor(tc.k, tc.l, tc.x))
		})
	}
}

func TestDrawChart_Empty(t *testing.T) {
	c := DrawChart(0, 0, 0)
	assert.True(t, c.Empty)
	assert.Equal(t, ColorEmpty, c.Fill)
	assert.Empty(t, c.Wedges)
	assert.Equal(t, ChartRadius, c.Radius)
	assert.Equal(t, ColorNeutral, c.Border)
}

func TestDrawChart_WedgesSumToFullTurn(t *testing.T) {
	counts := [][3]int{{1, 1, 1}, {3, 1, 1}, {0, 7, 2}, {5, 0, 0}, {1, 2, 0}, {13, 17, 19}}
	for _, kc := range counts {
		c := DrawChart(kc[0], kc[1], kc[2])
		require.False(t, c.Empty)

		sum := 0.0
		angle := StartAngle
		for _, w := range c.Wedges {
			assert.Greater(t, w.Sweep, 0.0)
			assert.InDelta(t, angle, w.Start, 1e-12, "wedges must be contiguous")
			sum += w.Sweep
			angle = w.End()
		}
		assert.InDelta(t, FullTurn, sum, 1e-12, "counts=%v", kc)
		assert.InDelta(t, StartAngle+FullTurn, c.Wedges[len(c.Wedges)-1].End(), 1e-12)
	}
}

func TestDrawChart_OrderAndZeroCategories(t *testing.T) {
	c := DrawChart(2, 1, 1)
	require.Len(t, c.Wedges, 3)
	assert.Equal(t, CategoryLay, c.Wedges[0].Category)
	assert.Equal(t, CategoryExtend, c.Wedges[1].Category)
	assert.Equal(t, CategoryKill, c.Wedges[2].Category)
	assert.Equal(t, StartAngle, c.Wedges[0].Start)
	assert.InDelta(t, math.Pi/2, c.Wedges[0].Sweep, 1e-12)
	assert.InDelta(t, math.Pi, c.Wedges[2].Sweep, 1e-12)
	assert.Equal(t, ColorKill, c.Border)

	c = DrawChart(0, 3, 0)
	require.Len(t, c.Wedges, 1)
	assert.Equal(t, CategoryLay, c.Wedges[0].Category)
	assert.Equal(t, ColorLay, c.Wedges[0].Color)

	c = DrawChart(1, 0, 1)
	require.Len(t, c.Wedges, 2)
	for _, w := range c.Wedges {
		assert.NotEqual(t, CategoryLay, w.Category)
	}
}

func TestRenderer_VoteUpdate(t *testing.T) {
	s := newFakeSurface()
	r := NewRenderer(s, nil)
	require.Len(t, s.charts, 1, "initial empty chart")

	r.HandleVoteUpdate(types.VoteUpdate{
		KVotes:        3,
		LVotes:        1,
		XVotes:        1,
		TimeRemaining: intp(10),
		VotingActive:  true,
	})

	assert.Equal(t, "3", s.text[IDKCount])
	assert.Equal(t, "1", s.text[IDLCount])
	assert.Equal(t, "1", s.text[IDXCount])
	assert.Equal(t, "10s", s.text[IDTimer])
	assert.Equal(t, TimerColor(10), s.color[IDTimer])
	assert.Equal(t, Color(string(TimerColor(10))+"80"), s.glow[IDTimer])
	assert.Equal(t, StatusActive, s.text[IDStatus])
	assert.Equal(t, "", s.text[IDClaimant])

	require.Len(t, s.charts, 2)
	assert.Equal(t, ColorKill, s.charts[1].Border)
}

func TestRenderer_IdenticalUpdatesDoNotPulse(t *testing.T) {
	s := newFakeSurface()
	r := NewRenderer(s, nil)
	v := types.VoteUpdate{KVotes: 2, LVotes: 0, XVotes: 1, TimeRemaining: intp(30), VotingActive: true}

	r.HandleVoteUpdate(v)
	assert.Equal(t, 1, s.pulses[IDKCount])
	assert.Equal(t, 1, s.pulses[IDLCount], "empty to 0 is a change")
	assert.Equal(t, 1, s.pulses[IDXCount])

	r.HandleVoteUpdate(v)
	assert.Equal(t, 1, s.pulses[IDKCount])
	assert.Equal(t, 1, s.pulses[IDLCount])
	assert.Equal(t, 1, s.pulses[IDXCount])
	assert.Len(t, s.charts, 3, "chart redrawn every pass")

	v.LVotes = 1
	r.HandleVoteUpdate(v)
	assert.Equal(t, 1, s.pulses[IDKCount])
	assert.Equal(t, 2, s.pulses[IDLCount])
}

func TestRenderer_MissingTimerLeavesItAlone(t *testing.T) {
	s := newFakeSurface()
	r := NewRenderer(s, nil)

	r.HandleVoteUpdate(types.VoteUpdate{TimeRemaining: intp(5), VotingActive: true})
	r.HandleVoteUpdate(types.VoteUpdate{FirstLClaimant: strp("alice")})

	assert.Equal(t, "5s", s.text[IDTimer])
	assert.Equal(t, TimerColor(5), s.color[IDTimer])
	assert.Equal(t, "alice", s.text[IDClaimant])
	assert.Equal(t, StatusWaiting, s.text[IDStatus])
}

func TestRenderer_HandleEnvelope(t *testing.T) {
	s := newFakeSurface()
	r := NewRenderer(s, nil)

	r.Handle(types.MustEnvelope(types.EvtVoteUpdate, types.VoteUpdate{KVotes: 4}))
	assert.Equal(t, "4", s.text[IDKCount])

	r.Handle(types.Envelope{Event: types.EvtVoteUpdate, Data: []byte(`{"k_votes":"lots"}`)})
	assert.Equal(t, "4", s.text[IDKCount], "bad payload skipped")
}
