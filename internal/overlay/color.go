// Package overlay projects vote snapshots onto the stream overlay.
package overlay

import "strconv"

// Color is a CSS color value.
type Color string

const (
	ColorSafe    Color = "#00ff88"
	ColorDanger  Color = "#ff0000"
	ColorNeutral Color = "#00ff88" // no votes, or a tie at the top
	ColorKill    Color = "#ff6666"
	ColorLay     Color = "#6666ff"
	ColorExtend  Color = "#00ff88"
	ColorEmpty   Color = "#333333"
)

const (
	rampStart = 15 // seconds where the ramp begins
	rampSpan  = 14
	safeHue   = 158.0
)

// TimerHue is the ramp hue for 1..15 seconds: 158 at 15 down to 0 at 1.
// Values outside the ramp are clamped to its ends.
func TimerHue(seconds int) float64 {
	seconds = min(max(seconds, 1), rampStart)
	progress := float64(rampStart-seconds) / rampSpan
	return safeHue - safeHue*progress
}

func TimerColor(seconds int) Color {
	switch {
	case seconds > rampStart:
		return ColorSafe
	case seconds <= 0:
		return ColorDanger
	}
	hue := strconv.FormatFloat(TimerHue(seconds), 'f', -1, 64)
	return Color("hsl(" + hue + ", 100%, 50%)")
}

// Glow is the color at 50% alpha, used for the timer text shadow.
func Glow(c Color) Color {
	return c + "80"
}

// BorderColor picks the chart outline from the vote counts: the leader's
// color when one category leads alone, neutral otherwise.
func BorderColor(k, l, x int) Color {
	if k+l+x == 0 {
		return ColorNeutral
	}
	top := max(k, l, x)
	leaders := 0
	var leader Color
	for _, c := range []struct {
		n     int
		color Color
	}{{k, ColorKill}, {l, ColorLay}, {x, ColorExtend}} {
		if c.n == top {
			leaders++
			leader = c.color
		}
	}
	if leaders > 1 {
		return ColorNeutral
	}
	return leader
}
