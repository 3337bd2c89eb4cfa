package surface

import (
	htmlpkg "html"
	"math"
	"strconv"
	"strings"

	"github.com/DoyleJ11/selection-protocol/internal/admin"
	"github.com/DoyleJ11/selection-protocol/internal/overlay"
)

const (
	chartSize   = 150
	borderWidth = 4
)

// ChartSVG draws a chart as a single-line SVG element.
func ChartSVG(c overlay.Chart) string {
	center := float64(chartSize) / 2
	r := c.Radius
	if r <= 0 {
		r = overlay.ChartRadius
	}

	var b strings.Builder
	b.WriteString(`<svg id="`)
	b.WriteString(overlay.IDChart)
	b.WriteString(`" width="`)
	b.WriteString(strconv.Itoa(chartSize))
	b.WriteString(`" height="`)
	b.WriteString(strconv.Itoa(chartSize))
	b.WriteString(`" viewBox="0 0 `)
	b.WriteString(strconv.Itoa(chartSize))
	b.WriteString(" ")
	b.WriteString(strconv.Itoa(chartSize))
	b.WriteString(`">`)

	switch {
	case c.Empty || len(c.Wedges) == 0:
		writeCircle(&b, center, r, c.Fill)
	case len(c.Wedges) == 1:
		writeCircle(&b, center, r, c.Wedges[0].Color)
	default:
		for _, w := range c.Wedges {
			writeWedge(&b, center, r, w)
		}
	}

	if c.Border != "" {
		b.WriteString(`<circle cx="`)
		b.WriteString(num(center))
		b.WriteString(`" cy="`)
		b.WriteString(num(center))
		b.WriteString(`" r="`)
		b.WriteString(num(r + borderWidth/2))
		b.WriteString(`" fill="none" stroke="`)
		b.WriteString(htmlpkg.EscapeString(string(c.Border)))
		b.WriteString(`" stroke-width="`)
		b.WriteString(strconv.Itoa(borderWidth))
		b.WriteString(`"/>`)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func writeCircle(b *strings.Builder, center, r float64, fill overlay.Color) {
	b.WriteString(`<circle cx="`)
	b.WriteString(num(center))
	b.WriteString(`" cy="`)
	b.WriteString(num(center))
	b.WriteString(`" r="`)
	b.WriteString(num(r))
	b.WriteString(`" fill="`)
	b.WriteString(htmlpkg.EscapeString(string(fill)))
	b.WriteString(`"/>`)
}

func writeWedge(b *strings.Builder, center, r float64, w overlay.Wedge) {
	x1 := center + r*math.Cos(w.Start)
	y1 := center + r*math.Sin(w.Start)
	x2 := center + r*math.Cos(w.End())
	y2 := center + r*math.Sin(w.End())
	large := "0"
	if w.Sweep > math.Pi {
		large = "1"
	}

	b.WriteString(`<path data-category="`)
	b.WriteString(string(w.Category))
	b.WriteString(`" d="M`)
	b.WriteString(num(center))
	b.WriteString(" ")
	b.WriteString(num(center))
	b.WriteString(" L")
	b.WriteString(num(x1))
	b.WriteString(" ")
	b.WriteString(num(y1))
	b.WriteString(" A")
	b.WriteString(num(r))
	b.WriteString(" ")
	b.WriteString(num(r))
	b.WriteString(" 0 ")
	b.WriteString(large)
	b.WriteString(" 1 ")
	b.WriteString(num(x2))
	b.WriteString(" ")
	b.WriteString(num(y2))
	b.WriteString(` Z" fill="`)
	b.WriteString(htmlpkg.EscapeString(string(w.Color)))
	b.WriteString(`"/>`)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var flatten = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// text escapes s for HTML and folds line breaks into spaces.
func text(s string) string {
	return flatten.Replace(htmlpkg.EscapeString(s))
}

// OverlayFragment renders the overlay body on a single line. A count is marked
// to animate only when it pulsed after the counts recorded in seen, which is
// then updated. A nil seen never animates.
func OverlayFragment(b *Board, seen map[string]int) string {
	var sb strings.Builder
	sb.WriteString(`<div class="overlay">`)

	sb.WriteString(`<div class="counts">`)
	for _, c := range []struct{ id, label string }{
		{overlay.IDKCount, "K"},
		{overlay.IDLCount, "L"},
		{overlay.IDXCount, "X"},
	} {
		e, _ := b.Element(c.id)
		sb.WriteString(`<div class="count"><span class="label">`)
		sb.WriteString(c.label)
		sb.WriteString(`</span><span id="`)
		sb.WriteString(c.id)
		sb.WriteString(`" class="value`)
		if seen != nil {
			if e.Pulses > seen[c.id] {
				sb.WriteString(` animate`)
			}
			seen[c.id] = e.Pulses
		}
		sb.WriteString(`">`)
		sb.WriteString(text(e.Text))
		sb.WriteString(`</span></div>`)
	}
	sb.WriteString(`</div>`)

	claimant, _ := b.Element(overlay.IDClaimant)
	sb.WriteString(`<div id="`)
	sb.WriteString(overlay.IDClaimant)
	sb.WriteString(`" class="claimant">`)
	sb.WriteString(text(claimant.Text))
	sb.WriteString(`</div>`)

	if c, ok := b.Chart(overlay.IDChart); ok {
		sb.WriteString(ChartSVG(c))
	}

	timer, _ := b.Element(overlay.IDTimer)
	sb.WriteString(`<div id="`)
	sb.WriteString(overlay.IDTimer)
	sb.WriteString(`" class="timer"`)
	if timer.Color != "" {
		sb.WriteString(` style="color: `)
		sb.WriteString(text(string(timer.Color)))
		if timer.Glow != "" {
			sb.WriteString(`; text-shadow: 0 0 20px `)
			sb.WriteString(text(string(timer.Glow)))
		}
		sb.WriteString(`"`)
	}
	sb.WriteString(`>`)
	sb.WriteString(text(timer.Text))
	sb.WriteString(`</div>`)

	status, _ := b.Element(overlay.IDStatus)
	sb.WriteString(`<div id="`)
	sb.WriteString(overlay.IDStatus)
	sb.WriteString(`" class="status">`)
	sb.WriteString(text(status.Text))
	sb.WriteString(`</div>`)

	sb.WriteString(`</div>`)
	return sb.String()
}

// AdminSummary renders the admin panel as plain text for a terminal.
func AdminSummary(b *Board) string {
	var sb strings.Builder
	line := func(label, id string) {
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(b.Text(id))
		sb.WriteString("\n")
	}
	line("Last action", admin.IDLastAction)
	line("Camera", admin.IDCameraMode)
	line("Clients", admin.IDClientCount)
	sb.WriteString("Votes: K=" + b.Text(admin.IDKCount) + " L=" + b.Text(admin.IDLCount) + " X=" + b.Text(admin.IDXCount) + "\n")
	line("Timer", admin.IDTimer)
	line("First L", admin.IDFirstL)
	line("Cooldown", admin.IDPrimaryCooldown)

	for _, ctl := range admin.Controls {
		state := "ready"
		if b.Disabled(ctl.Button) {
			state = "disabled"
			if ctl.Badge != "" {
				if e, ok := b.Element(ctl.Badge); ok && !e.Hidden && e.Text != "" {
					state += " (" + e.Text + ")"
				}
			}
		}
		sb.WriteString("  ")
		sb.WriteString(ctl.Name)
		sb.WriteString(" ")
		sb.WriteString(ctl.Label)
		sb.WriteString(": ")
		sb.WriteString(state)
		sb.WriteString("\n")
	}
	return sb.String()
}
