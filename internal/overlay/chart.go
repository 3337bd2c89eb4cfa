package overlay

import "math"

type Category string

const (
	CategoryKill   Category = "k"
	CategoryLay    Category = "l"
	CategoryExtend Category = "x"
)

const (
	ChartRadius = 60.0
	FullTurn    = 2 * math.Pi
	// StartAngle is 12 o'clock in screen coordinates (y grows downward).
	StartAngle = -math.Pi / 2
)

// Wedge is one slice of the chart. Angles are radians, clockwise on screen.
type Wedge struct {
	Category Category
	Color    Color
	Start    float64
	Sweep    float64
}

func (w Wedge) End() float64 { return w.Start + w.Sweep }

// Chart is a complete drawing. An empty chart is a filled disc with no wedges.
type Chart struct {
	Radius float64
	Empty  bool
	Fill   Color
	Wedges []Wedge
	Border Color
}

// DrawChart lays out the wedges in the fixed order lay, extend, kill,
// starting at 12 o'clock. Zero counts draw nothing.
func DrawChart(k, l, x int) Chart {
	c := Chart{Radius: ChartRadius, Border: BorderColor(k, l, x)}
	total := k + l + x
	if total <= 0 {
		c.Empty = true
		c.Fill = ColorEmpty
		return c
	}

	parts := []struct {
		cat   Category
		color Color
		n     int
	}{
		{CategoryLay, ColorLay, l},
		{CategoryExtend, ColorExtend, x},
		{CategoryKill, ColorKill, k},
	}

	last := -1
	for i, s := range parts {
		if s.n > 0 {
			last = i
		}
	}

	angle := StartAngle
	for i, s := range parts {
		if s.n <= 0 {
			continue
		}
		sweep := float64(s.n) / float64(total) * FullTurn
		if i == last {
			// close the turn exactly
			sweep = StartAngle + FullTurn - angle
		}
		c.Wedges = append(c.Wedges, Wedge{Category: s.cat, Color: s.color, Start: angle, Sweep: sweep})
		angle += sweep
	}
	return c
}
