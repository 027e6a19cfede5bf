// Package pressing models how a pressed flower ages.
//
// Everything here is a pure function of the number of whole days elapsed
// since the flower was taken.  There are no invalid inputs: negative day
// counts (a date taken in the future) classify as Fresh and render at the
// freshest extreme.
package pressing

import (
	"fmt"
	"math"
	"time"
)

// Stage is the discrete pressing stage of a flower.
type Stage int

const (
	Fresh Stage = iota
	Pressing
	Pressed
	Preserved
)

// Day boundaries between stages.  Lower edges are inclusive: day 7 is
// Pressing, day 30 is Pressed, day 90 is Preserved.
const (
	pressingStartDays  = 7
	pressedStartDays   = 30
	preservedStartDays = 90
)

func (s Stage) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Pressing:
		return "pressing"
	case Pressed:
		return "pressed"
	case Preserved:
		return "preserved"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// DisplayName is the capitalized form shown on flower cards.
func (s Stage) DisplayName() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Pressing:
		return "Pressing"
	case Pressed:
		return "Pressed"
	case Preserved:
		return "Preserved"
	}
	return s.String()
}

// ParseStage maps the lowercase stage names used in filter query parameters
// back to a Stage.
func ParseStage(text string) (Stage, error) {
	switch text {
	case "fresh":
		return Fresh, nil
	case "pressing":
		return Pressing, nil
	case "pressed":
		return Pressed, nil
	case "preserved":
		return Preserved, nil
	}
	return Fresh, fmt.Errorf("unknown pressing stage %q", text)
}

// DaysElapsed returns the floor of (reference - dateTaken) in whole days.
// The result is negative when dateTaken is after reference.
func DaysElapsed(reference, dateTaken time.Time) int {
	return int(math.Floor(reference.Sub(dateTaken).Hours() / 24))
}

// ClassifyStage maps an elapsed day count onto a Stage.
func ClassifyStage(days int) Stage {
	switch {
	case days < pressingStartDays:
		return Fresh
	case days < pressedStartDays:
		return Pressing
	case days < preservedStartDays:
		return Pressed
	}
	return Preserved
}

// RenderParams are the continuous visual-aging parameters applied to a
// flower image.
type RenderParams struct {
	// Scale shrinks the image slightly as it dries, floored at 0.9.
	Scale float64

	// SaturationPct fades color, floored at 65.
	SaturationPct float64

	// SepiaPct tints toward sepia, capped at 25.
	SepiaPct float64

	// Opacity fades the image, floored at 0.85.
	Opacity float64
}

// Params computes the rendering parameters for an elapsed day count.  Each
// parameter is an independently clamped linear function of days, so day 0
// yields {1.0, 100, 0, 1.0} and large day counts settle at the clamps.
func Params(days int) RenderParams {
	d := float64(days)
	return RenderParams{
		Scale:         math.Max(0.9, 1-d*0.0011),
		SaturationPct: math.Max(65, 100-d*0.39),
		SepiaPct:      math.Min(25, d*0.21),
		Opacity:       math.Max(0.85, 1-d*0.00125),
	}
}

// CSSFilter renders the saturate/sepia portion of the parameters as a CSS
// filter value.
func (p RenderParams) CSSFilter() string {
	return fmt.Sprintf("saturate(%.4g%%) sepia(%.4g%%)", p.SaturationPct, p.SepiaPct)
}

// CSSTransform renders the scale portion of the parameters as a CSS
// transform value.
func (p RenderParams) CSSTransform() string {
	return fmt.Sprintf("scale(%.4g)", p.Scale)
}

// ProgressPercent is the pressing progress shown under each card: days out
// of a 90-day pressing window, rounded, clamped to [0, 100].
func ProgressPercent(days int) int {
	if days < 0 {
		return 0
	}
	pct := int(math.Round(float64(days) / float64(preservedStartDays) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}
