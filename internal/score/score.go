// Package score computes the deterministic, additive priority score for a
// classified NOTAM.
package score

import (
	"strings"

	"notamwatch/internal/notam"
)

// Weights are the configurable point values; all other deltas in the
// rubric are fixed.
type Weights struct {
	Closure     int
	Drone       int
	Restriction int
}

// Score evaluates the fixed rubric once and clamps the result to
// non-negative. It is a pure function: recomputing it on an unchanged
// record always yields the same value.
func Score(n *notam.Notam, w Weights) int {
	total := 0

	if n.IsClosure {
		total += w.Closure
	}
	if n.IsDroneRelated {
		total += w.Drone
	}

	switch n.Kind {
	case notam.KindNew:
		total += 10
	case notam.KindReplace:
		total += 5
	case notam.KindCancel:
		// no contribution
	}

	if strings.Contains(n.Scope, "A") {
		total += 10
	}
	if n.IsPermanent {
		total += 5
	}
	if n.IsTrigger {
		total -= 10
	}
	if n.IsRestriction && !n.IsClosure {
		total += w.Restriction
	}

	if total < 0 {
		return 0
	}
	return total
}
