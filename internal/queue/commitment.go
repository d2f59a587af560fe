package queue

// Level is the process-wide commitment level: a monotonically non-decreasing
// restriction tier that progressively limits scheduling freedom over one run.
type Level int

const (
	// LevelUnrestricted places no constraints on scheduling.
	LevelUnrestricted Level = iota
	// LevelSoftWarning logs budget pressure but changes nothing.
	LevelSoftWarning
	// LevelBudgetClamp clamps each item's allocation to the remaining budget.
	LevelBudgetClamp
	// LevelReducedIterations cuts the executor iteration cap.
	LevelReducedIterations
	// LevelFixesOnly restricts executors to minimal corrective work.
	LevelFixesOnly
	// LevelForceComplete ends the run: in-progress items become partial,
	// everything waiting becomes skipped.
	LevelForceComplete
)

// String returns a short name for the level.
func (l Level) String() string {
	switch l {
	case LevelUnrestricted:
		return "unrestricted"
	case LevelSoftWarning:
		return "soft_warning"
	case LevelBudgetClamp:
		return "budget_clamp"
	case LevelReducedIterations:
		return "reduced_iterations"
	case LevelFixesOnly:
		return "fixes_only"
	case LevelForceComplete:
		return "force_complete"
	}
	return "unknown"
}

// clampLevel bounds a candidate level to the valid range.
func clampLevel(l Level) Level {
	if l < LevelUnrestricted {
		return LevelUnrestricted
	}
	if l > LevelForceComplete {
		return LevelForceComplete
	}
	return l
}
