// Package errs implements the §7 error taxonomy for the scheduling
// core: input errors (caller bugs), unsatisfiable results, budget
// exhaustion, and internal desync. These are plain Go error types; the
// service layer (internal/service) wraps input errors in pkg/errors.Error.
package errs

import "fmt"

// InputError reports a caller-bug in the entity data: a missing
// assignment, a teacher referenced by assignment that does not exist,
// or curriculum hours missing for an assigned lesson. The core refuses
// the run.
type InputError struct {
	Kind string // e.g. "missing_assignment", "unknown_teacher", "missing_curriculum_hours"
	ID   string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error: %s (id=%s)", e.Kind, e.ID)
}

// CoverageGap names one Need left short of its required hours.
type CoverageGap struct {
	ClassID       string
	LessonID      string
	RequiredHours int
	PlacedHours   int
}

// Unsatisfiable reports that hard constraints could not be fully
// satisfied: CSP proved a domain empty, or AggressiveFiller exhausted
// its budget with residual Needs. Carries the partial result's gaps;
// never surfaced as a bare exception path.
type Unsatisfiable struct {
	Gaps []CoverageGap
}

func (e *Unsatisfiable) Error() string {
	return fmt.Sprintf("unsatisfiable: %d coverage gaps remain", len(e.Gaps))
}

// BudgetExhausted reports that a backtrack or wall-time limit was
// reached. The caller should treat the accompanying result as partial.
type BudgetExhausted struct {
	Kind   string // "backtrack" or "wall_time"
	Budget int
	Spent  int
}

func (e *BudgetExhausted) Error() string {
	return fmt.Sprintf("budget exhausted (%s): spent %d of %d", e.Kind, e.Spent, e.Budget)
}

// Desync reports a placer bug: ConflictIndex.Remove on a missing key, or
// a placement listed twice with a different room. Fatal — the run
// aborts with a diagnostic naming the originating component.
type Desync struct {
	Component string
	Detail    string
}

func (e *Desync) Error() string {
	return fmt.Sprintf("internal desync in %s: %s", e.Component, e.Detail)
}
