// Package aggressive implements the AggressiveFiller component (§4.9):
// an iterative gap-filler that targets 100% slot coverage, relaxing
// availability only after a run of non-improving iterations.
package aggressive

import (
	"math/rand"
	"sort"

	"github.com/dolphinlong/timetable-core/internal/scheduler/availability"
	"github.com/dolphinlong/timetable-core/internal/scheduler/conflict"
	"github.com/dolphinlong/timetable-core/internal/scheduler/coverage"
	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// Options configures the filler's stopping conditions (§4.9 defaults).
type Options struct {
	// StallIterations is N: iterations without improvement before
	// switching into aggressive (availability-relaxed) mode.
	StallIterations int
	// MaxIterations is the hard cap on total iterations.
	MaxIterations int
}

// DefaultOptions returns the §4.9 defaults (N=50, max_iterations=5000).
func DefaultOptions() Options {
	return Options{StallIterations: 50, MaxIterations: 5000}
}

// RelaxationCounter is notified once per relaxed (availability-skipping)
// placement, for telemetry (§4.9.1 expansion).
type RelaxationCounter interface {
	IncRelaxation(reason string)
}

// noopCounter discards relaxation events.
type noopCounter struct{}

func (noopCounter) IncRelaxation(string) {}

// Filler is the AggressiveFiller.
type Filler struct {
	avail         *availability.Cache
	idx           *conflict.Index
	analyzer      *coverage.Analyzer
	periodsPerDay int
	opts          Options
	rng           *rand.Rand
	counter       RelaxationCounter

	classDayLsn map[string]map[sched.Slot]string // I6 bookkeeping: class -> slot -> lessonID
}

// New returns a Filler. rng controls the random empty-slot pick in step
// 2; pass a seeded *rand.Rand for deterministic runs.
func New(avail *availability.Cache, idx *conflict.Index, analyzer *coverage.Analyzer, periodsPerDay int, opts Options, rng *rand.Rand, counter RelaxationCounter) *Filler {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if counter == nil {
		counter = noopCounter{}
	}
	return &Filler{
		avail: avail, idx: idx, analyzer: analyzer, periodsPerDay: periodsPerDay,
		opts: opts, rng: rng, counter: counter,
		classDayLsn: make(map[string]map[sched.Slot]string),
	}
}

// Candidate is a (lesson, teacher) pair still owed hours for a class.
type Candidate struct {
	ClassID   string
	LessonID  string
	TeacherID string
}

// Result is the filler's output: every placement, plus in Relaxed the
// ones made with I4 (availability) skipped.
type Result struct {
	Placements []sched.Placement
	Relaxed    []sched.Placement
}

// Fill runs the repair loop. classIDs is the full set of classes being
// scheduled; residual gives each class's outstanding (lesson, teacher)
// candidates with remaining hours; placements is the current (possibly
// partial) schedule, mutated in place via idx as placements are added.
func (f *Filler) Fill(classIDs []string, residual map[string][]Candidate, remainingHours map[sched.NeedKey]int, placements []sched.Placement) Result {
	result := Result{Placements: append([]sched.Placement(nil), placements...)}
	for _, p := range placements {
		f.recordLesson(p.ClassID, p.Day, p.Period, p.LessonID)
	}

	stall := 0
	aggressiveMode := false
	iterations := 0

	for iterations < f.opts.MaxIterations {
		iterations++

		cov := f.analyzer.Slots(classIDs, result.Placements)
		if cov.Global.Filled >= cov.Global.Total {
			break
		}

		classID, ok := lowestCoverageClass(classIDs, cov)
		if !ok {
			break
		}
		empty := f.analyzer.EmptySlots(classID, result.Placements)
		if len(empty) == 0 {
			continue
		}
		slot := empty[f.rng.Intn(len(empty))]

		placed := f.tryPlaceAny(classID, slot, residual, remainingHours, aggressiveMode, &result)
		if placed {
			stall = 0
			continue
		}

		stall++
		if stall >= f.opts.StallIterations {
			aggressiveMode = true
		}
	}

	f.finalValidate(&result)
	return result
}

func lowestCoverageClass(classIDs []string, cov coverage.SlotCoverage) (string, bool) {
	best, bestFrac := "", 2.0
	for _, id := range classIDs {
		frac := cov.PerClass[id].Fraction()
		if frac < bestFrac {
			best, bestFrac = id, frac
		}
	}
	return best, best != ""
}

func (f *Filler) tryPlaceAny(classID string, slot sched.Slot, residual map[string][]Candidate, remainingHours map[sched.NeedKey]int, aggressiveMode bool, result *Result) bool {
	for _, cand := range residual[classID] {
		key := sched.NeedKey{ClassID: cand.ClassID, LessonID: cand.LessonID}
		if remainingHours[key] <= 0 {
			continue
		}
		if f.idx.HasClassConflict(classID, slot.Day, slot.Period) {
			continue
		}
		if f.idx.HasTeacherConflict(cand.TeacherID, slot.Day, slot.Period) {
			continue
		}
		available := f.avail.IsAvailable(cand.TeacherID, slot.Day, slot.Period)
		if !available && !aggressiveMode {
			continue
		}
		if f.wouldViolateMaxConsecutive(classID, cand.LessonID, slot.Day, slot.Period) {
			continue
		}
		placement := sched.Placement{
			ClassID: classID, TeacherID: cand.TeacherID, LessonID: cand.LessonID,
			Day: slot.Day, Period: slot.Period, Relaxed: !available,
		}
		f.idx.Add(placement)
		f.recordLesson(classID, slot.Day, slot.Period, cand.LessonID)
		result.Placements = append(result.Placements, placement)
		remainingHours[key]--
		if !available {
			f.counter.IncRelaxation("aggressive_availability_skip")
			result.Relaxed = append(result.Relaxed, placement)
		}
		return true
	}
	return false
}

// recordLesson updates the I6 bookkeeping for a committed placement.
func (f *Filler) recordLesson(classID string, day, period int, lessonID string) {
	if f.classDayLsn[classID] == nil {
		f.classDayLsn[classID] = make(map[sched.Slot]string)
	}
	f.classDayLsn[classID][sched.Slot{Day: day, Period: period}] = lessonID
}

// wouldViolateMaxConsecutive reports whether placing lessonID at
// (classID, day, period) would complete a run of three consecutive
// same-lesson periods for that class on that day (I6).
func (f *Filler) wouldViolateMaxConsecutive(classID, lessonID string, day, period int) bool {
	lessonAt := func(p int) (string, bool) {
		if p == period {
			return lessonID, true
		}
		byDay, ok := f.classDayLsn[classID]
		if !ok {
			return "", false
		}
		lsn, ok := byDay[sched.Slot{Day: day, Period: p}]
		return lsn, ok
	}
	for windowStart := period - 2; windowStart <= period; windowStart++ {
		if windowStart < 0 || windowStart+2 >= f.periodsPerDay {
			continue
		}
		l0, ok0 := lessonAt(windowStart)
		l1, ok1 := lessonAt(windowStart + 1)
		l2, ok2 := lessonAt(windowStart + 2)
		if ok0 && ok1 && ok2 && l0 == lessonID && l1 == lessonID && l2 == lessonID {
			return true
		}
	}
	return false
}

// finalValidate implements the mandatory exit step: detect_all and
// delete every placement in a duplicate group but the first, guaranteeing
// I1-I3 in the output.
func (f *Filler) finalValidate(result *Result) {
	conflicts := conflict.DetectAll(result.Placements, f.idx.EnforceRoom)
	if len(conflicts) == 0 {
		return
	}
	toDrop := make(map[sched.Placement]bool)
	for _, c := range conflicts {
		for i := 1; i < len(c.Placements); i++ {
			toDrop[c.Placements[i]] = true
		}
	}
	var kept []sched.Placement
	for _, p := range result.Placements {
		if !toDrop[p] {
			kept = append(kept, p)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].ClassID != kept[j].ClassID {
			return kept[i].ClassID < kept[j].ClassID
		}
		if kept[i].Day != kept[j].Day {
			return kept[i].Day < kept[j].Day
		}
		return kept[i].Period < kept[j].Period
	})
	result.Placements = kept
}
