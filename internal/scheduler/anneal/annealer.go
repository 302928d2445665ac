// Package anneal implements the Annealer component (§4.10): simulated
// annealing over the soft-constraint score, constrained to always
// preserve the caller's hard constraints.
package anneal

import (
	"math"
	"math/rand"
	"sort"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// Options configures the cooling schedule (§4.10 defaults).
type Options struct {
	InitialTemp  float64
	Alpha        float64 // geometric cooling factor, default 0.95
	ItersPerTemp int     // trials per temperature step, default 50
	TMin         float64 // stop once T < TMin, default 1.0
}

// DefaultOptions returns the §4.10 defaults.
func DefaultOptions() Options {
	return Options{InitialTemp: 100, Alpha: 0.95, ItersPerTemp: 50, TMin: 1.0}
}

// ScoreFunc evaluates a complete placement list; higher is better.
type ScoreFunc func([]sched.Placement) float64

// HardConstraintCheck reports whether a candidate placement list still
// satisfies every hard constraint the caller cares about.
type HardConstraintCheck func([]sched.Placement) bool

// Deadline reports whether the run's wall-time budget has been spent.
type Deadline func() bool

// Annealer runs the neighbor-generate / accept-or-reject loop.
type Annealer struct {
	score     ScoreFunc
	hardCheck HardConstraintCheck
	rng       *rand.Rand
	opts      Options
}

// New returns an Annealer. rng controls neighbor selection and the
// Metropolis acceptance draw; pass a seeded *rand.Rand for determinism.
func New(score ScoreFunc, hardCheck HardConstraintCheck, rng *rand.Rand, opts Options) *Annealer {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Annealer{score: score, hardCheck: hardCheck, rng: rng, opts: opts}
}

// Run anneals starting from initial, stopping when T < TMin or deadline
// reports true. It returns the best-observed state, not the final one.
func (a *Annealer) Run(initial []sched.Placement, deadline Deadline) []sched.Placement {
	current := clonePlacements(initial)
	currentScore := a.score(current)

	best := clonePlacements(current)
	bestScore := currentScore

	temp := a.opts.InitialTemp
	for temp >= a.opts.TMin {
		for i := 0; i < a.opts.ItersPerTemp; i++ {
			if deadline != nil && deadline() {
				return best
			}
			candidate, ok := a.neighbor(current)
			if !ok {
				continue
			}
			if !a.hardCheck(candidate) {
				continue
			}
			candidateScore := a.score(candidate)
			delta := candidateScore - currentScore
			if delta >= 0 || a.rng.Float64() < math.Exp(delta/temp) {
				current = candidate
				currentScore = candidateScore
				if currentScore > bestScore {
					best = clonePlacements(current)
					bestScore = currentScore
				}
			}
		}
		temp *= a.opts.Alpha
	}
	return best
}

// block is a contiguous run of placements sharing (class, lesson, day).
type block struct {
	classID, lessonID string
	day               int
	placements        []sched.Placement
}

func groupBlocks(placements []sched.Placement) []block {
	type key struct {
		classID, lessonID string
		day               int
	}
	byKey := make(map[key][]sched.Placement)
	for _, p := range placements {
		k := key{p.ClassID, p.LessonID, p.Day}
		byKey[k] = append(byKey[k], p)
	}
	blocks := make([]block, 0, len(byKey))
	for k, ps := range byKey {
		sort.Slice(ps, func(i, j int) bool { return ps[i].Period < ps[j].Period })
		blocks = append(blocks, block{classID: k.classID, lessonID: k.lessonID, day: k.day, placements: ps})
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].classID != blocks[j].classID {
			return blocks[i].classID < blocks[j].classID
		}
		if blocks[i].lessonID != blocks[j].lessonID {
			return blocks[i].lessonID < blocks[j].lessonID
		}
		return blocks[i].day < blocks[j].day
	})
	return blocks
}

func usedDaysFor(blocks []block, classID, lessonID string) map[int]bool {
	used := make(map[int]bool)
	for _, b := range blocks {
		if b.classID == classID && b.lessonID == lessonID {
			used[b.day] = true
		}
	}
	return used
}

// neighbor picks one of the three §4.10 operators uniformly and applies
// it, returning the candidate and whether a move was possible at all.
func (a *Annealer) neighbor(placements []sched.Placement) ([]sched.Placement, bool) {
	switch a.rng.Intn(3) {
	case 0:
		return a.swapBlocks(placements)
	case 1:
		return a.moveBlock(placements)
	default:
		return a.swapSingletons(placements)
	}
}

// swapBlocks exchanges the day labels of two blocks from different
// (class, lesson) pairs, keeping each block's periods unchanged.
func (a *Annealer) swapBlocks(placements []sched.Placement) ([]sched.Placement, bool) {
	blocks := groupBlocks(placements)
	if len(blocks) < 2 {
		return nil, false
	}
	i, j := a.rng.Intn(len(blocks)), a.rng.Intn(len(blocks))
	if i == j {
		return nil, false
	}
	bi, bj := blocks[i], blocks[j]
	if bi.classID == bj.classID && bi.lessonID == bj.lessonID {
		return nil, false
	}

	candidate := clonePlacements(placements)
	for idx := range candidate {
		p := &candidate[idx]
		if p.ClassID == bi.classID && p.LessonID == bi.lessonID && p.Day == bi.day {
			p.Day = bj.day
		} else if p.ClassID == bj.classID && p.LessonID == bj.lessonID && p.Day == bj.day {
			p.Day = bi.day
		}
	}
	return candidate, true
}

// moveBlock relocates one block to a day not currently used by its
// (class, lesson) pair, preserving its periods.
func (a *Annealer) moveBlock(placements []sched.Placement) ([]sched.Placement, bool) {
	blocks := groupBlocks(placements)
	if len(blocks) == 0 {
		return nil, false
	}
	b := blocks[a.rng.Intn(len(blocks))]
	used := usedDaysFor(blocks, b.classID, b.lessonID)
	var freeDays []int
	for day := 0; day < sched.DaysPerWeek; day++ {
		if !used[day] {
			freeDays = append(freeDays, day)
		}
	}
	if len(freeDays) == 0 {
		return nil, false
	}
	target := freeDays[a.rng.Intn(len(freeDays))]

	candidate := clonePlacements(placements)
	for idx := range candidate {
		p := &candidate[idx]
		if p.ClassID == b.classID && p.LessonID == b.lessonID && p.Day == b.day {
			p.Day = target
		}
	}
	return candidate, true
}

// swapSingletons exchanges the (day, period) of two size-1 blocks.
func (a *Annealer) swapSingletons(placements []sched.Placement) ([]sched.Placement, bool) {
	blocks := groupBlocks(placements)
	var singles []block
	for _, b := range blocks {
		if len(b.placements) == 1 {
			singles = append(singles, b)
		}
	}
	if len(singles) < 2 {
		return nil, false
	}
	i, j := a.rng.Intn(len(singles)), a.rng.Intn(len(singles))
	if i == j {
		return nil, false
	}
	bi, bj := singles[i].placements[0], singles[j].placements[0]

	candidate := clonePlacements(placements)
	for idx := range candidate {
		p := &candidate[idx]
		switch {
		case p.ClassID == bi.ClassID && p.LessonID == bi.LessonID && p.Day == bi.Day && p.Period == bi.Period:
			p.Day, p.Period = bj.Day, bj.Period
		case p.ClassID == bj.ClassID && p.LessonID == bj.LessonID && p.Day == bj.Day && p.Period == bj.Period:
			p.Day, p.Period = bi.Day, bi.Period
		}
	}
	return candidate, true
}

func clonePlacements(placements []sched.Placement) []sched.Placement {
	out := make([]sched.Placement, len(placements))
	copy(out, placements)
	return out
}
