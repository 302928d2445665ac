// Package strict implements the StrictPlacer component (§4.7): the
// primary, block-preserving, pressure-aware placement algorithm.
package strict

import (
	"sort"

	"github.com/dolphinlong/timetable-core/internal/scheduler/availability"
	"github.com/dolphinlong/timetable-core/internal/scheduler/blockplan"
	"github.com/dolphinlong/timetable-core/internal/scheduler/conflict"
	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// GradeOf resolves a class id to its grade, used to sort classes
// descending before placement (§4.7 step 1).
type GradeOf func(classID string) int

// Result is what Place returns: the placements made plus the Needs left
// unsatisfied (partially or fully) for the caller to route onward.
type Result struct {
	Placements []sched.Placement
	Residual   []sched.Need
}

// Placer is the StrictPlacer. It owns no shared state across runs; a new
// Placer is constructed per scheduling run.
type Placer struct {
	avail         *availability.Cache
	idx           *conflict.Index
	planner       *blockplan.Planner
	periodsPerDay int

	pressure     map[sched.Slot]int
	classDayLsn  map[string]map[sched.Slot]string // I6 bookkeeping: class -> slot -> lessonID
}

// New returns a Placer. idx should be empty at construction; the Placer
// adds its own placements to it as it goes.
func New(avail *availability.Cache, idx *conflict.Index, planner *blockplan.Planner, periodsPerDay int) *Placer {
	return &Placer{
		avail:         avail,
		idx:           idx,
		planner:       planner,
		periodsPerDay: periodsPerDay,
		pressure:      make(map[sched.Slot]int),
		classDayLsn:   make(map[string]map[sched.Slot]string),
	}
}

// Place runs the full StrictPlacer algorithm over needs.
func (p *Placer) Place(needs []sched.Need, gradeOf GradeOf) Result {
	byClass := make(map[string][]sched.Need)
	for _, n := range needs {
		byClass[n.ClassID] = append(byClass[n.ClassID], n)
	}

	classIDs := make([]string, 0, len(byClass))
	for id := range byClass {
		classIDs = append(classIDs, id)
	}
	sort.Slice(classIDs, func(i, j int) bool {
		gi, gj := 0, 0
		if gradeOf != nil {
			gi, gj = gradeOf(classIDs[i]), gradeOf(classIDs[j])
		}
		if gi != gj {
			return gi > gj
		}
		return classIDs[i] < classIDs[j]
	})

	var residual []sched.Need
	var placements []sched.Placement

	for _, classID := range classIDs {
		classNeeds := byClass[classID]
		sort.Slice(classNeeds, func(i, j int) bool {
			if classNeeds[i].RequiredHours != classNeeds[j].RequiredHours {
				return classNeeds[i].RequiredHours > classNeeds[j].RequiredHours
			}
			return classNeeds[i].LessonID < classNeeds[j].LessonID
		})

		for _, need := range classNeeds {
			placed, left := p.placeNeed(need)
			placements = append(placements, placed...)
			if left > 0 {
				residual = append(residual, need)
			}
		}
	}

	return Result{Placements: placements, Residual: residual}
}

// placeNeed places one Need's full block plan, returning the placements
// made and the count of hours that remain unplaced.
func (p *Placer) placeNeed(need sched.Need) ([]sched.Placement, int) {
	blocks := p.planner.Plan(need.RequiredHours)
	usedDays := make(map[int]bool)
	var made []sched.Placement
	remaining := need.RequiredHours

	for _, size := range blocks {
		var ok bool
		var block []sched.Placement
		if size == 1 {
			block, ok = p.placeSingleton(need, usedDays)
		} else {
			block, ok = p.placeBlock(need, size, usedDays)
		}
		if !ok {
			// Must-block property: a 2-hour need that fails to place as
			// one block never falls back to 1+1 (§4.6).
			continue
		}
		made = append(made, block...)
		remaining -= size
		usedDays[block[0].Day] = true
	}

	// Any-slot fallback (§4.7): pressure-sorted block/singleton placement
	// gave up on `remaining` hours. Every hours count except 2 (the
	// must-block exception above) falls back to placing the leftover
	// hours one period at a time, in plain (day, period) order, ignoring
	// pressure and I8 day-dispersion — any slot that still satisfies
	// I1/I2/I4/I6 is taken.
	if remaining > 0 && need.RequiredHours != 2 {
		extra := p.placeAnySlot(need, remaining)
		made = append(made, extra...)
		remaining -= len(extra)
	}

	return made, remaining
}

// placeAnySlot is the §4.7 last resort: scan every (day, period) in
// natural order and commit the first `count` slots that satisfy
// I1/I2/I4/I6, regardless of pressure or which days this need already
// used.
func (p *Placer) placeAnySlot(need sched.Need, count int) []sched.Placement {
	var made []sched.Placement
	for day := 0; day < sched.DaysPerWeek && len(made) < count; day++ {
		for period := 0; period < p.periodsPerDay && len(made) < count; period++ {
			if !p.blockFits(need, day, period, 1) {
				continue
			}
			made = append(made, p.commitBlock(need, day, period, 1)...)
		}
	}
	return made
}

// placeBlock tries every (day, start_period) pair not already used by
// this need, ascending by slot pressure, and commits the first one that
// satisfies I1, I2, I4, I6 across all k contiguous periods.
func (p *Placer) placeBlock(need sched.Need, k int, usedDays map[int]bool) ([]sched.Placement, bool) {
	type candidate struct {
		day, start, pressure int
	}
	var candidates []candidate
	for day := 0; day < sched.DaysPerWeek; day++ {
		if usedDays[day] {
			continue
		}
		for start := 0; start+k <= p.periodsPerDay; start++ {
			candidates = append(candidates, candidate{day, start, p.blockPressure(day, start, k)})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].pressure != candidates[j].pressure {
			return candidates[i].pressure < candidates[j].pressure
		}
		if candidates[i].day != candidates[j].day {
			return candidates[i].day < candidates[j].day
		}
		return candidates[i].start < candidates[j].start
	})

	for _, c := range candidates {
		if !p.blockFits(need, c.day, c.start, k) {
			continue
		}
		return p.commitBlock(need, c.day, c.start, k), true
	}
	return nil, false
}

// placeSingleton places the 1-hour tail of a block plan on a day not
// already used for this need (I8), pressure-sorted.
func (p *Placer) placeSingleton(need sched.Need, usedDays map[int]bool) ([]sched.Placement, bool) {
	placed, ok := p.placeBlock(need, 1, usedDays)
	return placed, ok
}

func (p *Placer) blockPressure(day, start, k int) int {
	total := 0
	for period := start; period < start+k; period++ {
		total += p.pressure[sched.Slot{Day: day, Period: period}]
	}
	return total
}

// blockFits checks I1 (class), I2 (teacher), I4 (availability), and I6
// (no three consecutive same-lesson periods) for placing need's block at
// [start, start+k).
func (p *Placer) blockFits(need sched.Need, day, start, k int) bool {
	for period := start; period < start+k; period++ {
		if p.idx.HasClassConflict(need.ClassID, day, period) {
			return false
		}
		if p.idx.HasTeacherConflict(need.TeacherID, day, period) {
			return false
		}
		if !p.avail.IsAvailable(need.TeacherID, day, period) {
			return false
		}
	}
	return !p.wouldViolateMaxConsecutive(need, day, start, k)
}

// wouldViolateMaxConsecutive simulates adding need.LessonID at
// [start, start+k) for need.ClassID/day and checks whether any window of
// three consecutive periods would then all carry the same lesson (I6).
func (p *Placer) wouldViolateMaxConsecutive(need sched.Need, day, start, k int) bool {
	lessonAt := func(period int) (string, bool) {
		if period >= start && period < start+k {
			return need.LessonID, true
		}
		byDay, ok := p.classDayLsn[need.ClassID]
		if !ok {
			return "", false
		}
		lsn, ok := byDay[sched.Slot{Day: day, Period: period}]
		return lsn, ok
	}
	for windowStart := start - 2; windowStart <= start+k-1; windowStart++ {
		if windowStart < 0 || windowStart+2 >= p.periodsPerDay {
			continue
		}
		l0, ok0 := lessonAt(windowStart)
		l1, ok1 := lessonAt(windowStart + 1)
		l2, ok2 := lessonAt(windowStart + 2)
		if ok0 && ok1 && ok2 && l0 == need.LessonID && l1 == need.LessonID && l2 == need.LessonID {
			return true
		}
	}
	return false
}

func (p *Placer) commitBlock(need sched.Need, day, start, k int) []sched.Placement {
	var made []sched.Placement
	for period := start; period < start+k; period++ {
		placement := sched.Placement{
			ClassID:   need.ClassID,
			TeacherID: need.TeacherID,
			LessonID:  need.LessonID,
			Day:       day,
			Period:    period,
		}
		p.idx.Add(placement)
		p.pressure[sched.Slot{Day: day, Period: period}]++
		if p.classDayLsn[need.ClassID] == nil {
			p.classDayLsn[need.ClassID] = make(map[sched.Slot]string)
		}
		p.classDayLsn[need.ClassID][sched.Slot{Day: day, Period: period}] = need.LessonID
		made = append(made, placement)
	}
	return made
}
