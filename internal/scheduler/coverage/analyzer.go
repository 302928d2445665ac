// Package coverage implements the CoverageAnalyzer component (§4.3):
// slot-fill and curricular-fill ratios, plus the empty-slot enumeration
// that AggressiveFiller consumes.
package coverage

import (
	"sort"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// SlotCoverage is the per-class and global fill ratio view.
type SlotCoverage struct {
	PerClass map[string]Ratio
	Global   Ratio
}

// Ratio is a filled/total pair.
type Ratio struct {
	Filled int
	Total  int
}

// Fraction returns Filled/Total, or 0 when Total is 0.
func (r Ratio) Fraction() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Filled) / float64(r.Total)
}

// CurricularCoverage is the per-(class, lesson) placed/required view.
type CurricularCoverage struct {
	PerNeed map[sched.NeedKey]Ratio
}

// Analyzer computes coverage views over a placement list and the full
// grid shape (periodsPerDay depends on school_type, §6.2).
type Analyzer struct {
	periodsPerDay int
}

// New returns an Analyzer for a grid with the given periods-per-day.
func New(periodsPerDay int) *Analyzer {
	return &Analyzer{periodsPerDay: periodsPerDay}
}

// Slots computes SlotCoverage for the given classes and placements.
func (a *Analyzer) Slots(classIDs []string, placements []sched.Placement) SlotCoverage {
	total := sched.DaysPerWeek * a.periodsPerDay
	filled := make(map[string]int, len(classIDs))
	for _, id := range classIDs {
		filled[id] = 0
	}
	seen := make(map[string]map[sched.Slot]struct{}, len(classIDs))
	for _, p := range placements {
		if seen[p.ClassID] == nil {
			seen[p.ClassID] = make(map[sched.Slot]struct{})
		}
		slot := sched.Slot{Day: p.Day, Period: p.Period}
		if _, dup := seen[p.ClassID][slot]; dup {
			continue
		}
		seen[p.ClassID][slot] = struct{}{}
		filled[p.ClassID]++
	}

	perClass := make(map[string]Ratio, len(classIDs))
	globalFilled, globalTotal := 0, 0
	for _, id := range classIDs {
		r := Ratio{Filled: filled[id], Total: total}
		perClass[id] = r
		globalFilled += r.Filled
		globalTotal += r.Total
	}
	return SlotCoverage{PerClass: perClass, Global: Ratio{Filled: globalFilled, Total: globalTotal}}
}

// Curricular computes CurricularCoverage for the given Needs and placements.
func (a *Analyzer) Curricular(needs []sched.Need, placements []sched.Placement) CurricularCoverage {
	placedByNeed := make(map[sched.NeedKey]int)
	for _, p := range placements {
		key := sched.NeedKey{ClassID: p.ClassID, LessonID: p.LessonID}
		placedByNeed[key]++
	}
	perNeed := make(map[sched.NeedKey]Ratio, len(needs))
	for _, n := range needs {
		perNeed[n.Key()] = Ratio{Filled: placedByNeed[n.Key()], Total: n.RequiredHours}
	}
	return CurricularCoverage{PerNeed: perNeed}
}

// EmptySlots returns the complement of classID's occupied slots in the
// full grid, in a stable (day, period) ascending order so gap-filling is
// deterministic across runs with the same input.
func (a *Analyzer) EmptySlots(classID string, placements []sched.Placement) []sched.Slot {
	occupied := make(map[sched.Slot]struct{})
	for _, p := range placements {
		if p.ClassID == classID {
			occupied[sched.Slot{Day: p.Day, Period: p.Period}] = struct{}{}
		}
	}
	var empty []sched.Slot
	for d := 0; d < sched.DaysPerWeek; d++ {
		for s := 0; s < a.periodsPerDay; s++ {
			slot := sched.Slot{Day: d, Period: s}
			if _, ok := occupied[slot]; !ok {
				empty = append(empty, slot)
			}
		}
	}
	sort.Slice(empty, func(i, j int) bool {
		if empty[i].Day != empty[j].Day {
			return empty[i].Day < empty[j].Day
		}
		return empty[i].Period < empty[j].Period
	})
	return empty
}

// Summary is a coverage breakdown layered on top of the raw ratios —
// supplemented from utils/schedule_analyzer.py: the overall slot-fill
// fraction (0..1), the fill fraction per grade, and the three least-filled
// classes. It has no per-teacher breakdown, and the Explainer report does
// not use it.
type Summary struct {
	OverallFillPct float64
	ByGrade        map[int]float64
	LowestClasses  []string
}

// Summarize builds a Summary. gradeOf maps a class ID
// to its grade; classIDs is iterated in the order given so LowestClasses
// ties break deterministically.
func (a *Analyzer) Summarize(classIDs []string, gradeOf map[string]int, placements []sched.Placement) Summary {
	slots := a.Slots(classIDs, placements)

	gradeFilled := map[int]int{}
	gradeTotal := map[int]int{}
	for _, id := range classIDs {
		r := slots.PerClass[id]
		g := gradeOf[id]
		gradeFilled[g] += r.Filled
		gradeTotal[g] += r.Total
	}
	byGrade := make(map[int]float64, len(gradeTotal))
	for g, total := range gradeTotal {
		if total == 0 {
			byGrade[g] = 0
			continue
		}
		byGrade[g] = float64(gradeFilled[g]) / float64(total)
	}

	type classFrac struct {
		id   string
		frac float64
	}
	var fracs []classFrac
	for _, id := range classIDs {
		fracs = append(fracs, classFrac{id: id, frac: slots.PerClass[id].Fraction()})
	}
	sort.SliceStable(fracs, func(i, j int) bool { return fracs[i].frac < fracs[j].frac })

	lowest := make([]string, 0, 3)
	for i := 0; i < len(fracs) && i < 3; i++ {
		lowest = append(lowest, fracs[i].id)
	}

	return Summary{
		OverallFillPct: slots.Global.Fraction(),
		ByGrade:        byGrade,
		LowestClasses:  lowest,
	}
}
