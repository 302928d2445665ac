// Package csp implements the CSPEngine component (§4.8): a classical
// constraint-satisfaction model over block-level variables, solved with
// AC-3 preprocessing, MAC-maintained backtracking, MRV/LCV ordering, and
// an adaptive backtrack budget.
package csp

import (
	"math"
	"sort"

	"github.com/dolphinlong/timetable-core/internal/scheduler/availability"
	"github.com/dolphinlong/timetable-core/internal/scheduler/blockplan"
	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// Status describes how a Solve call terminated.
type Status string

const (
	Solved                 Status = "SOLVED"
	PartialBudgetExhausted Status = "PARTIAL_BUDGET_EXHAUSTED"
	Unsolvable             Status = "UNSOLVABLE"
)

// Result is what Solve returns.
type Result struct {
	Placements    []sched.Placement
	Unsolved      []sched.Need
	BacktrackUsed int
	Status        Status
}

// VarID identifies one block-level variable: the blockIndex-th block of
// the (classID, lessonID) Need's block plan.
type VarID struct {
	ClassID    string
	LessonID   string
	BlockIndex int
}

type variable struct {
	id   VarID
	need sched.Need
	size int
}

// AdaptiveBacktrackLimit implements the §4.8 formula: base 2000, scaled
// by max(1, (|C|/10)·(|T|/15)·(avgL/8)), clamped to [1000, 20000].
func AdaptiveBacktrackLimit(numClasses, numTeachers int, avgLessonsPerClass float64) int {
	scale := math.Max(1, (float64(numClasses)/10)*(float64(numTeachers)/15)*(avgLessonsPerClass/8))
	limit := int(2000 * scale)
	if limit < 1000 {
		limit = 1000
	}
	if limit > 20000 {
		limit = 20000
	}
	return limit
}

// Engine is the CSPEngine. A fresh Engine should be constructed per run.
type Engine struct {
	avail         *availability.Cache
	planner       *blockplan.Planner
	periodsPerDay int
}

// New returns an Engine.
func New(avail *availability.Cache, planner *blockplan.Planner, periodsPerDay int) *Engine {
	return &Engine{avail: avail, planner: planner, periodsPerDay: periodsPerDay}
}

// Solve runs AC-3, then MAC-maintained MRV/LCV backtracking, halting
// when backtrackBudget assignment attempts have been spent.
func (e *Engine) Solve(needs []sched.Need, backtrackBudget int) Result {
	vars, byID := e.buildVariables(needs)
	domains := e.initialDomains(vars)

	if !e.ac3(vars, byID, domains, allArcs(vars)) {
		return Result{Status: Unsolvable, Unsolved: needs}
	}

	s := &search{
		engine:  e,
		vars:    vars,
		byID:    byID,
		domains: domains,
		assign:  make(map[VarID]sched.Slot),
		budget:  backtrackBudget,
	}
	ok := s.backtrack()

	status := Solved
	if !ok {
		if s.budgetExceeded {
			status = PartialBudgetExhausted
		} else {
			status = Unsolvable
		}
	}

	placements, solvedNeeds := s.materialize()
	unsolved := residualNeeds(needs, solvedNeeds)

	return Result{
		Placements:    placements,
		Unsolved:      unsolved,
		BacktrackUsed: s.attempts,
		Status:        status,
	}
}

func (e *Engine) buildVariables(needs []sched.Need) ([]*variable, map[VarID]*variable) {
	var vars []*variable
	byID := make(map[VarID]*variable)
	for _, n := range needs {
		for i, size := range e.planner.Plan(n.RequiredHours) {
			id := VarID{ClassID: n.ClassID, LessonID: n.LessonID, BlockIndex: i}
			v := &variable{id: id, need: n, size: size}
			vars = append(vars, v)
			byID[id] = v
		}
	}
	return vars, byID
}

// initialDomains seeds each variable's candidate (day, start) pairs with
// only the teacher-availability filter (I4); I1/I2/I8 pruning happens in
// AC-3 and during search.
func (e *Engine) initialDomains(vars []*variable) map[VarID][]sched.Slot {
	domains := make(map[VarID][]sched.Slot, len(vars))
	for _, v := range vars {
		var candidates []sched.Slot
		for day := 0; day < sched.DaysPerWeek; day++ {
			for start := 0; start+v.size <= e.periodsPerDay; start++ {
				if e.teacherFree(v, day, start) {
					candidates = append(candidates, sched.Slot{Day: day, Period: start})
				}
			}
		}
		domains[v.id] = candidates
	}
	return domains
}

func (e *Engine) teacherFree(v *variable, day, start int) bool {
	for period := start; period < start+v.size; period++ {
		if !e.avail.IsAvailable(v.need.TeacherID, day, period) {
			return false
		}
	}
	return true
}

type arc struct{ from, to VarID }

func allArcs(vars []*variable) []arc {
	var arcs []arc
	for _, vi := range vars {
		for _, vj := range vars {
			if vi.id == vj.id {
				continue
			}
			if shareConstraint(vi, vj) {
				arcs = append(arcs, arc{vi.id, vj.id})
			}
		}
	}
	return arcs
}

// shareConstraint reports whether vi and vj participate in a binary
// constraint: same class (I1, I8 for same lesson), or same teacher (I2).
func shareConstraint(vi, vj *variable) bool {
	if vi.need.ClassID == vj.need.ClassID {
		return true
	}
	if vi.need.TeacherID != "" && vi.need.TeacherID == vj.need.TeacherID {
		return true
	}
	return false
}

// neighbors returns every variable sharing a binary constraint with v.
func neighbors(vars []*variable, v *variable) []*variable {
	var out []*variable
	for _, other := range vars {
		if other.id != v.id && shareConstraint(v, other) {
			out = append(out, other)
		}
	}
	return out
}

// compatible is the binary constraint predicate for I1 (class), I2
// (teacher), and I8 (same need's blocks must land on distinct days).
func compatible(vi *variable, slotI sched.Slot, vj *variable, slotJ sched.Slot) bool {
	sameDay := slotI.Day == slotJ.Day
	if vi.need.ClassID == vj.need.ClassID {
		if vi.need.LessonID == vj.need.LessonID && sameDay {
			return false // I8: distinct blocks of the same Need must differ in day
		}
		if sameDay && overlaps(slotI.Period, vi.size, slotJ.Period, vj.size) {
			return false // I1
		}
	}
	if vi.need.TeacherID != "" && vi.need.TeacherID == vj.need.TeacherID {
		if sameDay && overlaps(slotI.Period, vi.size, slotJ.Period, vj.size) {
			return false // I2
		}
	}
	return true
}

func overlaps(startA, sizeA, startB, sizeB int) bool {
	endA, endB := startA+sizeA, startB+sizeB
	return startA < endB && startB < endA
}

// ac3 enforces arc consistency over the given seed arcs, mutating
// domains in place. Returns false if any domain empties.
func (e *Engine) ac3(vars []*variable, byID map[VarID]*variable, domains map[VarID][]sched.Slot, seed []arc) bool {
	queue := append([]arc(nil), seed...)
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		vi, vj := byID[a.from], byID[a.to]
		removed, ok := revise(vi, vj, domains)
		if !ok {
			return false
		}
		if removed {
			for _, vk := range neighbors(vars, vi) {
				if vk.id != vj.id {
					queue = append(queue, arc{vk.id, vi.id})
				}
			}
		}
	}
	return true
}

// revise drops every value from domains[vi] with no compatible value in
// domains[vj]. Returns (changed, stillNonEmpty).
func revise(vi, vj *variable, domains map[VarID][]sched.Slot) (bool, bool) {
	var kept []sched.Slot
	changed := false
	for _, valI := range domains[vi.id] {
		hasSupport := false
		for _, valJ := range domains[vj.id] {
			if compatible(vi, valI, vj, valJ) {
				hasSupport = true
				break
			}
		}
		if hasSupport {
			kept = append(kept, valI)
		} else {
			changed = true
		}
	}
	domains[vi.id] = kept
	return changed, len(kept) > 0
}

func residualNeeds(all []sched.Need, solved map[sched.NeedKey]bool) []sched.Need {
	var out []sched.Need
	for _, n := range all {
		if !solved[n.Key()] {
			out = append(out, n)
		}
	}
	return out
}

type search struct {
	engine         *Engine
	vars           []*variable
	byID           map[VarID]*variable
	domains        map[VarID][]sched.Slot
	assign         map[VarID]sched.Slot
	budget         int
	attempts       int
	budgetExceeded bool
}

func (s *search) backtrack() bool {
	if len(s.assign) == len(s.vars) {
		return true
	}
	if s.attempts >= s.budget {
		s.budgetExceeded = true
		return false
	}

	v := s.selectUnassigned()
	for _, val := range s.orderValues(v) {
		s.attempts++
		if s.attempts > s.budget {
			s.budgetExceeded = true
			return false
		}
		if !s.consistent(v, val) {
			continue
		}
		s.assign[v.id] = val
		savedDomains := cloneDomains(s.domains)
		ok := s.engine.ac3(s.vars, s.byID, s.domains, incidentArcs(s.vars, v))
		if ok && s.backtrack() {
			return true
		}
		s.domains = savedDomains
		delete(s.assign, v.id)
	}
	return false
}

// selectUnassigned applies MRV (smallest domain) breaking ties by degree
// (most unassigned neighbors).
func (s *search) selectUnassigned() *variable {
	var best *variable
	bestDomain, bestDegree := math.MaxInt32, -1
	for _, v := range s.vars {
		if _, done := s.assign[v.id]; done {
			continue
		}
		domainSize := len(s.domains[v.id])
		degree := s.unassignedDegree(v)
		if domainSize < bestDomain || (domainSize == bestDomain && degree > bestDegree) {
			best, bestDomain, bestDegree = v, domainSize, degree
		}
	}
	return best
}

func (s *search) unassignedDegree(v *variable) int {
	count := 0
	for _, n := range neighbors(s.vars, v) {
		if _, done := s.assign[n.id]; !done {
			count++
		}
	}
	return count
}

// orderValues applies LCV: values that eliminate the fewest neighbor
// domain entries are tried first.
func (s *search) orderValues(v *variable) []sched.Slot {
	values := append([]sched.Slot(nil), s.domains[v.id]...)
	ns := neighbors(s.vars, v)
	cost := make(map[sched.Slot]int, len(values))
	for _, val := range values {
		eliminated := 0
		for _, n := range ns {
			if _, done := s.assign[n.id]; done {
				continue
			}
			for _, nv := range s.domains[n.id] {
				if !compatible(v, val, n, nv) {
					eliminated++
				}
			}
		}
		cost[val] = eliminated
	}
	sort.Slice(values, func(i, j int) bool {
		if cost[values[i]] != cost[values[j]] {
			return cost[values[i]] < cost[values[j]]
		}
		if values[i].Day != values[j].Day {
			return values[i].Day < values[j].Day
		}
		return values[i].Period < values[j].Period
	})
	return values
}

// consistent checks v=val against every already-assigned neighbor.
func (s *search) consistent(v *variable, val sched.Slot) bool {
	for _, n := range neighbors(s.vars, v) {
		assigned, done := s.assign[n.id]
		if !done {
			continue
		}
		if !compatible(v, val, n, assigned) {
			return false
		}
	}
	return true
}

func incidentArcs(vars []*variable, v *variable) []arc {
	var arcs []arc
	for _, n := range neighbors(vars, v) {
		arcs = append(arcs, arc{n.id, v.id})
	}
	return arcs
}

func cloneDomains(domains map[VarID][]sched.Slot) map[VarID][]sched.Slot {
	out := make(map[VarID][]sched.Slot, len(domains))
	for id, vals := range domains {
		cp := make([]sched.Slot, len(vals))
		copy(cp, vals)
		out[id] = cp
	}
	return out
}

// materialize converts the final assignment into Placements, returning
// also the set of Needs fully covered by the solved variables.
func (s *search) materialize() ([]sched.Placement, map[sched.NeedKey]bool) {
	var placements []sched.Placement
	placedHours := make(map[sched.NeedKey]int)
	requiredHours := make(map[sched.NeedKey]int)
	for _, v := range s.vars {
		requiredHours[v.need.Key()] = v.need.RequiredHours
		val, ok := s.assign[v.id]
		if !ok {
			continue
		}
		for period := val.Period; period < val.Period+v.size; period++ {
			placements = append(placements, sched.Placement{
				ClassID:   v.need.ClassID,
				TeacherID: v.need.TeacherID,
				LessonID:  v.need.LessonID,
				Day:       val.Day,
				Period:    period,
			})
		}
		placedHours[v.need.Key()] += v.size
	}
	solved := make(map[sched.NeedKey]bool, len(requiredHours))
	for key, required := range requiredHours {
		solved[key] = placedHours[key] == required
	}
	return placements, solved
}
