// Package scorer implements the SoftConstraintScorer component (§4.4):
// a weighted sum of eight pure, deterministic evaluators over a complete
// placement list.
package scorer

import (
	"math"
	"sort"
	"strings"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// Constraint ids, matching priority.Soft* constants.
const (
	TeacherTimePref      = "teacher_time_pref"
	BalancedDailyLoad    = "balanced_daily_load"
	LessonSpacing        = "lesson_spacing"
	DifficultMorning     = "difficult_morning"
	TeacherLoadBalance   = "teacher_load_balance"
	ConsecutiveBlockBonus = "consecutive_block_bonus"
	NoGaps               = "no_gaps"
	LunchLight           = "lunch_light"
)

// DefaultWeights are the §4.4 default weights, overridable via
// PriorityRegistry.Weight for the same constraint id.
var DefaultWeights = map[string]float64{
	TeacherTimePref:       10,
	BalancedDailyLoad:     15,
	LessonSpacing:         12,
	DifficultMorning:      8,
	TeacherLoadBalance:    10,
	ConsecutiveBlockBonus: 7,
	NoGaps:                20,
	LunchLight:            5,
}

// SubjectLists names the lesson-name sets consulted by DifficultMorning
// and LunchLight. Matching is case-insensitive exact match on lesson
// name. Deployments may override via Scorer.Subjects.
type SubjectLists struct {
	Hard  map[string]struct{}
	Light map[string]struct{}
}

// DefaultSubjectLists mirrors the reference source's hard-subject bias
// (mathematics/science lessons scheduled early, light electives
// tolerated at lunch).
func DefaultSubjectLists() SubjectLists {
	return SubjectLists{
		Hard:  toSet("Mathematics", "Physics", "Chemistry", "Biology"),
		Light: toSet("Physical Education", "Music", "Art", "Guidance"),
	}
}

func toSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return set
}

func (s SubjectLists) isHard(lessonName string) bool {
	_, ok := s.Hard[strings.ToLower(lessonName)]
	return ok
}

func (s SubjectLists) isLight(lessonName string) bool {
	_, ok := s.Light[strings.ToLower(lessonName)]
	return ok
}

// WeightSource maps a constraint id to its active weight; satisfied by
// priority.Registry.
type WeightSource interface {
	Weight(constraintID string) float64
}

// LessonNameOf resolves a lesson id to its display name, needed by the
// subject-list rules.
type LessonNameOf func(lessonID string) string

// Scorer evaluates the eight soft constraints and combines them into a
// single weighted score.
type Scorer struct {
	weights  WeightSource
	subjects SubjectLists
	periods  int
}

// New returns a Scorer. weights may be nil, in which case DefaultWeights
// is used uniformly.
func New(weights WeightSource, subjects SubjectLists, periodsPerDay int) *Scorer {
	return &Scorer{weights: weights, subjects: subjects, periods: periodsPerDay}
}

func (s *Scorer) weight(id string) float64 {
	if s.weights != nil {
		return s.weights.Weight(id)
	}
	return DefaultWeights[id]
}

// Breakdown is the per-rule contribution to the total score.
type Breakdown struct {
	Total float64
	ByID  map[string]float64
}

// Score evaluates all eight rules against placements and returns the
// weighted total plus the per-rule breakdown.
func (s *Scorer) Score(placements []sched.Placement, lessonName LessonNameOf) Breakdown {
	raw := map[string]float64{
		TeacherTimePref:       s.teacherTimePref(placements),
		BalancedDailyLoad:     s.balancedDailyLoad(placements),
		LessonSpacing:         s.lessonSpacing(placements),
		DifficultMorning:      s.difficultMorning(placements, lessonName),
		TeacherLoadBalance:    s.teacherLoadBalance(placements),
		ConsecutiveBlockBonus: s.consecutiveBlockBonus(placements),
		NoGaps:                s.noGaps(placements),
		LunchLight:            s.lunchLight(placements, lessonName),
	}
	byID := make(map[string]float64, len(raw))
	total := 0.0
	for id, v := range raw {
		weighted := v * s.weight(id)
		byID[id] = weighted
		total += weighted
	}
	return Breakdown{Total: total, ByID: byID}
}

// teacherTimePref bonuses early slots, penalizes late ones (§4.4).
func (s *Scorer) teacherTimePref(placements []sched.Placement) float64 {
	score := 0.0
	for _, p := range placements {
		switch {
		case sched.IsMorning(p.Period):
			score += 1
		case sched.IsLate(p.Period):
			score -= 1
		}
	}
	return score
}

// balancedDailyLoad penalizes uneven daily load per class, proportional
// to the standard deviation of per-day placement counts.
func (s *Scorer) balancedDailyLoad(placements []sched.Placement) float64 {
	perClassDay := make(map[string]map[int]int)
	for _, p := range placements {
		if perClassDay[p.ClassID] == nil {
			perClassDay[p.ClassID] = make(map[int]int)
		}
		perClassDay[p.ClassID][p.Day]++
	}
	total := 0.0
	for _, byDay := range perClassDay {
		total -= stdev(byDay, sched.DaysPerWeek)
	}
	return total
}

// teacherLoadBalance is balancedDailyLoad's analog keyed by teacher.
func (s *Scorer) teacherLoadBalance(placements []sched.Placement) float64 {
	perTeacherDay := make(map[string]map[int]int)
	for _, p := range placements {
		if p.TeacherID == "" {
			continue
		}
		if perTeacherDay[p.TeacherID] == nil {
			perTeacherDay[p.TeacherID] = make(map[int]int)
		}
		perTeacherDay[p.TeacherID][p.Day]++
	}
	total := 0.0
	for _, byDay := range perTeacherDay {
		total -= stdev(byDay, sched.DaysPerWeek)
	}
	return total
}

func stdev(byDay map[int]int, days int) float64 {
	sum := 0
	for _, c := range byDay {
		sum += c
	}
	mean := float64(sum) / float64(days)
	variance := 0.0
	for d := 0; d < days; d++ {
		diff := float64(byDay[d]) - mean
		variance += diff * diff
	}
	variance /= float64(days)
	return math.Sqrt(variance)
}

// lessonSpacing rewards a 2-3 day gap between repeats of the same
// (class, lesson), and penalizes either a 1-day gap or a >=4 day gap.
func (s *Scorer) lessonSpacing(placements []sched.Placement) float64 {
	days := make(map[sched.NeedKey]map[int]struct{})
	for _, p := range placements {
		key := sched.NeedKey{ClassID: p.ClassID, LessonID: p.LessonID}
		if days[key] == nil {
			days[key] = make(map[int]struct{})
		}
		days[key][p.Day] = struct{}{}
	}
	score := 0.0
	for _, daySet := range days {
		sorted := make([]int, 0, len(daySet))
		for d := range daySet {
			sorted = append(sorted, d)
		}
		sort.Ints(sorted)
		for i := 1; i < len(sorted); i++ {
			gap := sorted[i] - sorted[i-1]
			switch {
			case gap >= 2 && gap <= 3:
				score += 5
			case gap == 1:
				score -= 2
			case gap >= 4:
				score -= 3
			}
		}
	}
	return score
}

// difficultMorning bonuses hard-subject placements in the morning and
// penalizes them in late slots.
func (s *Scorer) difficultMorning(placements []sched.Placement, lessonName LessonNameOf) float64 {
	if lessonName == nil {
		return 0
	}
	score := 0.0
	for _, p := range placements {
		if !s.subjects.isHard(lessonName(p.LessonID)) {
			continue
		}
		switch {
		case p.Period <= 3:
			score += 3
		case p.Period >= 6:
			score -= 3
		}
	}
	return score
}

// consecutiveBlockBonus rewards adjacent same-(class,lesson) period
// pairs on the same day — the payoff for StrictPlacer honoring I7.
func (s *Scorer) consecutiveBlockBonus(placements []sched.Placement) float64 {
	byClassDay := make(map[string]map[int][]sched.Placement)
	for _, p := range placements {
		if byClassDay[p.ClassID] == nil {
			byClassDay[p.ClassID] = make(map[int][]sched.Placement)
		}
		byClassDay[p.ClassID][p.Day] = append(byClassDay[p.ClassID][p.Day], p)
	}
	score := 0.0
	for _, byDay := range byClassDay {
		for _, dayPlacements := range byDay {
			sort.Slice(dayPlacements, func(i, j int) bool { return dayPlacements[i].Period < dayPlacements[j].Period })
			for i := 1; i < len(dayPlacements); i++ {
				prev, cur := dayPlacements[i-1], dayPlacements[i]
				if cur.Period == prev.Period+1 && cur.LessonID == prev.LessonID {
					score += 5
				}
			}
		}
	}
	return score
}

// noGaps penalizes intraday gaps in a class's program: for each class
// and day with placements, any empty period strictly between the first
// and last occupied period of that day costs -10.
func (s *Scorer) noGaps(placements []sched.Placement) float64 {
	byClassDay := make(map[string]map[int]map[int]struct{})
	for _, p := range placements {
		if byClassDay[p.ClassID] == nil {
			byClassDay[p.ClassID] = make(map[int]map[int]struct{})
		}
		if byClassDay[p.ClassID][p.Day] == nil {
			byClassDay[p.ClassID][p.Day] = make(map[int]struct{})
		}
		byClassDay[p.ClassID][p.Day][p.Period] = struct{}{}
	}
	score := 0.0
	for _, byDay := range byClassDay {
		for _, periods := range byDay {
			if len(periods) < 2 {
				continue
			}
			min, max := math.MaxInt32, -1
			for period := range periods {
				if period < min {
					min = period
				}
				if period > max {
					max = period
				}
			}
			for period := min; period <= max; period++ {
				if _, occupied := periods[period]; !occupied {
					score -= 10
				}
			}
		}
	}
	return score
}

// lunchLight bonuses light-subject placements at the lunch slots and
// penalizes hard-subject ones there.
func (s *Scorer) lunchLight(placements []sched.Placement, lessonName LessonNameOf) float64 {
	if lessonName == nil {
		return 0
	}
	score := 0.0
	for _, p := range placements {
		if !sched.IsLunch(p.Period) {
			continue
		}
		name := lessonName(p.LessonID)
		switch {
		case s.subjects.isLight(name):
			score += 2
		case s.subjects.isHard(name):
			score -= 1
		}
	}
	return score
}
