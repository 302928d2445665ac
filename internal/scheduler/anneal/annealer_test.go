package anneal

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

func alwaysHard(_ []sched.Placement) bool { return true }

func countMorning(placements []sched.Placement) float64 {
	score := 0.0
	for _, p := range placements {
		if sched.IsMorning(p.Period) {
			score++
		}
	}
	return score
}

func sample() []sched.Placement {
	return []sched.Placement{
		{ClassID: "c1", LessonID: "math", TeacherID: "t1", Day: 0, Period: 0},
		{ClassID: "c1", LessonID: "math", TeacherID: "t1", Day: 0, Period: 1},
		{ClassID: "c1", LessonID: "science", TeacherID: "t2", Day: 1, Period: 5},
		{ClassID: "c2", LessonID: "science", TeacherID: "t2", Day: 2, Period: 2},
	}
}

func TestRunNeverReturnsWorseThanInitial(t *testing.T) {
	initial := sample()
	a := New(countMorning, alwaysHard, rand.New(rand.NewSource(7)), Options{InitialTemp: 10, Alpha: 0.9, ItersPerTemp: 20, TMin: 1})
	best := a.Run(initial, nil)
	assert.GreaterOrEqual(t, countMorning(best), countMorning(initial))
}

func TestRunRespectsDeadline(t *testing.T) {
	initial := sample()
	calls := 0
	deadline := func() bool {
		calls++
		return calls > 1
	}
	a := New(countMorning, alwaysHard, rand.New(rand.NewSource(1)), Options{InitialTemp: 1000, Alpha: 0.99, ItersPerTemp: 50, TMin: 1})
	best := a.Run(initial, deadline)
	assert.Len(t, best, len(initial))
}

func TestRunDiscardsCandidatesFailingHardCheck(t *testing.T) {
	initial := sample()
	rejectAll := func(_ []sched.Placement) bool { return false }
	a := New(countMorning, rejectAll, rand.New(rand.NewSource(3)), Options{InitialTemp: 10, Alpha: 0.9, ItersPerTemp: 10, TMin: 1})
	best := a.Run(initial, nil)
	assert.Equal(t, initial, best)
}

func TestGroupBlocksGroupsContiguousSameLessonSameDay(t *testing.T) {
	blocks := groupBlocks(sample())
	foundTwoHour := false
	for _, b := range blocks {
		if b.classID == "c1" && b.lessonID == "math" {
			assert.Len(t, b.placements, 2)
			foundTwoHour = true
		}
	}
	assert.True(t, foundTwoHour)
}
