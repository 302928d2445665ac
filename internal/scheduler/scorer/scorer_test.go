package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

func names(m map[string]string) LessonNameOf {
	return func(lessonID string) string { return m[lessonID] }
}

func TestTeacherTimePrefBonusesMorningPenalizesLate(t *testing.T) {
	s := New(nil, DefaultSubjectLists(), 8)
	placements := []sched.Placement{
		{Period: 0}, // morning
		{Period: 7}, // late
	}
	assert.Equal(t, 0.0, s.teacherTimePref(placements))
}

func TestLessonSpacingRewardsTwoToThreeDayGap(t *testing.T) {
	s := New(nil, DefaultSubjectLists(), 8)
	placements := []sched.Placement{
		{ClassID: "c1", LessonID: "math", Day: 0},
		{ClassID: "c1", LessonID: "math", Day: 2},
	}
	assert.Equal(t, 5.0, s.lessonSpacing(placements))
}

func TestLessonSpacingPenalizesAdjacentDays(t *testing.T) {
	s := New(nil, DefaultSubjectLists(), 8)
	placements := []sched.Placement{
		{ClassID: "c1", LessonID: "math", Day: 0},
		{ClassID: "c1", LessonID: "math", Day: 1},
	}
	assert.Equal(t, -2.0, s.lessonSpacing(placements))
}

func TestNoGapsPenalizesIntradayHoles(t *testing.T) {
	s := New(nil, DefaultSubjectLists(), 8)
	placements := []sched.Placement{
		{ClassID: "c1", Day: 0, Period: 0},
		{ClassID: "c1", Day: 0, Period: 2},
	}
	assert.Equal(t, -10.0, s.noGaps(placements))
}

func TestConsecutiveBlockBonusRewardsAdjacentSameLesson(t *testing.T) {
	s := New(nil, DefaultSubjectLists(), 8)
	placements := []sched.Placement{
		{ClassID: "c1", LessonID: "math", Day: 0, Period: 0},
		{ClassID: "c1", LessonID: "math", Day: 0, Period: 1},
	}
	assert.Equal(t, 5.0, s.consecutiveBlockBonus(placements))
}

func TestDifficultMorningUsesSubjectList(t *testing.T) {
	s := New(nil, DefaultSubjectLists(), 8)
	lessonName := names(map[string]string{"m": "Mathematics"})
	placements := []sched.Placement{{LessonID: "m", Period: 1}}
	assert.Equal(t, 3.0, s.difficultMorning(placements, lessonName))

	latePlacements := []sched.Placement{{LessonID: "m", Period: 6}}
	assert.Equal(t, -3.0, s.difficultMorning(latePlacements, lessonName))
}

func TestLunchLightUsesSubjectList(t *testing.T) {
	s := New(nil, DefaultSubjectLists(), 8)
	lessonName := names(map[string]string{"pe": "Physical Education", "m": "Mathematics"})
	placements := []sched.Placement{
		{LessonID: "pe", Period: 3},
		{LessonID: "m", Period: 4},
	}
	assert.Equal(t, 1.0, s.lunchLight(placements, lessonName))
}

type fakeWeights map[string]float64

func (f fakeWeights) Weight(id string) float64 { return f[id] }

func TestScoreAppliesWeightsAndSumsBreakdown(t *testing.T) {
	s := New(fakeWeights{NoGaps: 1}, DefaultSubjectLists(), 8)
	placements := []sched.Placement{
		{ClassID: "c1", Day: 0, Period: 0},
		{ClassID: "c1", Day: 0, Period: 2},
	}
	b := s.Score(placements, nil)
	assert.Equal(t, -10.0, b.ByID[NoGaps])
	sum := 0.0
	for _, v := range b.ByID {
		sum += v
	}
	assert.Equal(t, sum, b.Total)
}

func TestScoreFallsBackToDefaultWeightsWhenSourceNil(t *testing.T) {
	s := New(nil, DefaultSubjectLists(), 8)
	b := s.Score(nil, nil)
	assert.Equal(t, 0.0, b.Total)

	gap := []sched.Placement{
		{ClassID: "c1", Day: 0, Period: 0},
		{ClassID: "c1", Day: 0, Period: 2},
	}
	assert.Equal(t, -10.0*DefaultWeights[NoGaps], s.Score(gap, nil).ByID[NoGaps])
}
