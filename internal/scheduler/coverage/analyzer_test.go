package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

func TestSlotsComputesFillRatios(t *testing.T) {
	a := New(8)
	placements := []sched.Placement{
		{ClassID: "c1", Day: 0, Period: 0},
		{ClassID: "c1", Day: 0, Period: 1},
		{ClassID: "c2", Day: 1, Period: 0},
	}
	cov := a.Slots([]string{"c1", "c2"}, placements)
	assert.Equal(t, 2, cov.PerClass["c1"].Filled)
	assert.Equal(t, 1, cov.PerClass["c2"].Filled)
	assert.Equal(t, 40, cov.PerClass["c1"].Total)
	assert.Equal(t, 3, cov.Global.Filled)
	assert.Equal(t, 80, cov.Global.Total)
}

func TestCurricularTracksRequiredHours(t *testing.T) {
	a := New(8)
	needs := []sched.Need{{ClassID: "c1", LessonID: "math", RequiredHours: 4}}
	placements := []sched.Placement{
		{ClassID: "c1", LessonID: "math", Day: 0, Period: 0},
		{ClassID: "c1", LessonID: "math", Day: 0, Period: 1},
	}
	cov := a.Curricular(needs, placements)
	key := sched.NeedKey{ClassID: "c1", LessonID: "math"}
	assert.Equal(t, 2, cov.PerNeed[key].Filled)
	assert.Equal(t, 4, cov.PerNeed[key].Total)
}

func TestEmptySlotsIsStableAndComplete(t *testing.T) {
	a := New(8)
	placements := []sched.Placement{{ClassID: "c1", Day: 0, Period: 0}}
	empty := a.EmptySlots("c1", placements)
	assert.Len(t, empty, 5*8-1)
	assert.NotContains(t, empty, sched.Slot{Day: 0, Period: 0})
	for i := 1; i < len(empty); i++ {
		prev, cur := empty[i-1], empty[i]
		assert.True(t, prev.Day < cur.Day || (prev.Day == cur.Day && prev.Period < cur.Period))
	}
}
