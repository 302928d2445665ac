package strict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolphinlong/timetable-core/internal/scheduler/availability"
	"github.com/dolphinlong/timetable-core/internal/scheduler/blockplan"
	"github.com/dolphinlong/timetable-core/internal/scheduler/conflict"
	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

type noopSource struct{}

func (noopSource) Availability(teacherID string) []sched.AvailabilitySlot { return nil }

func newPlacer(periodsPerDay int) *Placer {
	cache := availability.Build([]string{"t1", "t2"}, noopSource{})
	idx := conflict.New(false)
	return New(cache, idx, blockplan.Default(), periodsPerDay)
}

func TestPlaceFourHourNeedYieldsTwoBlocksOnDistinctDays(t *testing.T) {
	p := newPlacer(8)
	need := sched.Need{ClassID: "c1", LessonID: "math", TeacherID: "t1", RequiredHours: 4}
	result := p.Place([]sched.Need{need}, nil)

	require.Len(t, result.Placements, 4)
	assert.Empty(t, result.Residual)

	days := map[int]int{}
	for _, pl := range result.Placements {
		days[pl.Day]++
	}
	assert.Len(t, days, 2, "a 4-hour need should land in two 2-blocks on distinct days")
	for _, count := range days {
		assert.Equal(t, 2, count)
	}
}

func TestPlaceOddHoursProducesTrailingSingleton(t *testing.T) {
	p := newPlacer(8)
	need := sched.Need{ClassID: "c1", LessonID: "math", TeacherID: "t1", RequiredHours: 5}
	result := p.Place([]sched.Need{need}, nil)
	assert.Len(t, result.Placements, 5)
	assert.Empty(t, result.Residual)
}

func TestPlaceRespectsTeacherUniqueness(t *testing.T) {
	p := newPlacer(8)
	needs := []sched.Need{
		{ClassID: "c1", LessonID: "math", TeacherID: "t1", RequiredHours: 2},
		{ClassID: "c2", LessonID: "math", TeacherID: "t1", RequiredHours: 2},
	}
	result := p.Place(needs, nil)

	slotOwners := map[sched.Slot]string{}
	for _, pl := range result.Placements {
		slot := sched.Slot{Day: pl.Day, Period: pl.Period}
		if pl.TeacherID != "t1" {
			continue
		}
		_, exists := slotOwners[slot]
		assert.False(t, exists, "teacher t1 double-booked at %+v", slot)
		slotOwners[slot] = pl.ClassID
	}
}

func TestPlaceTwoHourNeedNeverSplits(t *testing.T) {
	p := newPlacer(8)
	need := sched.Need{ClassID: "c1", LessonID: "math", TeacherID: "t1", RequiredHours: 2}
	result := p.Place([]sched.Need{need}, nil)
	require.Len(t, result.Placements, 2)
	assert.Equal(t, result.Placements[0].Day, result.Placements[1].Day)
	assert.Equal(t, result.Placements[0].Period+1, result.Placements[1].Period)
}

func TestPlaceUnavailableTeacherLeavesResidual(t *testing.T) {
	cache := availability.Build([]string{"t1"}, fakeSource{"t1": unavailableAllWeek(8)})
	idx := conflict.New(false)
	p := New(cache, idx, blockplan.Default(), 8)

	need := sched.Need{ClassID: "c1", LessonID: "math", TeacherID: "t1", RequiredHours: 2}
	result := p.Place([]sched.Need{need}, nil)
	assert.Empty(t, result.Placements)
	require.Len(t, result.Residual, 1)
}

type fakeSource map[string][]sched.AvailabilitySlot

func (f fakeSource) Availability(teacherID string) []sched.AvailabilitySlot { return f[teacherID] }

func unavailableAllWeek(periodsPerDay int) []sched.AvailabilitySlot {
	var slots []sched.AvailabilitySlot
	for d := 0; d < sched.DaysPerWeek; d++ {
		for s := 0; s < periodsPerDay; s++ {
			slots = append(slots, sched.AvailabilitySlot{Day: d, Period: s, Available: false})
		}
	}
	return slots
}
