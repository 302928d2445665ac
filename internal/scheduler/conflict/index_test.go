package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

func placement(classID, teacherID string, day, period int) sched.Placement {
	return sched.Placement{ClassID: classID, TeacherID: teacherID, LessonID: "math", Day: day, Period: period}
}

func TestIndexAddDetectsConflicts(t *testing.T) {
	idx := New(false)
	p1 := placement("c1", "t1", 0, 0)
	idx.Add(p1)

	assert.True(t, idx.HasClassConflict("c1", 0, 0))
	assert.True(t, idx.HasTeacherConflict("t1", 0, 0))
	assert.False(t, idx.HasClassConflict("c1", 0, 1))

	p2 := placement("c2", "t1", 0, 0)
	assert.True(t, idx.HasAnyConflict(p2)) // teacher collides
}

func TestIndexRemoveSymmetry(t *testing.T) {
	idx := New(false)
	placements := []sched.Placement{
		placement("c1", "t1", 0, 0),
		placement("c1", "t1", 0, 1),
		placement("c2", "t2", 1, 0),
	}
	for _, p := range placements {
		idx.Add(p)
	}
	for _, p := range placements {
		require.NoError(t, idx.Remove(p))
	}
	assert.False(t, idx.HasClassConflict("c1", 0, 0))
	assert.False(t, idx.HasTeacherConflict("t1", 0, 1))
	assert.False(t, idx.HasClassConflict("c2", 1, 0))
}

func TestIndexRemoveMissingIsDesync(t *testing.T) {
	idx := New(false)
	err := idx.Remove(placement("ghost", "ghost", 0, 0))
	require.Error(t, err)
	var desync *DesyncError
	assert.ErrorAs(t, err, &desync)
}

func TestDetectAllGroupsDuplicates(t *testing.T) {
	placements := []sched.Placement{
		placement("c1", "t1", 0, 0),
		placement("c1", "t2", 0, 0), // class conflict
		placement("c2", "t1", 0, 0), // teacher conflict with first
	}
	conflicts := DetectAll(placements, false)
	require.Len(t, conflicts, 2)

	var kinds []Kind
	for _, c := range conflicts {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, Class)
	assert.Contains(t, kinds, Teacher)
}

func TestDetectAllRoomIgnoredWhenNotEnforced(t *testing.T) {
	p1 := placement("c1", "t1", 0, 0)
	p1.RoomID = "r1"
	p2 := placement("c2", "t2", 1, 1)
	p2.RoomID = "r1"
	conflicts := DetectAll([]sched.Placement{p1, p2}, false)
	assert.Empty(t, conflicts)
}

func TestDetectMaxConsecutiveFindsThreeInARow(t *testing.T) {
	placements := []sched.Placement{
		placement("c1", "t1", 0, 0),
		placement("c1", "t1", 0, 1),
		placement("c1", "t1", 0, 2),
	}
	conflicts := DetectMaxConsecutive(placements, 8)
	require.Len(t, conflicts, 1)
	assert.Equal(t, MaxConsecutive, conflicts[0].Kind)
}

func TestDetectMaxConsecutiveIgnoresDifferentLessons(t *testing.T) {
	p0 := placement("c1", "t1", 0, 0)
	p1 := placement("c1", "t1", 0, 1)
	p2 := placement("c1", "t1", 0, 2)
	p2.LessonID = "science"
	conflicts := DetectMaxConsecutive([]sched.Placement{p0, p1, p2}, 8)
	assert.Empty(t, conflicts)
}

func TestDetectBlockIntegrityFindsGapWithinDay(t *testing.T) {
	placements := []sched.Placement{
		placement("c1", "t1", 0, 0),
		placement("c1", "t1", 0, 1),
		placement("c1", "t1", 0, 4), // same (class,lesson,day), not contiguous
	}
	conflicts := DetectBlockIntegrity(placements)
	require.Len(t, conflicts, 1)
	assert.Equal(t, BlockIntegrity, conflicts[0].Kind)
}

func TestDetectBlockIntegrityAllowsDistinctDays(t *testing.T) {
	placements := []sched.Placement{
		placement("c1", "t1", 0, 0),
		placement("c1", "t1", 0, 1),
		placement("c1", "t1", 2, 0),
		placement("c1", "t1", 2, 1),
	}
	assert.Empty(t, DetectBlockIntegrity(placements))
}

func TestValidateHardCatchesEveryDimension(t *testing.T) {
	ok := []sched.Placement{
		placement("c1", "t1", 0, 0),
		placement("c1", "t1", 0, 1),
		placement("c1", "t1", 2, 0),
	}
	assert.True(t, ValidateHard(ok, false, 8))

	// I8/I7: a 4-hour need's two blocks collapsed onto the same day by a
	// bad swap, as described for the annealer's swapBlocks operator.
	collapsed := []sched.Placement{
		placement("c1", "t1", 0, 0),
		placement("c1", "t1", 0, 1),
		placement("c1", "t1", 0, 4),
		placement("c1", "t1", 0, 5),
	}
	assert.False(t, ValidateHard(collapsed, false, 8))

	// I6: three consecutive same-lesson periods.
	threeRow := []sched.Placement{
		placement("c1", "t1", 0, 0),
		placement("c1", "t1", 0, 1),
		placement("c1", "t1", 0, 2),
	}
	assert.False(t, ValidateHard(threeRow, false, 8))
}
