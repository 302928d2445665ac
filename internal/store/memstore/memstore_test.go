package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
	"github.com/dolphinlong/timetable-core/internal/store"
)

func TestBuildNeedsResolvesCurriculumHours(t *testing.T) {
	s := New(sched.HighSchool).
		SeedClasses(sched.Class{ID: "c1", Grade: 9}).
		SeedAssignments(sched.Assignment{ClassID: "c1", LessonID: "math", TeacherID: "t1"}).
		SetCurriculumHours("math", 9, 4)

	needs, err := store.BuildNeeds(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, needs, 1)
	assert.Equal(t, 4, needs[0].RequiredHours)
}

func TestBuildNeedsFailsOnMissingCurriculumHours(t *testing.T) {
	s := New(sched.HighSchool).
		SeedClasses(sched.Class{ID: "c1", Grade: 9}).
		SeedAssignments(sched.Assignment{ClassID: "c1", LessonID: "math", TeacherID: "t1"})

	_, err := store.BuildNeeds(context.Background(), s)
	require.Error(t, err)
	var missing *store.MissingCurriculumError
	assert.ErrorAs(t, err, &missing)
}

func TestAddPlacementRejectsDuplicateClassSlot(t *testing.T) {
	s := New(sched.HighSchool)
	ctx := context.Background()
	ok, err := s.AddPlacement(ctx, sched.Placement{ClassID: "c1", Day: 0, Period: 0})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AddPlacement(ctx, sched.Placement{ClassID: "c1", Day: 0, Period: 0})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, s.Placements(), 1)
}

func TestClearScheduleEmptiesPlacements(t *testing.T) {
	s := New(sched.HighSchool)
	ctx := context.Background()
	_, _ = s.AddPlacement(ctx, sched.Placement{ClassID: "c1"})
	require.NoError(t, s.ClearSchedule(ctx))
	assert.Empty(t, s.Placements())
}
