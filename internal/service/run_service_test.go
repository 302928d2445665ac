package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolphinlong/timetable-core/internal/dto"
	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
	"github.com/dolphinlong/timetable-core/internal/store/memstore"
)

func newFixtureStore() *memstore.Store {
	s := memstore.New(sched.HighSchool)
	s.SeedClasses(sched.Class{ID: "c1", Name: "10A", Grade: 10})
	s.SeedTeachers(sched.Teacher{ID: "t1", Name: "Ada", Subject: "math"})
	s.SeedLessons(sched.Lesson{ID: "math", Name: "Mathematics"})
	s.SeedAssignments(sched.Assignment{ClassID: "c1", LessonID: "math", TeacherID: "t1"})
	s.SetCurriculumHours("math", 10, 4)
	return s
}

func TestGenerateProducesACoveredRun(t *testing.T) {
	svc := New(nil, nil, nil, nil, Config{})
	s := newFixtureStore()

	resp, err := svc.Generate(context.Background(), s, dto.GenerateRunRequest{
		SchoolID: "school-1",
		TermID:   "term-1",
		Config:   dto.RunConfig{Strategy: "HYBRID", Seed: 1},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.RunID)
	assert.Len(t, resp.Placements, 4)
	assert.Equal(t, 100.0, resp.CoveragePct)
	assert.Equal(t, 0, resp.ConflictCount)
}

func TestGenerateRejectsEmptyAssignments(t *testing.T) {
	svc := New(nil, nil, nil, nil, Config{})
	s := memstore.New(sched.HighSchool)

	_, err := svc.Generate(context.Background(), s, dto.GenerateRunRequest{
		SchoolID: "school-1",
		TermID:   "term-1",
	})

	require.Error(t, err)
}

func TestGenerateSurfacesMissingCurriculumAsValidationError(t *testing.T) {
	svc := New(nil, nil, nil, nil, Config{})
	s := memstore.New(sched.HighSchool)
	s.SeedClasses(sched.Class{ID: "c1", Name: "10A", Grade: 10})
	s.SeedTeachers(sched.Teacher{ID: "t1", Name: "Ada", Subject: "math"})
	s.SeedLessons(sched.Lesson{ID: "math", Name: "Mathematics"})
	s.SeedAssignments(sched.Assignment{ClassID: "c1", LessonID: "math", TeacherID: "t1"})
	// No SetCurriculumHours call: BuildNeeds must fail.

	_, err := svc.Generate(context.Background(), s, dto.GenerateRunRequest{
		SchoolID: "school-1",
		TermID:   "term-1",
	})

	require.Error(t, err)
}

func TestGetReturnsCachedRun(t *testing.T) {
	svc := New(nil, nil, nil, nil, Config{})
	s := newFixtureStore()

	resp, err := svc.Generate(context.Background(), s, dto.GenerateRunRequest{SchoolID: "s", TermID: "t"})
	require.NoError(t, err)

	got, err := svc.Get(resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, resp.RunID, got.RunID)
}

func TestGetUnknownRunReturnsNotFound(t *testing.T) {
	svc := New(nil, nil, nil, nil, Config{})
	_, err := svc.Get("does-not-exist")
	assert.Error(t, err)
}

func TestCommitPersistsPlacementsThenClearsOnNextCommit(t *testing.T) {
	svc := New(nil, nil, nil, nil, Config{})
	s := newFixtureStore()

	resp, err := svc.Generate(context.Background(), s, dto.GenerateRunRequest{SchoolID: "s", TermID: "t"})
	require.NoError(t, err)

	err = svc.Commit(context.Background(), s, resp.RunID)
	require.NoError(t, err)
	assert.Len(t, s.Placements(), len(resp.Placements))

	_, err = s.AddPlacement(context.Background(), sched.Placement{ClassID: "stale", Day: 4, Period: 7})
	require.NoError(t, err)
	err = svc.Commit(context.Background(), s, resp.RunID)
	require.NoError(t, err)
	assert.Len(t, s.Placements(), len(resp.Placements))
}

func TestCommitRejectsConflictingRun(t *testing.T) {
	svc := New(nil, nil, nil, nil, Config{})
	s := newFixtureStore()

	resp, err := svc.Generate(context.Background(), s, dto.GenerateRunRequest{SchoolID: "s", TermID: "t"})
	require.NoError(t, err)

	cached, _ := svc.cache.Get(resp.RunID)
	cached.ConflictCount = 1
	svc.cache.Save(resp.RunID, cached)

	err = svc.Commit(context.Background(), s, resp.RunID)
	assert.Error(t, err)
}

func TestAvgLessonsPerClass(t *testing.T) {
	needs := []sched.Need{
		{ClassID: "c1", LessonID: "math"},
		{ClassID: "c1", LessonID: "science"},
		{ClassID: "c2", LessonID: "math"},
	}
	assert.InDelta(t, 1.5, avgLessonsPerClass(needs, []string{"c1", "c2"}), 0.001)
	assert.Equal(t, float64(0), avgLessonsPerClass(nil, nil))
}
