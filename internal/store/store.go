// Package store defines the narrow, read-mostly entity-store contract
// the scheduling core consumes (§6.1). The core never mutates entities;
// it only reads them once per run and writes the final placements back.
package store

import (
	"context"
	"fmt"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// EntityStore is the contract every scheduling run is driven through.
// Implementations may back it with a database (pgstore) or an in-memory
// fixture (memstore, for tests).
type EntityStore interface {
	SchoolType(ctx context.Context) (sched.SchoolType, error)
	Classes(ctx context.Context) ([]sched.Class, error)
	Teachers(ctx context.Context) ([]sched.Teacher, error)
	Lessons(ctx context.Context) ([]sched.Lesson, error)
	Classrooms(ctx context.Context) ([]sched.Classroom, error)
	Assignments(ctx context.Context) ([]sched.Assignment, error)
	WeeklyHours(ctx context.Context, lessonID string, grade int) (int, bool, error)
	Availability(ctx context.Context, teacherID string) ([]sched.AvailabilitySlot, error)
	ClearSchedule(ctx context.Context) error
	AddPlacement(ctx context.Context, p sched.Placement) (bool, error)
}

// BuildNeeds derives the working-set Needs (§3) from a store's
// Assignments and curriculum hours. It is the one place input errors
// (§7) about missing curriculum hours surface, since every other
// component assumes Needs are already well-formed.
func BuildNeeds(ctx context.Context, s EntityStore) ([]sched.Need, error) {
	assignments, err := s.Assignments(ctx)
	if err != nil {
		return nil, err
	}
	classes, err := s.Classes(ctx)
	if err != nil {
		return nil, err
	}
	gradeByClass := make(map[string]int, len(classes))
	for _, c := range classes {
		gradeByClass[c.ID] = c.Grade
	}

	needs := make([]sched.Need, 0, len(assignments))
	for _, a := range assignments {
		grade, ok := gradeByClass[a.ClassID]
		if !ok {
			return nil, &MissingClassError{ClassID: a.ClassID}
		}
		hours, found, err := s.WeeklyHours(ctx, a.LessonID, grade)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &MissingCurriculumError{LessonID: a.LessonID, Grade: grade}
		}
		needs = append(needs, sched.Need{
			ClassID:       a.ClassID,
			LessonID:      a.LessonID,
			TeacherID:     a.TeacherID,
			Grade:         grade,
			RequiredHours: hours,
		})
	}
	return needs, nil
}

// MissingClassError reports an Assignment referencing an unknown class.
type MissingClassError struct{ ClassID string }

func (e *MissingClassError) Error() string { return "assignment references unknown class " + e.ClassID }

// MissingCurriculumError reports a lesson/grade pair with no curriculum
// hours on record, despite being assigned to a class of that grade.
type MissingCurriculumError struct {
	LessonID string
	Grade    int
}

func (e *MissingCurriculumError) Error() string {
	return fmt.Sprintf("missing curriculum hours for lesson %s at grade %d", e.LessonID, e.Grade)
}
