// Package pgstore backs store.EntityStore with Postgres via sqlx,
// grounded on the teacher's internal/repository query style (raw SQL,
// SelectContext/GetContext/NamedExecContext, no ORM).
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// Store is a Postgres-backed store.EntityStore.
type Store struct {
	db         *sqlx.DB
	schoolType sched.SchoolType
}

// New returns a Store for schoolType (the deployment's fixed school
// type, read from config rather than the schema — §6.2's table is
// static per deployment).
func New(db *sqlx.DB, schoolType sched.SchoolType) *Store {
	return &Store{db: db, schoolType: schoolType}
}

func (s *Store) SchoolType(ctx context.Context) (sched.SchoolType, error) {
	return s.schoolType, nil
}

type classRow struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Grade int    `db:"grade"`
}

func (s *Store) Classes(ctx context.Context) ([]sched.Class, error) {
	const query = `SELECT id, name, grade FROM scheduler_classes ORDER BY id ASC`
	var rows []classRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	classes := make([]sched.Class, len(rows))
	for i, r := range rows {
		classes[i] = sched.Class{ID: r.ID, Name: r.Name, Grade: r.Grade, SchoolType: s.schoolType}
	}
	return classes, nil
}

type teacherRow struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Subject string `db:"subject"`
}

func (s *Store) Teachers(ctx context.Context) ([]sched.Teacher, error) {
	const query = `SELECT id, name, subject FROM scheduler_teachers ORDER BY id ASC`
	var rows []teacherRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	teachers := make([]sched.Teacher, len(rows))
	for i, r := range rows {
		teachers[i] = sched.Teacher{ID: r.ID, Name: r.Name, Subject: r.Subject}
	}
	return teachers, nil
}

type lessonRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

func (s *Store) Lessons(ctx context.Context) ([]sched.Lesson, error) {
	const query = `SELECT id, name FROM scheduler_lessons ORDER BY id ASC`
	var rows []lessonRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	lessons := make([]sched.Lesson, len(rows))
	for i, r := range rows {
		lessons[i] = sched.Lesson{ID: r.ID, Name: r.Name, SchoolType: s.schoolType}
	}
	return lessons, nil
}

type classroomRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Capacity int    `db:"capacity"`
}

func (s *Store) Classrooms(ctx context.Context) ([]sched.Classroom, error) {
	const query = `SELECT id, name, capacity FROM scheduler_classrooms ORDER BY id ASC`
	var rows []classroomRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	rooms := make([]sched.Classroom, len(rows))
	for i, r := range rows {
		rooms[i] = sched.Classroom{ID: r.ID, Name: r.Name, Capacity: r.Capacity}
	}
	return rooms, nil
}

type assignmentRow struct {
	ClassID   string `db:"class_id"`
	LessonID  string `db:"lesson_id"`
	TeacherID string `db:"teacher_id"`
}

func (s *Store) Assignments(ctx context.Context) ([]sched.Assignment, error) {
	const query = `SELECT class_id, lesson_id, teacher_id FROM scheduler_assignments ORDER BY class_id ASC, lesson_id ASC`
	var rows []assignmentRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	assignments := make([]sched.Assignment, len(rows))
	for i, r := range rows {
		assignments[i] = sched.Assignment{ClassID: r.ClassID, LessonID: r.LessonID, TeacherID: r.TeacherID}
	}
	return assignments, nil
}

func (s *Store) WeeklyHours(ctx context.Context, lessonID string, grade int) (int, bool, error) {
	const query = `SELECT weekly_hours FROM scheduler_curriculum_entries WHERE lesson_id = $1 AND grade = $2`
	var hours int
	err := s.db.GetContext(ctx, &hours, query, lessonID, grade)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("weekly hours for %s/%d: %w", lessonID, grade, err)
	}
	return hours, true, nil
}

type availabilityRow struct {
	Day       int  `db:"day"`
	Period    int  `db:"period"`
	Available bool `db:"available"`
}

func (s *Store) Availability(ctx context.Context, teacherID string) ([]sched.AvailabilitySlot, error) {
	const query = `SELECT day, period, available FROM scheduler_availability WHERE teacher_id = $1`
	var rows []availabilityRow
	if err := s.db.SelectContext(ctx, &rows, query, teacherID); err != nil {
		return nil, fmt.Errorf("availability for %s: %w", teacherID, err)
	}
	slots := make([]sched.AvailabilitySlot, len(rows))
	for i, r := range rows {
		slots[i] = sched.AvailabilitySlot{Day: r.Day, Period: r.Period, Available: r.Available}
	}
	return slots, nil
}

func (s *Store) ClearSchedule(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scheduler_placements`); err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}
	return nil
}

type placementRow struct {
	ClassID   string `db:"class_id"`
	TeacherID string `db:"teacher_id"`
	LessonID  string `db:"lesson_id"`
	RoomID    string `db:"room_id"`
	Day       int    `db:"day"`
	Period    int    `db:"period"`
}

func (s *Store) AddPlacement(ctx context.Context, p sched.Placement) (bool, error) {
	const query = `INSERT INTO scheduler_placements (class_id, teacher_id, lesson_id, room_id, day, period)
VALUES (:class_id, :teacher_id, :lesson_id, :room_id, :day, :period)
ON CONFLICT (class_id, day, period) DO NOTHING`
	row := placementRow{ClassID: p.ClassID, TeacherID: p.TeacherID, LessonID: p.LessonID, RoomID: p.RoomID, Day: p.Day, Period: p.Period}
	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return false, fmt.Errorf("add placement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add placement rows affected: %w", err)
	}
	return affected > 0, nil
}
