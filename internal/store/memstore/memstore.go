// Package memstore is an in-memory store.EntityStore, used by tests.
package memstore

import (
	"context"
	"sync"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// curriculumKey identifies one (lesson, grade) curriculum entry.
type curriculumKey struct {
	LessonID string
	Grade    int
}

// Store is a fully in-memory EntityStore. Construct it with New (the zero
// value has nil maps) and add fixtures via the Seed*/Set* helpers.
type Store struct {
	mu sync.RWMutex

	schoolType  sched.SchoolType
	classes     []sched.Class
	teachers    []sched.Teacher
	lessons     []sched.Lesson
	classrooms  []sched.Classroom
	assignments []sched.Assignment
	curriculum  map[curriculumKey]int
	availability map[string][]sched.AvailabilitySlot
	placements  []sched.Placement
}

// New returns an empty Store for schoolType.
func New(schoolType sched.SchoolType) *Store {
	return &Store{
		schoolType:   schoolType,
		curriculum:   make(map[curriculumKey]int),
		availability: make(map[string][]sched.AvailabilitySlot),
	}
}

// SeedClasses replaces the class fixture set.
func (s *Store) SeedClasses(classes ...sched.Class) *Store {
	s.classes = classes
	return s
}

// SeedTeachers replaces the teacher fixture set.
func (s *Store) SeedTeachers(teachers ...sched.Teacher) *Store {
	s.teachers = teachers
	return s
}

// SeedLessons replaces the lesson fixture set.
func (s *Store) SeedLessons(lessons ...sched.Lesson) *Store {
	s.lessons = lessons
	return s
}

// SeedClassrooms replaces the classroom fixture set.
func (s *Store) SeedClassrooms(rooms ...sched.Classroom) *Store {
	s.classrooms = rooms
	return s
}

// SeedAssignments replaces the assignment fixture set.
func (s *Store) SeedAssignments(assignments ...sched.Assignment) *Store {
	s.assignments = assignments
	return s
}

// SetCurriculumHours records the required weekly hours for a
// (lesson, grade) pair.
func (s *Store) SetCurriculumHours(lessonID string, grade, hours int) *Store {
	s.curriculum[curriculumKey{LessonID: lessonID, Grade: grade}] = hours
	return s
}

// SetAvailability records a teacher's unavailable/available slots.
func (s *Store) SetAvailability(teacherID string, slots ...sched.AvailabilitySlot) *Store {
	s.availability[teacherID] = slots
	return s
}

func (s *Store) SchoolType(ctx context.Context) (sched.SchoolType, error) {
	return s.schoolType, nil
}

func (s *Store) Classes(ctx context.Context) ([]sched.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sched.Class(nil), s.classes...), nil
}

func (s *Store) Teachers(ctx context.Context) ([]sched.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sched.Teacher(nil), s.teachers...), nil
}

func (s *Store) Lessons(ctx context.Context) ([]sched.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sched.Lesson(nil), s.lessons...), nil
}

func (s *Store) Classrooms(ctx context.Context) ([]sched.Classroom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sched.Classroom(nil), s.classrooms...), nil
}

func (s *Store) Assignments(ctx context.Context) ([]sched.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sched.Assignment(nil), s.assignments...), nil
}

func (s *Store) WeeklyHours(ctx context.Context, lessonID string, grade int) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hours, ok := s.curriculum[curriculumKey{LessonID: lessonID, Grade: grade}]
	return hours, ok, nil
}

func (s *Store) Availability(ctx context.Context, teacherID string) ([]sched.AvailabilitySlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sched.AvailabilitySlot(nil), s.availability[teacherID]...), nil
}

func (s *Store) ClearSchedule(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placements = nil
	return nil
}

func (s *Store) AddPlacement(ctx context.Context, p sched.Placement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.placements {
		if existing.ClassID == p.ClassID && existing.Day == p.Day && existing.Period == p.Period {
			return false, nil
		}
	}
	s.placements = append(s.placements, p)
	return true, nil
}

// Placements returns every placement added so far, for assertions in
// tests that exercise the store through the EntityStore interface.
func (s *Store) Placements() []sched.Placement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sched.Placement(nil), s.placements...)
}
