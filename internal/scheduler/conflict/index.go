// Package conflict implements the ConflictIndex component (§4.2): three
// keyed sets of occupied (day, period) pairs giving O(1) occupancy checks
// plus bulk conflict detection across a placement list.
package conflict

import (
	"fmt"
	"sort"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// Kind identifies which uniqueness dimension a Conflict violates.
type Kind string

const (
	Class          Kind = "CLASS"
	Teacher        Kind = "TEACHER"
	Room           Kind = "ROOM"
	MaxConsecutive Kind = "MAX_CONSECUTIVE"
	BlockIntegrity Kind = "BLOCK_INTEGRITY"
)

// Conflict groups placements that collide on the same uniqueness key.
type Conflict struct {
	Kind       Kind
	Key        string
	Placements []sched.Placement
}

// Index holds the three occupancy sets. Room tracking is only populated
// when EnforceRoom is true (room_policy=Enforce, §6.6) — I3 is otherwise
// not checked.
type Index struct {
	EnforceRoom bool

	classSlots   map[string]map[sched.Slot]sched.Placement
	teacherSlots map[string]map[sched.Slot]sched.Placement
	roomSlots    map[string]map[sched.Slot]sched.Placement
}

// New returns an empty Index. enforceRoom toggles I3 bookkeeping.
func New(enforceRoom bool) *Index {
	return &Index{
		EnforceRoom:  enforceRoom,
		classSlots:   make(map[string]map[sched.Slot]sched.Placement),
		teacherSlots: make(map[string]map[sched.Slot]sched.Placement),
		roomSlots:    make(map[string]map[sched.Slot]sched.Placement),
	}
}

// DesyncError is raised when Remove is called on a placement not present
// in the index — a caller/placer bug per §4.2 and §7.
type DesyncError struct {
	Dimension string
	Placement sched.Placement
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("conflict index desync: %s slot not present for placement %+v", e.Dimension, e.Placement)
}

// Add records p's occupancy in all tracked dimensions.
func (idx *Index) Add(p sched.Placement) {
	slot := sched.Slot{Day: p.Day, Period: p.Period}
	putSlot(idx.classSlots, p.ClassID, slot, p)
	putSlot(idx.teacherSlots, p.TeacherID, slot, p)
	if idx.EnforceRoom && p.RoomID != "" {
		putSlot(idx.roomSlots, p.RoomID, slot, p)
	}
}

// Remove undoes Add. It returns a *DesyncError if p was never added.
func (idx *Index) Remove(p sched.Placement) error {
	slot := sched.Slot{Day: p.Day, Period: p.Period}
	if !dropSlot(idx.classSlots, p.ClassID, slot) {
		return &DesyncError{Dimension: "class", Placement: p}
	}
	if !dropSlot(idx.teacherSlots, p.TeacherID, slot) {
		return &DesyncError{Dimension: "teacher", Placement: p}
	}
	if idx.EnforceRoom && p.RoomID != "" {
		dropSlot(idx.roomSlots, p.RoomID, slot)
	}
	return nil
}

func putSlot(m map[string]map[sched.Slot]sched.Placement, key string, slot sched.Slot, p sched.Placement) {
	if m[key] == nil {
		m[key] = make(map[sched.Slot]sched.Placement)
	}
	m[key][slot] = p
}

func dropSlot(m map[string]map[sched.Slot]sched.Placement, key string, slot sched.Slot) bool {
	bucket, ok := m[key]
	if !ok {
		return false
	}
	if _, ok := bucket[slot]; !ok {
		return false
	}
	delete(bucket, slot)
	return true
}

// HasClassConflict reports whether classID already occupies (day, period).
func (idx *Index) HasClassConflict(classID string, day, period int) bool {
	return occupies(idx.classSlots, classID, day, period)
}

// HasTeacherConflict reports whether teacherID already occupies (day, period).
func (idx *Index) HasTeacherConflict(teacherID string, day, period int) bool {
	return occupies(idx.teacherSlots, teacherID, day, period)
}

// HasRoomConflict reports whether roomID already occupies (day, period).
// Always false when room enforcement is off.
func (idx *Index) HasRoomConflict(roomID string, day, period int) bool {
	if !idx.EnforceRoom || roomID == "" {
		return false
	}
	return occupies(idx.roomSlots, roomID, day, period)
}

// HasAnyConflict is the combined I1/I2/I3 check used before committing a
// candidate placement.
func (idx *Index) HasAnyConflict(p sched.Placement) bool {
	if idx.HasClassConflict(p.ClassID, p.Day, p.Period) {
		return true
	}
	if idx.HasTeacherConflict(p.TeacherID, p.Day, p.Period) {
		return true
	}
	if idx.HasRoomConflict(p.RoomID, p.Day, p.Period) {
		return true
	}
	return false
}

func occupies(m map[string]map[sched.Slot]sched.Placement, key string, day, period int) bool {
	bucket, ok := m[key]
	if !ok {
		return false
	}
	_, ok = bucket[sched.Slot{Day: day, Period: period}]
	return ok
}

// DetectAll groups the given placement list by each uniqueness key and
// reports every group of size > 1 as a Conflict. It does not consult the
// Index's own state — it is a pure function over the list handed to it,
// so callers can validate an externally assembled schedule too.
func DetectAll(placements []sched.Placement, enforceRoom bool) []Conflict {
	byClass := map[string][]sched.Placement{}
	byTeacher := map[string][]sched.Placement{}
	byRoom := map[string][]sched.Placement{}

	for _, p := range placements {
		ck := fmt.Sprintf("%s|%d|%d", p.ClassID, p.Day, p.Period)
		byClass[ck] = append(byClass[ck], p)
		tk := fmt.Sprintf("%s|%d|%d", p.TeacherID, p.Day, p.Period)
		byTeacher[tk] = append(byTeacher[tk], p)
		if enforceRoom && p.RoomID != "" {
			rk := fmt.Sprintf("%s|%d|%d", p.RoomID, p.Day, p.Period)
			byRoom[rk] = append(byRoom[rk], p)
		}
	}

	var conflicts []Conflict
	conflicts = append(conflicts, collectGroups(Class, byClass)...)
	conflicts = append(conflicts, collectGroups(Teacher, byTeacher)...)
	if enforceRoom {
		conflicts = append(conflicts, collectGroups(Room, byRoom)...)
	}
	return conflicts
}

func collectGroups(kind Kind, groups map[string][]sched.Placement) []Conflict {
	var out []Conflict
	for key, group := range groups {
		if len(group) > 1 {
			out = append(out, Conflict{Kind: kind, Key: key, Placements: group})
		}
	}
	return out
}

// DetectMaxConsecutive reports every (class, day) window of three
// consecutive periods carrying the same lesson (I6).
func DetectMaxConsecutive(placements []sched.Placement, periodsPerDay int) []Conflict {
	type dayKey struct {
		classID string
		day     int
	}
	byClassDay := make(map[dayKey]map[int]sched.Placement)
	for _, p := range placements {
		k := dayKey{p.ClassID, p.Day}
		if byClassDay[k] == nil {
			byClassDay[k] = make(map[int]sched.Placement)
		}
		byClassDay[k][p.Period] = p
	}

	var out []Conflict
	for k, byPeriod := range byClassDay {
		for period := 0; period+2 < periodsPerDay; period++ {
			p0, ok0 := byPeriod[period]
			p1, ok1 := byPeriod[period+1]
			p2, ok2 := byPeriod[period+2]
			if ok0 && ok1 && ok2 && p0.LessonID == p1.LessonID && p1.LessonID == p2.LessonID {
				out = append(out, Conflict{
					Kind:       MaxConsecutive,
					Key:        fmt.Sprintf("%s|%d|%d", k.classID, k.day, period),
					Placements: []sched.Placement{p0, p1, p2},
				})
			}
		}
	}
	return out
}

// DetectBlockIntegrity reports every (class, lesson, day) group whose
// periods are not a single contiguous run. A gap within the group means
// either a block was split within a day (I7), or two distinct blocks of
// the same (class, lesson) pair were collapsed onto the same day by a
// move that should have landed on a distinct day (I8).
func DetectBlockIntegrity(placements []sched.Placement) []Conflict {
	type groupKey struct {
		classID, lessonID string
		day               int
	}
	groups := make(map[groupKey][]sched.Placement)
	for _, p := range placements {
		k := groupKey{p.ClassID, p.LessonID, p.Day}
		groups[k] = append(groups[k], p)
	}

	var out []Conflict
	for k, ps := range groups {
		sort.Slice(ps, func(i, j int) bool { return ps[i].Period < ps[j].Period })
		contiguous := true
		for i := 1; i < len(ps); i++ {
			if ps[i].Period != ps[i-1].Period+1 {
				contiguous = false
				break
			}
		}
		if !contiguous {
			out = append(out, Conflict{
				Kind:       BlockIntegrity,
				Key:        fmt.Sprintf("%s|%s|%d", k.classID, k.lessonID, k.day),
				Placements: ps,
			})
		}
	}
	return out
}

// ValidateHard reports whether placements satisfies every hard
// constraint: I1/I2/I3 (via DetectAll), I6 (DetectMaxConsecutive), and
// I7/I8 (DetectBlockIntegrity). periodsPerDay must match the run's grid.
func ValidateHard(placements []sched.Placement, enforceRoom bool, periodsPerDay int) bool {
	if len(DetectAll(placements, enforceRoom)) > 0 {
		return false
	}
	if len(DetectMaxConsecutive(placements, periodsPerDay)) > 0 {
		return false
	}
	if len(DetectBlockIntegrity(placements)) > 0 {
		return false
	}
	return true
}
