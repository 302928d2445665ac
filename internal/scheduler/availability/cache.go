// Package availability implements the AvailabilityCache component (§4.1):
// an O(1) answer to "is teacher T free at (day, period)?", eagerly built
// once per run and read-only thereafter.
package availability

import "github.com/dolphinlong/timetable-core/internal/scheduler/sched"

// Cache answers availability queries in O(1). Absence of a record for a
// (teacher, day, period) means the teacher is available — the cache only
// ever stores the unavailable set.
type Cache struct {
	unavailable map[string]map[sched.Slot]struct{}
}

// Source supplies the raw availability records read once at construction.
type Source interface {
	Availability(teacherID string) []sched.AvailabilitySlot
}

// Build eagerly populates the cache for every teacher in teacherIDs.
func Build(teacherIDs []string, source Source) *Cache {
	c := &Cache{unavailable: make(map[string]map[sched.Slot]struct{}, len(teacherIDs))}
	for _, id := range teacherIDs {
		blocked := make(map[sched.Slot]struct{})
		for _, rec := range source.Availability(id) {
			if !rec.Available {
				blocked[sched.Slot{Day: rec.Day, Period: rec.Period}] = struct{}{}
			}
		}
		c.unavailable[id] = blocked
	}
	return c
}

// IsAvailable reports whether teacherID is free at (day, period). Unknown
// teachers are treated as available everywhere, matching "absence of a
// record means available" for the teacher dimension as well as the slot
// dimension.
func (c *Cache) IsAvailable(teacherID string, day, period int) bool {
	blocked, ok := c.unavailable[teacherID]
	if !ok {
		return true
	}
	_, isBlocked := blocked[sched.Slot{Day: day, Period: period}]
	return !isBlocked
}
