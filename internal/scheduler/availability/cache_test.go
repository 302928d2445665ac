package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

type fakeSource map[string][]sched.AvailabilitySlot

func (f fakeSource) Availability(teacherID string) []sched.AvailabilitySlot {
	return f[teacherID]
}

func TestCacheIsAvailableDefaultsTrue(t *testing.T) {
	c := Build([]string{"t1"}, fakeSource{})
	assert.True(t, c.IsAvailable("t1", 0, 0))
	assert.True(t, c.IsAvailable("unknown-teacher", 3, 3))
}

func TestCacheIsAvailableRespectsUnavailableRecords(t *testing.T) {
	source := fakeSource{
		"t1": {
			{Day: 0, Period: 2, Available: false},
			{Day: 1, Period: 5, Available: true},
		},
	}
	c := Build([]string{"t1"}, source)
	assert.False(t, c.IsAvailable("t1", 0, 2))
	assert.True(t, c.IsAvailable("t1", 1, 5))
	assert.True(t, c.IsAvailable("t1", 0, 3))
}
