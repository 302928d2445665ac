package explain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportOnEmptyExplainerIsReassuring(t *testing.T) {
	e := New()
	assert.Equal(t, "no scheduling failures recorded", e.Report())
}

func TestReportOrdersReasonsByFrequency(t *testing.T) {
	e := New()
	e.Record(Failure{ClassID: "c1", LessonID: "math", Reason: TeacherUnavailable})
	e.Record(Failure{ClassID: "c1", LessonID: "math", Reason: TeacherUnavailable})
	e.Record(Failure{ClassID: "c2", LessonID: "science", Reason: NoSlots})

	report := e.Report()
	assert.Contains(t, report, "TEACHER_UNAVAILABLE")
	assert.Contains(t, report, "extend teacher availability")
	assert.Contains(t, report, "reduce weekly hours")
	assert.Less(t, strings.Index(report, "TEACHER_UNAVAILABLE"), strings.Index(report, "NO_SLOTS"))
}

func TestFailuresReturnsACopy(t *testing.T) {
	e := New()
	e.Record(Failure{Reason: NoSlots})
	failures := e.Failures()
	failures[0].Reason = BacktrackLimit
	assert.Equal(t, NoSlots, e.Failures()[0].Reason)
}
