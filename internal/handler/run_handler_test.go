package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolphinlong/timetable-core/internal/dto"
	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
	"github.com/dolphinlong/timetable-core/internal/store"
	appErrors "github.com/dolphinlong/timetable-core/pkg/errors"
)

type runGeneratorMock struct {
	generateResp *dto.RunResponse
	generateErr  error
	getResp      *dto.RunResponse
	getErr       error
	commitErr    error
}

func (m *runGeneratorMock) Generate(ctx context.Context, s store.EntityStore, req dto.GenerateRunRequest) (*dto.RunResponse, error) {
	return m.generateResp, m.generateErr
}

func (m *runGeneratorMock) Get(runID string) (*dto.RunResponse, error) {
	return m.getResp, m.getErr
}

func (m *runGeneratorMock) Commit(ctx context.Context, s store.EntityStore, runID string) error {
	return m.commitErr
}

type noopStore struct{}

func (noopStore) SchoolType(ctx context.Context) (sched.SchoolType, error) { return sched.HighSchool, nil }
func (noopStore) Classes(ctx context.Context) ([]sched.Class, error)       { return nil, nil }
func (noopStore) Teachers(ctx context.Context) ([]sched.Teacher, error)    { return nil, nil }
func (noopStore) Lessons(ctx context.Context) ([]sched.Lesson, error)      { return nil, nil }
func (noopStore) Classrooms(ctx context.Context) ([]sched.Classroom, error) {
	return nil, nil
}
func (noopStore) Assignments(ctx context.Context) ([]sched.Assignment, error) { return nil, nil }
func (noopStore) WeeklyHours(ctx context.Context, lessonID string, grade int) (int, bool, error) {
	return 0, false, nil
}
func (noopStore) Availability(ctx context.Context, teacherID string) ([]sched.AvailabilitySlot, error) {
	return nil, nil
}
func (noopStore) ClearSchedule(ctx context.Context) error { return nil }
func (noopStore) AddPlacement(ctx context.Context, p sched.Placement) (bool, error) {
	return true, nil
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestRunHandlerGenerateInvalidJSON(t *testing.T) {
	h := &RunHandler{service: &runGeneratorMock{}, store: noopStore{}}
	c, w := newTestContext(http.MethodPost, "/v1/schedule/runs", []byte("{"))

	h.Generate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunHandlerGenerateSuccess(t *testing.T) {
	mock := &runGeneratorMock{generateResp: &dto.RunResponse{RunID: "run-1", CoveragePct: 100}}
	h := &RunHandler{service: mock, store: noopStore{}}
	body := []byte(`{"schoolId":"s1","termId":"t1"}`)
	c, w := newTestContext(http.MethodPost, "/v1/schedule/runs", body)

	h.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run-1")
}

func TestRunHandlerGeneratePropagatesServiceError(t *testing.T) {
	mock := &runGeneratorMock{generateErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "no assignments")}
	h := &RunHandler{service: mock, store: noopStore{}}
	body := []byte(`{"schoolId":"s1","termId":"t1"}`)
	c, w := newTestContext(http.MethodPost, "/v1/schedule/runs", body)

	h.Generate(c)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestRunHandlerGetNotFound(t *testing.T) {
	mock := &runGeneratorMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "run not found")}
	h := &RunHandler{service: mock, store: noopStore{}}
	c, w := newTestContext(http.MethodGet, "/v1/schedule/runs/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunHandlerCommitSuccess(t *testing.T) {
	mock := &runGeneratorMock{}
	h := &RunHandler{service: mock, store: noopStore{}}
	c, w := newTestContext(http.MethodPost, "/v1/schedule/runs/run-1/commit", nil)
	c.Params = gin.Params{{Key: "id", Value: "run-1"}}

	h.Commit(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRunHandlerCommitConflict(t *testing.T) {
	mock := &runGeneratorMock{commitErr: appErrors.Clone(appErrors.ErrConflict, "unresolved conflicts")}
	h := &RunHandler{service: mock, store: noopStore{}}
	c, w := newTestContext(http.MethodPost, "/v1/schedule/runs/run-1/commit", nil)
	c.Params = gin.Params{{Key: "id", Value: "run-1"}}

	h.Commit(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}
