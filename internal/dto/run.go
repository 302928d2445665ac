// Package dto holds the request/response shapes for cmd/schedulerd's HTTP
// surface, validated with go-playground/validator the same way the
// teacher's internal/dto package tags its scheduler payloads.
package dto

// RunConfig mirrors spec §6.6's RunConfig. BacktrackBudget nil means
// Auto (internal/scheduler/csp.AdaptiveBacktrackLimit); RelaxAfterIters
// is only read when RelaxationPolicy is ALLOW_AFTER_ITERS.
type RunConfig struct {
	Strategy         string `json:"strategy" validate:"omitempty,oneof=SIMPLE HYBRID CSP_FULL ANNEALED PARALLEL AUTO"`
	MaxWallTimeSecs  int    `json:"maxWallTimeSecs" validate:"omitempty,min=1,max=600"`
	BacktrackBudget  *int   `json:"backtrackBudget" validate:"omitempty,min=100"`
	RelaxationPolicy string `json:"relaxationPolicy" validate:"omitempty,oneof=STRICT ALLOW_AFTER_ITERS"`
	RelaxAfterIters  int    `json:"relaxAfterIters" validate:"omitempty,min=1"`
	RoomPolicy       string `json:"roomPolicy" validate:"omitempty,oneof=IGNORE ENFORCE"`
	Seed             int64  `json:"seed"`
	ProfileName      string `json:"profileName"`
}

// GenerateRunRequest requests a scheduling run against the stored entity
// snapshot for a school/term.
type GenerateRunRequest struct {
	SchoolID string    `json:"schoolId" validate:"required"`
	TermID   string    `json:"termId" validate:"required"`
	Config   RunConfig `json:"config"`
}

// PlacementDTO is the §6.5 emitted-schedule wire shape.
type PlacementDTO struct {
	ClassID   string `json:"classId"`
	TeacherID string `json:"teacherId"`
	LessonID  string `json:"lessonId"`
	RoomID    string `json:"roomId"`
	Day       int    `json:"day"`
	Period    int    `json:"period"`
	Relaxed   bool   `json:"relaxed,omitempty"`
}

// FeasibilityDTO surfaces the supplemented pre-check (SPEC_FULL.md).
type FeasibilityDTO struct {
	Feasible       bool     `json:"feasible"`
	ZeroDomainKeys []string `json:"zeroDomainKeys,omitempty"`
}

// RunResponse is the result of a scheduling run, cached by RunID so a
// client can poll GET /v1/schedule/runs/:id.
type RunResponse struct {
	RunID           string         `json:"runId"`
	Strategy        string         `json:"strategy"`
	Placements      []PlacementDTO `json:"placements"`
	Score           float64        `json:"score"`
	CoveragePct     float64        `json:"coveragePct"`
	ConflictCount   int            `json:"conflictCount"`
	Feasibility     FeasibilityDTO `json:"feasibility"`
	ExplainerReport string         `json:"explainerReport,omitempty"`
	RequestedAt     string         `json:"requestedAt"`
}
