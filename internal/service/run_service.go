// Package service wires internal/store and the internal/scheduler/*
// components into runnable operations, grounded on the teacher's
// ScheduleGeneratorService shape (validate -> build working state ->
// run -> cache proposal -> respond).
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dolphinlong/timetable-core/internal/dto"
	"github.com/dolphinlong/timetable-core/internal/scheduler/aggressive"
	"github.com/dolphinlong/timetable-core/internal/scheduler/anneal"
	"github.com/dolphinlong/timetable-core/internal/scheduler/availability"
	"github.com/dolphinlong/timetable-core/internal/scheduler/blockplan"
	"github.com/dolphinlong/timetable-core/internal/scheduler/conflict"
	"github.com/dolphinlong/timetable-core/internal/scheduler/coverage"
	"github.com/dolphinlong/timetable-core/internal/scheduler/csp"
	"github.com/dolphinlong/timetable-core/internal/scheduler/errs"
	"github.com/dolphinlong/timetable-core/internal/scheduler/explain"
	"github.com/dolphinlong/timetable-core/internal/scheduler/orchestrator"
	"github.com/dolphinlong/timetable-core/internal/scheduler/priority"
	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
	"github.com/dolphinlong/timetable-core/internal/scheduler/scorer"
	"github.com/dolphinlong/timetable-core/internal/scheduler/strict"
	"github.com/dolphinlong/timetable-core/internal/store"
	appErrors "github.com/dolphinlong/timetable-core/pkg/errors"
	"github.com/dolphinlong/timetable-core/pkg/metrics"
)

// metricsSink is the subset of pkg/metrics.Service the run pipeline
// reports to; satisfied by *metrics.Service. It embeds
// aggressive.RelaxationCounter so the same sink feeds the filler.
type metricsSink interface {
	aggressive.RelaxationCounter
	ObserveStrategyRun(strategy string, duration time.Duration, iterations int, coverageRatio float64)
	ObserveBacktracks(count int)
}

// RunService runs the Orchestrator against a store.EntityStore snapshot
// and caches results for later retrieval, mirroring the teacher's
// proposalStore TTL-cache pattern.
type RunService struct {
	profiles  priority.ProfileStore
	validator *validator.Validate
	logger    *zap.Logger
	metrics   metricsSink
	pool      orchestrator.Pool
	redis     availability.RedisClient
	cacheTTL  time.Duration

	defaultMaxWall time.Duration

	cache *runCache
}

// Config governs RunService defaults not supplied per-request.
type Config struct {
	ResultTTL          time.Duration
	DefaultMaxWallTime time.Duration
	// Redis, when set, memoizes AvailabilityCache builds per (teacher,
	// snapshot) via availability.BuildRedisBacked instead of rebuilding
	// from EntityStore.Availability on every run.
	Redis           availability.RedisClient
	AvailabilityTTL time.Duration
}

// New wires a RunService. profiles/logger/metricsSvc/pool may be nil;
// sensible defaults are substituted the same way the teacher's
// NewScheduleGeneratorService nil-guards its collaborators.
func New(profiles priority.ProfileStore, logger *zap.Logger, metricsSvc *metrics.Service, pool orchestrator.Pool, cfg Config) *RunService {
	if profiles == nil {
		profiles = priority.NewMemoryProfileStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool == nil {
		pool = orchestrator.NewUnboundedPool()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 30 * time.Minute
	}
	if cfg.DefaultMaxWallTime <= 0 {
		cfg.DefaultMaxWallTime = 30 * time.Second
	}
	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 10 * time.Minute
	}
	var sink metricsSink
	if metricsSvc != nil {
		sink = metricsSvc
	}
	return &RunService{
		profiles:  profiles,
		validator: validator.New(),
		logger:    logger,
		metrics:   sink,
		pool:      pool,
		redis:     cfg.Redis,
		cacheTTL:  cfg.AvailabilityTTL,
		cache:     newRunCache(cfg.ResultTTL),

		defaultMaxWall: cfg.DefaultMaxWallTime,
	}
}

// Generate builds Needs from s, runs the orchestrator per req.Config, and
// caches the result under a new RunID.
func (svc *RunService) Generate(ctx context.Context, s store.EntityStore, req dto.GenerateRunRequest) (*dto.RunResponse, error) {
	if err := svc.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run request")
	}

	needs, err := store.BuildNeeds(ctx, s)
	if err != nil {
		return nil, inputError(err)
	}
	if len(needs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no assignments found for this school/term")
	}

	schoolType, err := s.SchoolType(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve school type")
	}
	periodsPerDay := sched.PeriodsPerDay(schoolType)

	classes, err := s.Classes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	lessons, err := s.Lessons(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	teachers, err := s.Teachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	run, err := svc.newRunContext(ctx, s, needs, classes, lessons, teachers, periodsPerDay, req, svc.profiles)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare run context")
	}

	feasibility := orchestrator.CheckFeasibility(needs, run.domainSize)

	enforceRoom := req.Config.RoomPolicy == "ENFORCE"
	outcome := svc.execute(run, enforceRoom)

	report := run.explainer.Report()

	resp := &dto.RunResponse{
		RunID:           uuid.NewString(),
		Strategy:        string(outcome.Strategy),
		Placements:      toPlacementDTOs(outcome.Placements),
		Score:           orchestrator.Score(outcome, enforceRoom),
		CoveragePct:     coveragePct(outcome),
		ConflictCount:   len(conflict.DetectAll(outcome.Placements, enforceRoom)),
		Feasibility:     toFeasibilityDTO(feasibility),
		ExplainerReport: report,
		RequestedAt:     timeNow().UTC().Format(time.RFC3339),
	}

	svc.cache.Save(resp.RunID, *resp)
	return resp, nil
}

// Get returns a previously cached run result.
func (svc *RunService) Get(runID string) (*dto.RunResponse, error) {
	if runID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}
	resp, ok := svc.cache.Get(runID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found or expired")
	}
	return &resp, nil
}

// Commit persists a cached run's placements via s.AddPlacement, clearing
// the prior schedule first.
func (svc *RunService) Commit(ctx context.Context, s store.EntityStore, runID string) error {
	resp, err := svc.Get(runID)
	if err != nil {
		return err
	}
	if resp.ConflictCount > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "run contains unresolved conflicts")
	}
	if err := s.ClearSchedule(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear prior schedule")
	}
	for _, p := range resp.Placements {
		if _, err := s.AddPlacement(ctx, sched.Placement{
			ClassID: p.ClassID, TeacherID: p.TeacherID, LessonID: p.LessonID,
			RoomID: p.RoomID, Day: p.Day, Period: p.Period, Relaxed: p.Relaxed,
		}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist placement")
		}
	}
	return nil
}

// timeNow is a thin seam so tests needing a fixed clock can monkeypatch
// this var; production always uses wall-clock time.
var timeNow = time.Now

func toPlacementDTOs(placements []sched.Placement) []dto.PlacementDTO {
	out := make([]dto.PlacementDTO, len(placements))
	for i, p := range placements {
		out[i] = dto.PlacementDTO{
			ClassID: p.ClassID, TeacherID: p.TeacherID, LessonID: p.LessonID,
			RoomID: p.RoomID, Day: p.Day, Period: p.Period, Relaxed: p.Relaxed,
		}
	}
	return out
}

func toFeasibilityDTO(f orchestrator.Feasibility) dto.FeasibilityDTO {
	keys := make([]string, len(f.ZeroDomainKeys))
	for i, k := range f.ZeroDomainKeys {
		keys[i] = fmt.Sprintf("%s/%s", k.ClassID, k.LessonID)
	}
	return dto.FeasibilityDTO{Feasible: f.Feasible, ZeroDomainKeys: keys}
}

// inputError classifies a store.BuildNeeds failure into the §7 InputError
// taxonomy before wrapping it for the HTTP contract, so callers that
// inspect the error chain (errors.As) still see *errs.InputError.
func inputError(err error) *appErrors.Error {
	var missingClass *store.MissingClassError
	var missingCurriculum *store.MissingCurriculumError
	switch {
	case errors.As(err, &missingClass):
		return appErrors.Wrap(&errs.InputError{Kind: "missing_assignment", ID: missingClass.ClassID},
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "assignment references unknown class")
	case errors.As(err, &missingCurriculum):
		return appErrors.Wrap(&errs.InputError{Kind: "missing_curriculum_hours", ID: missingCurriculum.LessonID},
			appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing curriculum hours for assigned lesson")
	default:
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to build scheduling needs")
	}
}

func coveragePct(outcome orchestrator.StrategyOutcome) float64 {
	if outcome.Expected <= 0 {
		return 0
	}
	return 100 * float64(len(outcome.Placements)) / float64(outcome.Expected)
}

// --- run cache, grounded on the teacher's proposalStore TTL pattern ---

type runCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]cachedRun
}

type cachedRun struct {
	resp    dto.RunResponse
	savedAt time.Time
}

func newRunCache(ttl time.Duration) *runCache {
	return &runCache{ttl: ttl, items: make(map[string]cachedRun)}
}

func (c *runCache) Save(id string, resp dto.RunResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = cachedRun{resp: resp, savedAt: timeNow()}
}

func (c *runCache) Get(id string) (dto.RunResponse, bool) {
	c.mu.RLock()
	entry, ok := c.items[id]
	c.mu.RUnlock()
	if !ok {
		return dto.RunResponse{}, false
	}
	if timeNow().Sub(entry.savedAt) > c.ttl {
		c.mu.Lock()
		delete(c.items, id)
		c.mu.Unlock()
		return dto.RunResponse{}, false
	}
	return entry.resp, true
}

// --- run context: the per-run working state shared by every strategy ---

type runContext struct {
	needs         []sched.Need
	classIDs      []string
	gradeOf       map[string]int
	lessonName    map[string]string
	avail         *availability.Cache
	planner       *blockplan.Planner
	periodsPerDay int
	registry      *priority.Registry
	scorer        *scorer.Scorer
	explainer     *explain.Explainer
	config        dto.RunConfig
	seed          int64
	numTeachers   int
}

func (svc *RunService) newRunContext(
	ctx context.Context,
	s store.EntityStore,
	needs []sched.Need,
	classes []sched.Class,
	lessons []sched.Lesson,
	teachers []sched.Teacher,
	periodsPerDay int,
	req dto.GenerateRunRequest,
	profiles priority.ProfileStore,
) (*runContext, error) {
	cfg := req.Config
	gradeOf := make(map[string]int, len(classes))
	classIDs := make([]string, 0, len(classes))
	for _, c := range classes {
		gradeOf[c.ID] = c.Grade
		classIDs = append(classIDs, c.ID)
	}
	sort.Strings(classIDs)

	lessonName := make(map[string]string, len(lessons))
	for _, l := range lessons {
		lessonName[l.ID] = l.Name
	}

	teacherIDs := make([]string, 0, len(teachers))
	for _, t := range teachers {
		teacherIDs = append(teacherIDs, t.ID)
	}
	src := &prefetchedAvailability{records: make(map[string][]sched.AvailabilitySlot, len(teacherIDs))}
	for _, id := range teacherIDs {
		slots, err := s.Availability(ctx, id)
		if err != nil {
			return nil, err
		}
		src.records[id] = slots
	}
	var availCache *availability.Cache
	if svc.redis != nil {
		availCache = availability.BuildRedisBacked(ctx, svc.redis, snapshotHash(req.SchoolID, req.TermID), svc.cacheTTL, teacherIDs, src, svc.logger)
	} else {
		availCache = availability.Build(teacherIDs, src)
	}

	profileName := cfg.ProfileName
	if profileName == "" {
		profileName = priority.ProfileBalanced
	}
	levels, ok, err := profiles.Load(profileName)
	if err != nil {
		return nil, err
	}
	if !ok {
		levels, _ = priority.Profile(priority.ProfileBalanced)
	}
	registry := priority.New(levels)

	sc := scorer.New(registry, scorer.DefaultSubjectLists(), periodsPerDay)

	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}

	return &runContext{
		needs:         needs,
		classIDs:      classIDs,
		gradeOf:       gradeOf,
		lessonName:    lessonName,
		avail:         availCache,
		planner:       blockplan.Default(),
		periodsPerDay: periodsPerDay,
		registry:      registry,
		scorer:        sc,
		explainer:     explain.New(),
		config:        cfg,
		seed:          seed,
		numTeachers:   len(teacherIDs),
	}, nil
}

func (r *runContext) gradeOfFn(classID string) int { return r.gradeOf[classID] }

func (r *runContext) lessonNameFn(lessonID string) string { return r.lessonName[lessonID] }

// domainSize is the feasibility pre-check's necessary condition: how many
// (day, period) slots the Need's teacher is free for, regardless of
// conflicts with other placements.
func (r *runContext) domainSize(n sched.Need) int {
	count := 0
	for d := 0; d < sched.DaysPerWeek; d++ {
		for p := 0; p < r.periodsPerDay; p++ {
			if r.avail.IsAvailable(n.TeacherID, d, p) {
				count++
			}
		}
	}
	return count
}

func (r *runContext) expectedHours() int {
	total := 0
	for _, n := range r.needs {
		total += n.RequiredHours
	}
	return total
}

// prefetchedAvailability adapts a store.EntityStore's per-teacher
// Availability(ctx, id) reads (done once, eagerly) to availability.Source's
// synchronous single-arg signature.
type prefetchedAvailability struct {
	records map[string][]sched.AvailabilitySlot
}

func (p *prefetchedAvailability) Availability(teacherID string) []sched.AvailabilitySlot {
	return p.records[teacherID]
}

// --- strategy execution ---

func (svc *RunService) execute(run *runContext, enforceRoom bool) orchestrator.StrategyOutcome {
	maxWall := time.Duration(run.config.MaxWallTimeSecs) * time.Second
	if maxWall <= 0 {
		maxWall = svc.defaultMaxWall
	}

	strategy := orchestrator.Strategy(run.config.Strategy)
	if strategy == "" {
		strategy = orchestrator.Auto
	}
	if strategy == orchestrator.Auto {
		strategy = orchestrator.SelectDefault(len(run.classIDs), svc.pool != nil)
	}

	if strategy == orchestrator.Parallel {
		strategies := map[orchestrator.Strategy]orchestrator.StrategyFunc{
			orchestrator.Hybrid:   func() orchestrator.StrategyOutcome { return svc.runStrategy(run, orchestrator.Hybrid, enforceRoom, maxWall) },
			orchestrator.CSPFull:  func() orchestrator.StrategyOutcome { return svc.runStrategy(run, orchestrator.CSPFull, enforceRoom, maxWall) },
			orchestrator.Annealed: func() orchestrator.StrategyOutcome { return svc.runStrategy(run, orchestrator.Annealed, enforceRoom, maxWall) },
		}
		return orchestrator.RunParallel(strategies, svc.pool, enforceRoom)
	}

	return orchestrator.RunSequential(strategy, func() orchestrator.StrategyOutcome {
		return svc.runStrategy(run, strategy, enforceRoom, maxWall)
	})
}

// runStrategy runs one strategy against its own isolated ConflictIndex
// (§5: the Orchestrator never shares state across strategies).
func (svc *RunService) runStrategy(run *runContext, strategy orchestrator.Strategy, enforceRoom bool, maxWall time.Duration) orchestrator.StrategyOutcome {
	started := time.Now()
	idx := conflict.New(enforceRoom)
	rng := rand.New(rand.NewSource(run.seed))
	deadline := func() bool { return time.Since(started) >= maxWall }

	var placements []sched.Placement
	var iterations int

	switch strategy {
	case orchestrator.Simple:
		placer := strict.New(run.avail, idx, run.planner, run.periodsPerDay)
		result := placer.Place(run.needs, run.gradeOfFn)
		placements = result.Placements
		svc.recordResidual(run, result.Residual)
	case orchestrator.CSPFull:
		engine := csp.New(run.avail, run.planner, run.periodsPerDay)
		budget := run.config.BacktrackBudget
		limit := csp.AdaptiveBacktrackLimit(len(run.classIDs), run.numTeachers, avgLessonsPerClass(run.needs, run.classIDs))
		if budget != nil {
			limit = *budget
		}
		result := engine.Solve(run.needs, limit)
		placements = result.Placements
		iterations = result.BacktrackUsed
		if svc.metrics != nil {
			svc.metrics.ObserveBacktracks(result.BacktrackUsed)
		}
		if result.BacktrackUsed >= limit && len(result.Unsolved) > 0 {
			svc.logger.Warn("csp backtrack budget exhausted",
				zap.Error(&errs.BudgetExhausted{Kind: "backtrack", Budget: limit, Spent: result.BacktrackUsed}),
				zap.Int("unsolved", len(result.Unsolved)),
			)
		}
		placements = svc.fillResidual(run, idx, placements, result.Unsolved, rng)
	case orchestrator.Annealed:
		placements = svc.runHybrid(run, idx, rng)
		annealer := anneal.New(
			func(ps []sched.Placement) float64 { return run.scorer.Score(ps, run.lessonNameFn).Total },
			func(ps []sched.Placement) bool { return conflict.ValidateHard(ps, enforceRoom, run.periodsPerDay) },
			rng,
			anneal.DefaultOptions(),
		)
		placements = annealer.Run(placements, deadline)
	case orchestrator.Hybrid:
		placements = svc.runHybrid(run, idx, rng)
	default:
		placements = svc.runHybrid(run, idx, rng)
	}

	outcome := orchestrator.StrategyOutcome{
		Strategy:   strategy,
		Placements: placements,
		Elapsed:    time.Since(started),
		Expected:   run.expectedHours(),
	}
	if svc.metrics != nil {
		svc.metrics.ObserveStrategyRun(string(strategy), outcome.Elapsed, iterations, coveragePct(outcome)/100)
	}
	return outcome
}

// runHybrid is the StrictPlacer followed by AggressiveFiller repair pass,
// the default strategy for small/medium class counts (§4.11).
func (svc *RunService) runHybrid(run *runContext, idx *conflict.Index, rng *rand.Rand) []sched.Placement {
	placer := strict.New(run.avail, idx, run.planner, run.periodsPerDay)
	result := placer.Place(run.needs, run.gradeOfFn)
	svc.recordResidual(run, result.Residual)
	return svc.fillResidual(run, idx, result.Placements, result.Residual, rng)
}

func (svc *RunService) fillResidual(run *runContext, idx *conflict.Index, placements []sched.Placement, unmet []sched.Need, rng *rand.Rand) []sched.Placement {
	if len(unmet) == 0 {
		return placements
	}
	analyzer := coverage.New(run.periodsPerDay)
	curricular := analyzer.Curricular(run.needs, placements)

	remaining := make(map[sched.NeedKey]int, len(unmet))
	residual := make(map[string][]aggressive.Candidate)
	for _, n := range unmet {
		key := n.Key()
		left := n.RequiredHours - curricular.PerNeed[key].Filled
		if left <= 0 {
			continue
		}
		remaining[key] = left
		residual[n.ClassID] = append(residual[n.ClassID], aggressive.Candidate{
			ClassID: n.ClassID, LessonID: n.LessonID, TeacherID: n.TeacherID,
		})
	}
	if len(remaining) == 0 {
		return placements
	}

	var counter aggressive.RelaxationCounter
	if svc.metrics != nil {
		counter = svc.metrics
	}
	opts := aggressive.DefaultOptions()
	switch run.config.RelaxationPolicy {
	case "STRICT":
		// A stall count above the iteration cap keeps the filler out of
		// its availability-relaxed mode for the whole run.
		opts.StallIterations = opts.MaxIterations + 1
	case "ALLOW_AFTER_ITERS":
		if run.config.RelaxAfterIters > 0 {
			opts.StallIterations = run.config.RelaxAfterIters
		}
	}
	filler := aggressive.New(run.avail, idx, analyzer, run.periodsPerDay, opts, rng, counter)
	result := filler.Fill(run.classIDs, residual, remaining, placements)
	return result.Placements
}

func (svc *RunService) recordResidual(run *runContext, residual []sched.Need) {
	for _, n := range residual {
		run.explainer.Record(explain.Failure{
			ClassID: n.ClassID, LessonID: n.LessonID, TeacherID: n.TeacherID,
			RequiredHours: n.RequiredHours, Reason: explain.TeacherUnavailable,
		})
	}
}

// snapshotHash identifies the entity snapshot an availability memoization
// entry was built from; a run against the same school/term reuses it.
func snapshotHash(schoolID, termID string) string {
	h := fnv.New64a()
	h.Write([]byte(schoolID))
	h.Write([]byte{'/'})
	h.Write([]byte(termID))
	return fmt.Sprintf("%x", h.Sum64())
}

func avgLessonsPerClass(needs []sched.Need, classIDs []string) float64 {
	if len(classIDs) == 0 {
		return 0
	}
	perClass := make(map[string]int, len(classIDs))
	for _, n := range needs {
		perClass[n.ClassID]++
	}
	total := 0
	for _, c := range perClass {
		total += c
	}
	return float64(total) / float64(len(classIDs))
}
