// Package orchestrator implements the Orchestrator component (§4.11):
// strategy selection, execution, and score-based arbitration among the
// other scheduler packages.
package orchestrator

import (
	"sync"
	"time"

	"github.com/dolphinlong/timetable-core/internal/scheduler/conflict"
	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// Strategy names, matching RunConfig.Strategy (§6.6).
type Strategy string

const (
	Simple   Strategy = "SIMPLE"
	Hybrid   Strategy = "HYBRID"
	CSPFull  Strategy = "CSP_FULL"
	Annealed Strategy = "ANNEALED"
	Parallel Strategy = "PARALLEL"
	Auto     Strategy = "AUTO"
)

// StrategyFunc runs one strategy to completion (or cancellation) and
// returns its placements plus expected hour count for scoring.
type StrategyFunc func() StrategyOutcome

// StrategyOutcome is one strategy's result, ready for arbitration.
type StrategyOutcome struct {
	Strategy   Strategy
	Placements []sched.Placement
	Elapsed    time.Duration
	Expected   int // total required hours across all Needs
}

// Pool bounds concurrent strategy execution (§4.11.1 expansion). The
// default pool runs every submitted function concurrently with no bound;
// cmd/schedulerd wires a bounded implementation.
type Pool interface {
	Go(fn func())
	Wait()
}

// unboundedPool is the zero-configuration Pool: every Go call spawns its
// own goroutine, Wait blocks until all have returned.
type unboundedPool struct {
	wg sync.WaitGroup
}

// NewUnboundedPool returns a Pool with no concurrency limit.
func NewUnboundedPool() Pool { return &unboundedPool{} }

func (p *unboundedPool) Go(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
}

func (p *unboundedPool) Wait() { p.wg.Wait() }

// Score implements §4.11's arbitration formula:
//
//	score = coverage_pct - 10*|conflicts| + time_bonus + entries_bonus
func Score(outcome StrategyOutcome, enforceRoom bool) float64 {
	conflicts := conflict.DetectAll(outcome.Placements, enforceRoom)
	coveragePct := 0.0
	if outcome.Expected > 0 {
		coveragePct = 100 * float64(len(outcome.Placements)) / float64(outcome.Expected)
	}
	return coveragePct - 10*float64(len(conflicts)) + timeBonus(outcome.Elapsed) + entriesBonus(outcome.Placements, outcome.Expected)
}

func timeBonus(elapsed time.Duration) float64 {
	switch {
	case elapsed < 10*time.Second:
		return 10
	case elapsed < 30*time.Second:
		return 5
	case elapsed < 60*time.Second:
		return 2
	default:
		return 0
	}
}

func entriesBonus(placements []sched.Placement, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	bonus := 10 * float64(len(placements)) / float64(expected)
	if bonus > 10 {
		return 10
	}
	return bonus
}

// SelectDefault implements the §4.11 scale-based selection heuristic.
func SelectDefault(numClasses int, poolAvailable bool) Strategy {
	switch {
	case numClasses <= 5:
		return Hybrid
	case numClasses <= 20:
		if poolAvailable {
			return Parallel
		}
		return Hybrid
	default:
		return Simple
	}
}

// RunSequential runs a single strategy and returns its outcome.
func RunSequential(strategy Strategy, fn StrategyFunc) StrategyOutcome {
	start := time.Now()
	outcome := fn()
	outcome.Strategy = strategy
	outcome.Elapsed = time.Since(start)
	return outcome
}

// RunParallel races the given strategies on pool and picks the winner by
// Score. Each strategy runs against its own isolated working state (the
// caller's StrategyFunc closures own that isolation — the Orchestrator
// never shares a ConflictIndex across strategies, per §5).
func RunParallel(strategies map[Strategy]StrategyFunc, pool Pool, enforceRoom bool) StrategyOutcome {
	if pool == nil {
		pool = NewUnboundedPool()
	}
	var mu sync.Mutex
	outcomes := make([]StrategyOutcome, 0, len(strategies))

	for strategy, fn := range strategies {
		strategy, fn := strategy, fn
		pool.Go(func() {
			outcome := RunSequential(strategy, fn)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		})
	}
	pool.Wait()

	var best StrategyOutcome
	bestScore := -1e18
	for _, o := range outcomes {
		s := Score(o, enforceRoom)
		if s > bestScore {
			best, bestScore = o, s
		}
	}
	return best
}

// Feasibility is the supplemented pre-check (SPEC_FULL.md, grounded on
// the original source's feasibility_analyzer.py): a cheap scan that
// flags Needs with zero domain before a strategy is even attempted.
type Feasibility struct {
	Feasible       bool
	ZeroDomainKeys []sched.NeedKey
}

// CheckFeasibility flags every Need for which domainSize reports zero
// candidate slots; what counts as a candidate slot is up to domainSize.
func CheckFeasibility(needs []sched.Need, domainSize func(need sched.Need) int) Feasibility {
	var zero []sched.NeedKey
	for _, n := range needs {
		if domainSize(n) == 0 {
			zero = append(zero, n.Key())
		}
	}
	return Feasibility{Feasible: len(zero) == 0, ZeroDomainKeys: zero}
}
