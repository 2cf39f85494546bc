package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ppiankov/forensia/internal/telemetry"
)

var (
	// ErrUnknownPass is returned for a pass name nothing is registered under
	ErrUnknownPass = errors.New("unknown analyzer pass")
)

// Pass names one analyzer pass
type Pass string

const (
	PassReputation   Pass = "reputation"
	PassInfluence    Pass = "influence"
	PassCoordination Pass = "coordination"
	PassProvenance   Pass = "provenance"
)

// AllPasses lists every analyzer pass in run order
var AllPasses = []Pass{PassReputation, PassInfluence, PassCoordination, PassProvenance}

// PassFunc runs one pass and reports how many analytic records it wrote
type PassFunc func(ctx context.Context) (int, error)

// PassJob executes a registered pass, waiting on the limiter first
type PassJob struct {
	Name    Pass
	Run     PassFunc
	Limiter *Limiter
}

// Execute runs the pass and records its metrics
func (j *PassJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Name); err != nil {
			return &PassResult{Pass: j.Name, Error: fmt.Errorf("wait for %s limiter: %w", j.Name, err)}
		}
	}

	start := time.Now()
	records, err := j.Run(ctx)
	elapsed := time.Since(start)
	telemetry.ObservePass(string(j.Name), elapsed, records, err)

	if err != nil {
		return &PassResult{Pass: j.Name, Elapsed: elapsed, Error: fmt.Errorf("%s pass: %w", j.Name, err)}
	}
	return &PassResult{Pass: j.Name, Records: records, Elapsed: elapsed}
}

// PassResult is the outcome of one pass
type PassResult struct {
	Pass    Pass
	Records int
	Elapsed time.Duration
	Error   error
}

// GetError returns the pass error
func (r *PassResult) GetError() error {
	return r.Error
}

// Runner executes registered passes concurrently on a worker pool
type Runner struct {
	passes  map[Pass]PassFunc
	workers int
	limiter *Limiter
	logger  *slog.Logger
}

// NewRunner creates a runner; a nil limiter runs passes unthrottled
func NewRunner(workers int, limiter *Limiter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		passes:  make(map[Pass]PassFunc),
		workers: workers,
		limiter: limiter,
		logger:  logger,
	}
}

// Register binds a pass name to its function
func (r *Runner) Register(name Pass, fn PassFunc) {
	r.passes[name] = fn
}

// Has reports whether a pass is registered
func (r *Runner) Has(name Pass) bool {
	_, ok := r.passes[name]
	return ok
}

// Registered returns the registered pass names: known passes in AllPasses
// order, then any others sorted by name
func (r *Runner) Registered() []Pass {
	names := make([]Pass, 0, len(r.passes))
	known := make(map[Pass]bool, len(AllPasses))
	for _, name := range AllPasses {
		known[name] = true
		if r.Has(name) {
			names = append(names, name)
		}
	}
	var extra []Pass
	for name := range r.passes {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(names, extra...)
}

// Run executes the named passes, or every registered pass when none are
// named. Results come back in the order the passes were named; a failing
// pass does not stop the others.
func (r *Runner) Run(ctx context.Context, names ...Pass) ([]*PassResult, error) {
	if len(names) == 0 {
		names = r.Registered()
	}
	for _, name := range names {
		if !r.Has(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPass, name)
		}
	}

	pool := NewPool(ctx, r.workers)
	pool.Start()
	for _, name := range names {
		if !pool.Submit(&PassJob{Name: name, Run: r.passes[name], Limiter: r.limiter}) {
			break
		}
	}

	results := pool.Wait()
	out := make([]*PassResult, 0, len(results))
	for _, res := range results {
		pr := res.(*PassResult)
		if pr.Error != nil {
			r.logger.Warn("analyzer pass failed", slog.String("pass", string(pr.Pass)), slog.Any("error", pr.Error))
		} else {
			r.logger.Info("analyzer pass complete",
				slog.String("pass", string(pr.Pass)),
				slog.Int("records", pr.Records),
				slog.Duration("elapsed", pr.Elapsed))
		}
		out = append(out, pr)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// FirstError returns the first failed pass's error, if any
func FirstError(results []*PassResult) error {
	for _, r := range results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}
