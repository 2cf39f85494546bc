// Package scheduler triggers analyzer passes from cron specs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/telemetry"
	"github.com/ppiankov/forensia/internal/worker"
)

var (
	// ErrThrottled is returned when the pass limiter denies a trigger
	ErrThrottled = errors.New("pass throttled")
)

// Service runs registered analyzer passes on cron schedules
type Service struct {
	runner  *worker.Runner
	limiter *worker.Limiter
	cron    *cron.Cron
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[worker.Pass]cron.EntryID
	ctx     context.Context
}

// NewService creates a scheduler; a nil limiter never throttles
func NewService(runner *worker.Runner, limiter *worker.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner:  runner,
		limiter: limiter,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		entries: make(map[worker.Pass]cron.EntryID),
		ctx:     context.Background(),
	}
}

// Schedule registers pass under a standard five-field cron spec. An empty
// spec removes any existing schedule for the pass.
func (s *Service) Schedule(pass worker.Pass, spec string) error {
	if !s.runner.Has(pass) {
		return fmt.Errorf("schedule %s: %w", pass, worker.ErrUnknownPass)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[pass]; ok {
		s.cron.Remove(id)
		delete(s.entries, pass)
	}
	if spec == "" {
		return nil
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid cron expression for %s: %w", pass, err)
	}

	s.entries[pass] = s.cron.Schedule(schedule, cron.FuncJob(func() {
		if _, err := s.Trigger(s.runContext(), pass); err != nil && !errors.Is(err, ErrThrottled) {
			s.logger.Warn("scheduled pass failed", slog.String("pass", string(pass)), slog.Any("error", err))
		}
	}))
	s.logger.Info("pass scheduled", slog.String("pass", string(pass)), slog.String("spec", spec))
	return nil
}

// ScheduleConfig registers every pass with a non-empty spec in cfg
func (s *Service) ScheduleConfig(cfg model.ScheduleConfig) error {
	specs := map[worker.Pass]string{
		worker.PassReputation:   cfg.Reputation,
		worker.PassInfluence:    cfg.Influence,
		worker.PassCoordination: cfg.Coordination,
		worker.PassProvenance:   cfg.Provenance,
	}
	for _, pass := range worker.AllPasses {
		if err := s.Schedule(pass, specs[pass]); err != nil {
			return err
		}
	}
	return nil
}

// Trigger runs one pass now unless the limiter denies it
func (s *Service) Trigger(ctx context.Context, pass worker.Pass) (*worker.PassResult, error) {
	if s.limiter != nil && !s.limiter.Allow(pass) {
		telemetry.ObserveThrottled(string(pass))
		s.logger.Info("pass throttled", slog.String("pass", string(pass)))
		return nil, fmt.Errorf("%s: %w", pass, ErrThrottled)
	}

	results, err := s.runner.Run(ctx, pass)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%s: no result", pass)
	}
	return results[0], results[0].Error
}

// Next returns the next activation time of a scheduled pass
func (s *Service) Next(pass worker.Pass) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[pass]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	if entry.Next.IsZero() && entry.Schedule != nil {
		// not started yet
		return entry.Schedule.Next(time.Now()), true
	}
	return entry.Next, true
}

// Start begins firing schedules; passes run under ctx
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("passes", len(s.entries)))
}

// Stop halts the schedules and waits for running passes
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Service) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
