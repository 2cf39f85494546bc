package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/forensia/internal/cache"
	"github.com/ppiankov/forensia/internal/coordination"
	"github.com/ppiankov/forensia/internal/influence"
	"github.com/ppiankov/forensia/internal/llm"
	"github.com/ppiankov/forensia/internal/model"
	"github.com/ppiankov/forensia/internal/provenance"
	"github.com/ppiankov/forensia/internal/report"
	"github.com/ppiankov/forensia/internal/reputation"
	"github.com/ppiankov/forensia/internal/store/sqlite"
	"github.com/ppiankov/forensia/internal/worker"
)

// app holds the store and the analyzers built from configuration
type app struct {
	cfg    model.Config
	store  *sqlite.Repository
	logger *slog.Logger

	reputation   *reputation.Engine
	influence    *influence.Engine
	coordination *coordination.Engine
	provenance   *provenance.Engine
}

// openApp loads configuration and opens the graph store
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.New(cfg.Store.Path, sqlite.Options{
		BusyTimeout:  cfg.Store.BusyTimeout,
		MaxOpenConns: cfg.Store.MaxOpenConn,
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}

	logger := slog.Default()
	return &app{
		cfg:    cfg,
		store:  repo,
		logger: logger,
		reputation: reputation.NewEngine(repo,
			reputation.WithAlpha(cfg.Analysis.EMAAlpha),
			reputation.WithLogger(logger)),
		influence: influence.NewEngine(repo,
			influence.WithPageRankIterations(cfg.Analysis.PageRankIter),
			influence.WithLogger(logger)),
		coordination: coordination.NewEngine(repo,
			coordination.WithWindow(cfg.Analysis.WindowHours),
			coordination.WithLogger(logger)),
		provenance: provenance.NewEngine(repo,
			provenance.WithDecay(cfg.Analysis.DecayFactor),
			provenance.WithMaxDepth(cfg.Analysis.MaxDepth),
			provenance.WithLogger(logger)),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", slog.Any("error", err))
	}
}

// reporter builds the reporter; useCache and withLLM follow the report flags
func (a *app) reporter(useCache, withLLM bool) (*report.Reporter, error) {
	opts := []report.Option{
		report.WithLogger(a.logger),
		report.WithConcurrency(a.cfg.Concurrency.ReportSections),
	}
	if useCache {
		if c := cache.FromConfig(a.cfg.Cache); c != nil {
			opts = append(opts, report.WithCache(c, storeScope(a.cfg.Store.Path), a.cfg.Cache.MemoryTTL))
		}
	}
	if withLLM {
		llmCfg := llm.ConfigFromModel(a.cfg.LLM)
		if llmCfg.Provider == "" {
			llmCfg.Provider = "openai"
		}
		summarizer, err := llm.NewSummarizer(llmCfg, a.store)
		if err != nil {
			return nil, fmt.Errorf("configure LLM: %w", err)
		}
		opts = append(opts, report.WithSummarizer(summarizer))
	}
	return report.NewReporter(a.store, a.reputation, a.influence, a.coordination, a.provenance, opts...), nil
}

// storeScope names the store for cache keys. In-memory stores get no scope,
// so their reports are never shared.
func storeScope(path string) string {
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// runner registers every analyzer pass; a nil limiter runs them unthrottled
func (a *app) runner(limiter *worker.Limiter) *worker.Runner {
	r := worker.NewRunner(a.cfg.Concurrency.Workers, limiter, a.logger)
	r.Register(worker.PassReputation, func(ctx context.Context) (int, error) {
		snaps, err := a.reputation.SnapshotAll(ctx)
		return len(snaps), err
	})
	r.Register(worker.PassInfluence, func(ctx context.Context) (int, error) {
		edges, err := a.influence.BuildEdges(ctx)
		return len(edges), err
	})
	r.Register(worker.PassCoordination, func(ctx context.Context) (int, error) {
		events, err := a.coordination.Scan(ctx, a.cfg.Analysis.WindowHours)
		return len(events), err
	})
	r.Register(worker.PassProvenance, func(ctx context.Context) (int, error) {
		traces, err := a.provenance.TraceAll(ctx)
		return len(traces), err
	})
	return r
}

// printJSON writes v to stdout as indented JSON
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// banner prints a titled separator block to stderr
func banner(title string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
}

// parseID parses a positive node id argument
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}
