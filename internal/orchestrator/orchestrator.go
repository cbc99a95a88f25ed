// Package orchestrator drives an analysis run end to end: discovery,
// fingerprinting, cache consultation, parallel analyzer execution, and
// aggregation into a single result.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/augurhq/augur/internal/aggregator"
	"github.com/augurhq/augur/internal/analyzer"
	"github.com/augurhq/augur/internal/cache"
	"github.com/augurhq/augur/internal/scanner"
	"github.com/augurhq/augur/pkg/config"
	"github.com/augurhq/augur/pkg/models"
)

// Orchestrator coordinates one analysis pipeline.
type Orchestrator struct {
	cfg      *config.Config
	registry *analyzer.Registry
	store    *cache.Store
	progress func(done, total int)
}

// Option customizes an orchestrator.
type Option func(*Orchestrator)

// WithRegistry substitutes the analyzer registry.
func WithRegistry(r *analyzer.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithCacheStore substitutes the result cache.
func WithCacheStore(s *cache.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithCacheBypass forces fresh analysis; results are still written back.
func WithCacheBypass() Option {
	return func(o *Orchestrator) {
		o.store = cache.New(o.cfg.Cache.Dir, o.cfg.Cache.Enabled,
			cache.WithTTL(time.Duration(o.cfg.Cache.TTL)*time.Hour),
			cache.WithBypass())
	}
}

// WithProgress registers a callback invoked after each work unit finishes.
func WithProgress(fn func(done, total int)) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// New creates an orchestrator from config.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		registry: analyzer.Default(cfg),
		store: cache.New(cfg.Cache.Dir, cfg.Cache.Enabled,
			cache.WithTTL(time.Duration(cfg.Cache.TTL)*time.Hour)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// unit is one schedulable piece of work. Per-file units carry a single
// input; batch units carry every input their analyzer applies to.
type unit struct {
	analyzer    analyzer.Analyzer
	file        string // empty for batch units
	fingerprint string
	configHash  string
	inputs      []*analyzer.Input
	slot        int
}

// slotResult holds the outcome of one slot in deterministic queue order.
type slotResult struct {
	issues  []models.Issue
	outcome models.AnalyzerOutcome
	filled  bool
}

// Run executes the full pipeline against root. Only discovery failures
// return an error; analyzer failures, timeouts, and cancellation are
// recorded in the result instead.
func (o *Orchestrator) Run(ctx context.Context, root string) (*models.AnalysisResult, error) {
	started := time.Now()

	files, skipped, err := scanner.New(o.cfg).Scan(root)
	if err != nil {
		return nil, err
	}

	res := &models.AnalysisResult{
		RootPath:  root,
		Skipped:   skipped,
		StartedAt: started,
	}
	if o.store.Degraded() {
		res.Warnings = append(res.Warnings, "cache directory unavailable, running without cache")
	}

	inputs, files := o.loadInputs(ctx, root, files, res)
	res.Files = files

	units, slots := o.buildQueue(files, inputs, res)
	o.execute(ctx, units, slots)

	var all []models.Issue
	for _, s := range slots {
		if !s.filled {
			continue
		}
		all = append(all, s.issues...)
		res.Outcomes = append(res.Outcomes, s.outcome)
	}

	agg := aggregator.New(o.cfg).Aggregate(all, files)
	res.Issues = agg.Issues
	res.Summary = agg.Summary
	res.Warnings = append(res.Warnings, agg.Warnings...)
	if n := o.store.CorruptCount(); n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("discarded %d corrupt cache entries", n))
	}

	if ctx.Err() != nil {
		res.Incomplete = true
	}
	res.CompletedAt = time.Now()
	return res, nil
}

// loadInputs reads and fingerprints every discovered file in parallel.
// Files that disappear or become unreadable between discovery and here
// are demoted to skips.
func (o *Orchestrator) loadInputs(ctx context.Context, root string, files []models.SourceFile, res *models.AnalysisResult) (map[string]*analyzer.Input, []models.SourceFile) {
	rootIsFile := false
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		rootIsFile = true
	}

	var mu sync.Mutex
	byPath := make(map[string]*analyzer.Input, len(files))
	unreadable := make(map[string]bool)

	p := pool.New().WithMaxGoroutines(o.workers())
	for i := range files {
		i := i
		p.Go(func() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			path := filepath.Join(root, files[i].Path)
			if rootIsFile {
				path = root
			}
			content, err := os.ReadFile(path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				unreadable[files[i].Path] = true
				return
			}
			files[i].Fingerprint = cache.HashBytes(content)
			byPath[files[i].Path] = analyzer.NewInput(files[i], content)
		})
	}
	p.Wait()

	kept := files[:0]
	for _, f := range files {
		if unreadable[f.Path] {
			res.Skipped = append(res.Skipped, models.SkippedFile{Path: f.Path, Reason: models.SkipUnreadable})
			continue
		}
		if ctx.Err() != nil && f.Fingerprint == "" {
			continue
		}
		kept = append(kept, f)
	}
	return byPath, kept
}

// buildQueue produces the work units still needing execution, plus one
// result slot per unit of work. Cache hits fill their slot immediately.
// Queue order is analyzer registration order, then sorted file order,
// which keeps aggregation input deterministic regardless of worker count.
func (o *Orchestrator) buildQueue(files []models.SourceFile, inputs map[string]*analyzer.Input, res *models.AnalysisResult) ([]*unit, []*slotResult) {
	var units []*unit
	var slots []*slotResult

	for _, a := range o.registry.All() {
		cfgHash := o.cfg.AnalyzerHash(a.Name())

		if batch, ok := a.(analyzer.BatchAnalyzer); ok {
			var batchInputs []*analyzer.Input
			for _, f := range files {
				if in, ok := inputs[f.Path]; ok && analyzer.Supports(a, f.Language) {
					batchInputs = append(batchInputs, in)
				}
			}
			slot := &slotResult{}
			slots = append(slots, slot)
			units = append(units, &unit{
				analyzer: batch,
				inputs:   batchInputs,
				slot:     len(slots) - 1,
			})
			continue
		}

		for _, f := range files {
			in, ok := inputs[f.Path]
			if !ok || !analyzer.Supports(a, f.Language) {
				continue
			}
			slot := &slotResult{}
			slots = append(slots, slot)

			if issues, hit := o.store.Get(f.Fingerprint, a.Name(), cfgHash); hit {
				res.CacheHits++
				slot.issues = issues
				slot.outcome = models.AnalyzerOutcome{
					Analyzer:   a.Name(),
					Category:   a.Category(),
					File:       f.Path,
					Status:     models.StatusSuccess,
					IssueCount: len(issues),
					Cached:     true,
				}
				slot.filled = true
				continue
			}
			if o.store.Enabled() {
				res.CacheMisses++
			}

			units = append(units, &unit{
				analyzer:    a,
				file:        f.Path,
				fingerprint: f.Fingerprint,
				configHash:  cfgHash,
				inputs:      []*analyzer.Input{in},
				slot:        len(slots) - 1,
			})
		}
	}
	return units, slots
}

// execute runs the queued units on a bounded worker pool. Results land in
// slot order, so execution order never affects the final report.
func (o *Orchestrator) execute(ctx context.Context, units []*unit, slots []*slotResult) {
	total := len(units)
	var done int
	var mu sync.Mutex

	tick := func() {
		if o.progress == nil {
			return
		}
		mu.Lock()
		done++
		d := done
		mu.Unlock()
		o.progress(d, total)
	}

	p := pool.New().WithMaxGoroutines(o.workers())
	for _, u := range units {
		u := u
		p.Go(func() {
			slot := slots[u.slot]
			if ctx.Err() != nil {
				slot.outcome = o.outcome(u, models.StatusSkipped, 0, "run cancelled")
				slot.filled = true
				tick()
				return
			}
			issues, status, errMsg, elapsed := o.runUnit(ctx, u)

			slot.issues = issues
			slot.outcome = o.outcome(u, status, len(issues), errMsg)
			slot.outcome.Elapsed = elapsed
			slot.filled = true

			// Cache write failures cost reuse, never correctness.
			if status == models.StatusSuccess && u.file != "" {
				_ = o.store.Put(u.fingerprint, u.analyzer.Name(), u.configHash, issues)
			}
			tick()
		})
	}
	p.Wait()
}

// runUnit executes one unit with panic recovery and a per-unit timeout.
// A unit that outlives its deadline is abandoned; whatever it produces
// afterwards is discarded.
func (o *Orchestrator) runUnit(ctx context.Context, u *unit) (issues []models.Issue, status models.OutcomeStatus, errMsg string, elapsed time.Duration) {
	start := time.Now()

	unitCtx := ctx
	var cancel context.CancelFunc
	if o.cfg.Analysis.TimeoutSeconds > 0 {
		unitCtx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.Analysis.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	type outcome struct {
		issues []models.Issue
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("analyzer panicked: %v", r)}
			}
		}()
		var out outcome
		if batch, ok := u.analyzer.(analyzer.BatchAnalyzer); ok && u.file == "" {
			out.issues, out.err = batch.AnalyzeBatch(unitCtx, u.inputs)
		} else {
			out.issues, out.err = u.analyzer.Analyze(unitCtx, u.inputs[0])
		}
		ch <- out
	}()

	select {
	case out := <-ch:
		elapsed = time.Since(start)
		if out.err != nil {
			return nil, models.StatusFailed, out.err.Error(), elapsed
		}
		return out.issues, models.StatusSuccess, "", elapsed
	case <-unitCtx.Done():
		elapsed = time.Since(start)
		if ctx.Err() != nil {
			return nil, models.StatusSkipped, "run cancelled", elapsed
		}
		return nil, models.StatusTimeout, fmt.Sprintf("exceeded %ds deadline", o.cfg.Analysis.TimeoutSeconds), elapsed
	}
}

func (o *Orchestrator) outcome(u *unit, status models.OutcomeStatus, count int, errMsg string) models.AnalyzerOutcome {
	return models.AnalyzerOutcome{
		Analyzer:   u.analyzer.Name(),
		Category:   u.analyzer.Category(),
		File:       u.file,
		Status:     status,
		IssueCount: count,
		Error:      errMsg,
	}
}

func (o *Orchestrator) workers() int {
	if n := o.cfg.Analysis.MaxWorkers; n > 0 {
		return n
	}
	return runtime.NumCPU()
}
