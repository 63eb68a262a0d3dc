// Package runner drives the ask/evaluate/tell loop around a strategy.
// It owns the caller-side concerns the core leaves out: parallel
// population evaluation, index alignment of scores, progress logging,
// and periodic checkpointing.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/cwbudde/evostrat/internal/es"
	"github.com/cwbudde/evostrat/internal/store"
)

// Options configures a Runner beyond its strategy and evaluator.
type Options struct {
	// Workers bounds the goroutines evaluating a population. Zero or
	// one means sequential evaluation.
	Workers int

	// Store receives periodic checkpoints when CheckpointInterval > 0.
	Store store.Store

	// Trace receives one entry per iteration when non-nil.
	Trace *store.TraceWriter

	// CheckpointInterval is the iteration cadence of checkpoints.
	CheckpointInterval int

	// LogInterval is the iteration cadence of progress logs (default 10).
	LogInterval int

	// RunConfig is embedded into checkpoints for resume validation.
	RunConfig store.RunConfig

	// TraceParams includes the best parameters in each trace entry.
	TraceParams bool
}

// Runner executes optimization runs. One Runner drives one strategy
// sequentially; the only concurrency is inside a single population
// evaluation.
type Runner struct {
	ID       string
	strategy es.Strategy
	eval     es.Evaluator
	opts     Options
}

// New creates a runner with a fresh run ID.
func New(strategy es.Strategy, eval es.Evaluator, opts Options) *Runner {
	if opts.LogInterval <= 0 {
		opts.LogInterval = 10
	}
	return &Runner{
		ID:       uuid.New().String(),
		strategy: strategy,
		eval:     eval,
		opts:     opts,
	}
}

// AttachTrace sets the trace writer after construction, once the run
// ID is known to the caller creating the trace file.
func (r *Runner) AttachTrace(tw *store.TraceWriter) {
	r.opts.Trace = tw
}

// Run executes the loop for the given number of iterations and returns
// the final strategy snapshot. The context cancels between iterations;
// a running evaluation always completes so strategy state stays
// consistent.
func (r *Runner) Run(ctx context.Context, iterations int) (es.Result, error) {
	if err := r.strategy.Init(r.eval); err != nil {
		return es.Result{}, fmt.Errorf("init strategy: %w", err)
	}

	start := time.Now()
	for iter := 1; iter <= iterations; iter++ {
		if err := ctx.Err(); err != nil {
			slog.Info("Run cancelled", "run_id", r.ID, "iteration", iter)
			return r.strategy.Result(), err
		}

		population, err := r.strategy.Ask()
		if err != nil {
			return es.Result{}, fmt.Errorf("ask at iteration %d: %w", iter, err)
		}

		scores, characteristics := r.evaluate(population)

		if ns, ok := r.strategy.(es.NoveltyStrategy); ok {
			err = ns.TellNovelty(scores, characteristics, r.eval)
		} else {
			err = r.strategy.Tell(scores)
		}
		if err != nil {
			return es.Result{}, fmt.Errorf("tell at iteration %d: %w", iter, err)
		}

		result := r.strategy.Result()

		if r.opts.Trace != nil {
			entry := store.TraceEntry{
				Iteration:      iter,
				BestReward:     result.BestReward,
				CurrBestReward: result.CurrBestReward,
				RMSStdev:       r.strategy.RMSStdev(),
				Timestamp:      time.Now(),
			}
			if r.opts.TraceParams {
				entry.Params = result.BestParams
			}
			if err := r.opts.Trace.Write(entry); err != nil {
				slog.Warn("Failed to write trace entry", "run_id", r.ID, "error", err)
			}
		}

		if iter%r.opts.LogInterval == 0 || iter == iterations {
			slog.Info("Iteration complete",
				"run_id", r.ID,
				"iteration", iter,
				"best_reward", result.BestReward,
				"curr_best_reward", result.CurrBestReward,
				"rms_stdev", r.strategy.RMSStdev(),
				"elapsed", time.Since(start),
			)
		}

		if r.opts.Store != nil && r.opts.CheckpointInterval > 0 && iter%r.opts.CheckpointInterval == 0 {
			r.checkpoint(iter, result)
		}
	}

	final := r.strategy.Result()
	if r.opts.Store != nil && r.opts.CheckpointInterval > 0 {
		r.checkpoint(iterations, final)
	}
	if r.opts.Trace != nil {
		if err := r.opts.Trace.Flush(); err != nil {
			slog.Warn("Failed to flush trace", "run_id", r.ID, "error", err)
		}
	}
	return final, nil
}

// evaluate scores a population, in parallel when Workers > 1. Results
// are written by index, so the score order always matches the
// population order regardless of completion order.
func (r *Runner) evaluate(population [][]float64) ([]float64, [][]float64) {
	scores := make([]float64, len(population))
	characteristics := make([][]float64, len(population))

	if r.opts.Workers <= 1 {
		for i, params := range population {
			scores[i], characteristics[i] = r.eval.Evaluate(params)
		}
		return scores, characteristics
	}

	p := pool.New().WithMaxGoroutines(r.opts.Workers)
	for i := range population {
		i := i
		p.Go(func() {
			scores[i], characteristics[i] = r.eval.Evaluate(population[i])
		})
	}
	p.Wait()
	return scores, characteristics
}

func (r *Runner) checkpoint(iteration int, result es.Result) {
	cp := &store.Checkpoint{
		RunID:          r.ID,
		BestParams:     result.BestParams,
		BestReward:     result.BestReward,
		CurrBestReward: result.CurrBestReward,
		Sigma:          result.Sigma,
		Iteration:      iteration,
		Timestamp:      time.Now(),
		Config:         r.opts.RunConfig,
	}
	if err := r.opts.Store.SaveCheckpoint(r.ID, cp); err != nil {
		slog.Warn("Failed to save checkpoint", "run_id", r.ID, "iteration", iteration, "error", err)
		return
	}
	slog.Debug("Checkpoint saved", "run_id", r.ID, "iteration", iteration)
}

// Resume seeds the strategy mean from a stored checkpoint after
// validating compatibility. Strategies without an explicit mean
// (CMA-ES, the GA, novelty search) are left untouched.
func (r *Runner) Resume(cp *store.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}
	if err := cp.IsCompatible(r.opts.RunConfig); err != nil {
		return fmt.Errorf("checkpoint incompatible with run config: %w", err)
	}
	r.strategy.SetMean(cp.BestParams)
	slog.Info("Resumed from checkpoint",
		"run_id", r.ID,
		"source_run", cp.RunID,
		"iteration", cp.Iteration,
		"best_reward", cp.BestReward,
	)
	return nil
}
