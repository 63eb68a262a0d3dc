package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/evostrat/internal/bench"
	"github.com/cwbudde/evostrat/internal/config"
	"github.com/cwbudde/evostrat/internal/runner"
	"github.com/cwbudde/evostrat/internal/store"
)

var (
	configPath string
	strategy   string
	objective  string
	numParams  int
	popSize    int
	iters      int
	seed       int64
	workers    int
	dataDir    string
	ckptEvery  int
	resumeFrom string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an optimization experiment",
	Long: `Runs the configured strategy against a benchmark objective and writes
a reward trace plus periodic checkpoints under the data directory.`,
	RunE: runExperiment,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Experiment YAML (flags override its values)")
	runCmd.Flags().StringVar(&strategy, "strategy", "", "Strategy: openes, pepg, ga, cmaes, nses, nsres, nsraes")
	runCmd.Flags().StringVar(&objective, "objective", "", "Objective: sphere, rastrigin, rosenbrock")
	runCmd.Flags().IntVar(&numParams, "params", 0, "Parameter dimension")
	runCmd.Flags().IntVar(&popSize, "pop", 0, "Population size")
	runCmd.Flags().IntVar(&iters, "iters", 0, "Iterations")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Parallel evaluation workers")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "", "Base directory for checkpoints and traces")
	runCmd.Flags().IntVar(&ckptEvery, "checkpoint-interval", 0, "Checkpoint every N iterations (0 = disabled)")
	runCmd.Flags().StringVar(&resumeFrom, "resume", "", "Run ID of a checkpoint to seed the mean from")

	rootCmd.AddCommand(runCmd)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flags override file values.
	if strategy != "" {
		cfg.Strategy = strategy
	}
	if objective != "" {
		cfg.Objective = objective
	}
	if numParams > 0 {
		cfg.NumParams = numParams
	}
	if popSize > 0 {
		cfg.PopSize = popSize
	}
	if iters > 0 {
		cfg.Iterations = iters
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if workers > 0 {
		cfg.Run.Workers = workers
	}
	if dataDir != "" {
		cfg.Run.DataDir = dataDir
	}
	if ckptEvery > 0 {
		cfg.Run.CheckpointInterval = ckptEvery
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("Starting optimization",
		"strategy", cfg.Strategy,
		"objective", cfg.Objective,
		"params", cfg.NumParams,
		"popsize", cfg.PopSize,
		"iters", cfg.Iterations,
	)

	eval, err := bench.ByName(cfg.Objective)
	if err != nil {
		return err
	}

	strat, err := cfg.NewStrategy()
	if err != nil {
		return fmt.Errorf("failed to build strategy: %w", err)
	}

	checkpointStore, err := store.NewFSStore(cfg.Run.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	runConfig := store.RunConfig{
		Strategy:           cfg.Strategy,
		Objective:          cfg.Objective,
		NumParams:          cfg.NumParams,
		PopSize:            cfg.PopSize,
		Iterations:         cfg.Iterations,
		Seed:               cfg.Seed,
		CheckpointInterval: cfg.Run.CheckpointInterval,
	}

	r := runner.New(strat, eval, runner.Options{
		Workers:            cfg.Run.Workers,
		Store:              checkpointStore,
		CheckpointInterval: cfg.Run.CheckpointInterval,
		RunConfig:          runConfig,
		TraceParams:        cfg.Run.TraceParams,
	})

	trace, err := store.NewTraceWriter(cfg.Run.DataDir, r.ID, false)
	if err != nil {
		return fmt.Errorf("failed to create trace writer: %w", err)
	}
	defer trace.Close()
	r.AttachTrace(trace)

	if resumeFrom != "" {
		cp, err := checkpointStore.LoadCheckpoint(resumeFrom)
		if err != nil {
			return fmt.Errorf("failed to load checkpoint %s: %w", resumeFrom, err)
		}
		if err := r.Resume(cp); err != nil {
			return err
		}
	}

	start := time.Now()
	result, err := r.Run(cmd.Context(), cfg.Iterations)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	slog.Info("Optimization complete",
		"run_id", r.ID,
		"elapsed", elapsed,
		"best_reward", result.BestReward,
		"curr_best_reward", result.CurrBestReward,
	)

	fmt.Printf("Run %s finished: best reward %.6f after %d iterations (%s)\n",
		r.ID, result.BestReward, cfg.Iterations, elapsed.Round(time.Millisecond))

	return nil
}
