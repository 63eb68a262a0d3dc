package es

import (
	"fmt"

	"github.com/c-bata/goptuna/cmaes"
	"gonum.org/v1/gonum/floats"
)

// CMAESConfig configures the CMA-ES adapter. Start from
// DefaultCMAESConfig and override fields as needed.
type CMAESConfig struct {
	NumParams   int
	SigmaInit   float64
	PopSize     int
	WeightDecay float64
	Seed        int64
}

// DefaultCMAESConfig returns the standard hyperparameters for a
// problem of the given dimension.
func DefaultCMAESConfig(numParams int) CMAESConfig {
	return CMAESConfig{
		NumParams:   numParams,
		SigmaInit:   0.10,
		PopSize:     255,
		WeightDecay: 0.01,
		Seed:        42,
	}
}

// CMAES is a thin adapter over the goptuna CMA-ES implementation. The
// covariance adaptation itself is entirely the external library's; the
// only logic here is the maximizer-to-minimizer sign flip, the optional
// weight-decay addend, and best-solution bookkeeping.
type CMAES struct {
	cfg CMAESConfig
	opt *cmaes.Optimizer

	solutions [][]float64

	curBestParams []float64
	curBestReward float64
	bestParams    []float64
	bestReward    float64
	firstIter     bool
}

// NewCMAES builds the adapter around a fresh external optimizer
// centered at the origin.
func NewCMAES(cfg CMAESConfig) (*CMAES, error) {
	if cfg.NumParams <= 0 {
		return nil, fmt.Errorf("cmaes: num params must be positive, got %d", cfg.NumParams)
	}
	if cfg.PopSize < 2 {
		return nil, fmt.Errorf("cmaes: population size must be at least 2, got %d", cfg.PopSize)
	}

	opt, err := cmaes.NewOptimizer(
		make([]float64, cfg.NumParams),
		cfg.SigmaInit,
		cmaes.OptimizerOptionSeed(cfg.Seed),
		cmaes.OptimizerOptionPopulationSize(cfg.PopSize),
	)
	if err != nil {
		return nil, fmt.Errorf("cmaes: %w", err)
	}

	return &CMAES{
		cfg:        cfg,
		opt:        opt,
		bestParams: make([]float64, cfg.NumParams),
		firstIter:  true,
	}, nil
}

// Ask delegates sampling to the external optimizer.
func (c *CMAES) Ask() ([][]float64, error) {
	c.solutions = make([][]float64, c.cfg.PopSize)
	for i := range c.solutions {
		x, err := c.opt.Ask()
		if err != nil {
			return nil, fmt.Errorf("cmaes ask: %w", err)
		}
		c.solutions[i] = x
	}
	return c.solutions, nil
}

// Tell flips the sign of the (optionally weight-decayed) scores and
// hands them to the external minimizer.
func (c *CMAES) Tell(scores []float64) error {
	if len(scores) != c.cfg.PopSize {
		return &PopulationSizeError{Want: c.cfg.PopSize, Got: len(scores)}
	}

	reward := cloneVec(scores)
	if c.cfg.WeightDecay > 0 {
		floats.Add(reward, WeightDecay(c.cfg.WeightDecay, c.solutions))
	}

	told := make([]*cmaes.Solution, len(reward))
	genBest := 0
	for i, r := range reward {
		told[i] = &cmaes.Solution{
			Params: c.solutions[i],
			Value:  -r, // the external library minimizes
		}
		if r > reward[genBest] {
			genBest = i
		}
	}
	if err := c.opt.Tell(told); err != nil {
		return fmt.Errorf("cmaes tell: %w", err)
	}

	c.curBestReward = reward[genBest]
	c.curBestParams = cloneVec(c.solutions[genBest])
	if c.firstIter || c.curBestReward > c.bestReward {
		c.firstIter = false
		c.bestReward = c.curBestReward
		c.bestParams = cloneVec(c.curBestParams)
	}
	return nil
}

func (c *CMAES) CurrentParam() []float64 { return c.curBestParams }

func (c *CMAES) BestParam() []float64 { return c.bestParams }

// SetMean is a no-op: the external optimizer owns its own mean.
func (c *CMAES) SetMean([]float64) {}

func (c *CMAES) Result() Result {
	return Result{
		BestParams:     cloneVec(c.bestParams),
		BestReward:     c.bestReward,
		CurrBestReward: c.curBestReward,
		Sigma:          []float64{c.cfg.SigmaInit},
	}
}

// RMSStdev reports the configured initial sigma; the external library
// does not expose its adapted step-size.
func (c *CMAES) RMSStdev() float64 { return c.cfg.SigmaInit }

func (c *CMAES) Init(Evaluator) error { return nil }
