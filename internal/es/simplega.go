package es

import (
	"fmt"
	"math"
	"math/rand"
)

// SimpleGAConfig configures SimpleGA. Start from DefaultSimpleGAConfig
// and override fields as needed.
type SimpleGAConfig struct {
	NumParams   int
	SigmaInit   float64
	SigmaDecay  float64
	SigmaLimit  float64
	PopSize     int
	EliteRatio  float64
	ForgetBest  bool // drop the previous elites instead of pooling them with the new population
	WeightDecay float64
	Seed        int64
}

// DefaultSimpleGAConfig returns the standard hyperparameters for a
// problem of the given dimension.
func DefaultSimpleGAConfig(numParams int) SimpleGAConfig {
	return SimpleGAConfig{
		NumParams:   numParams,
		SigmaInit:   0.1,
		SigmaDecay:  0.999,
		SigmaLimit:  0.01,
		PopSize:     256,
		EliteRatio:  0.1,
		WeightDecay: 0.01,
		Seed:        42,
	}
}

// SimpleGA is an elitist genetic algorithm: children are uniform
// per-gene crossovers of two random elites plus isotropic Gaussian
// mutation, and the elite pool is reselected from population plus
// previous elites each generation.
type SimpleGA struct {
	cfg SimpleGAConfig
	rng *rand.Rand

	sigma        float64
	elitePop     int
	eliteParams  [][]float64
	eliteRewards []float64
	solutions    [][]float64

	bestParams    []float64
	bestReward    float64
	curBestReward float64
	firstIter     bool
}

// NewSimpleGA validates cfg and builds the strategy.
func NewSimpleGA(cfg SimpleGAConfig) (*SimpleGA, error) {
	if cfg.NumParams <= 0 {
		return nil, fmt.Errorf("simplega: num params must be positive, got %d", cfg.NumParams)
	}
	if cfg.PopSize < 2 {
		return nil, fmt.Errorf("simplega: population size must be at least 2, got %d", cfg.PopSize)
	}
	elitePop := int(float64(cfg.PopSize) * cfg.EliteRatio)
	if elitePop < 1 {
		return nil, fmt.Errorf("simplega: elite ratio %g leaves no elites for population size %d", cfg.EliteRatio, cfg.PopSize)
	}

	elites := make([][]float64, elitePop)
	for i := range elites {
		elites[i] = make([]float64, cfg.NumParams)
	}

	return &SimpleGA{
		cfg:          cfg,
		rng:          newRNG(cfg.Seed),
		sigma:        cfg.SigmaInit,
		elitePop:     elitePop,
		eliteParams:  elites,
		eliteRewards: make([]float64, elitePop),
		bestParams:   make([]float64, cfg.NumParams),
		firstIter:    true,
	}, nil
}

// Ask breeds a fresh population from the elite pool.
func (g *SimpleGA) Ask() ([][]float64, error) {
	g.solutions = make([][]float64, g.cfg.PopSize)
	for i := range g.solutions {
		a := g.eliteParams[g.rng.Intn(g.elitePop)]
		b := g.eliteParams[g.rng.Intn(g.elitePop)]
		child := g.mate(a, b)
		for j := range child {
			child[j] += g.rng.NormFloat64() * g.sigma
		}
		g.solutions[i] = child
	}
	return g.solutions, nil
}

// mate does uniform per-gene crossover: each gene comes from a with
// probability 1/2, otherwise from b.
func (g *SimpleGA) mate(a, b []float64) []float64 {
	child := cloneVec(a)
	for j := range child {
		if g.rng.Float64() > 0.5 {
			child[j] = b[j]
		}
	}
	return child
}

// Tell reselects the elite pool from the scored population (pooled
// with the previous elites unless forget-best is set).
func (g *SimpleGA) Tell(scores []float64) error {
	if len(scores) != g.cfg.PopSize {
		return &PopulationSizeError{Want: g.cfg.PopSize, Got: len(scores)}
	}

	reward := cloneVec(scores)
	if g.cfg.WeightDecay > 0 {
		decay := WeightDecay(g.cfg.WeightDecay, g.solutions)
		for i := range reward {
			reward[i] += decay[i]
		}
	}

	pool := g.solutions
	if !g.cfg.ForgetBest && !g.firstIter {
		pool = append(append([][]float64{}, g.solutions...), g.eliteParams...)
		reward = append(reward, g.eliteRewards...)
	}

	order := argsortDesc(reward)
	newElites := make([][]float64, g.elitePop)
	newRewards := make([]float64, g.elitePop)
	for i := 0; i < g.elitePop; i++ {
		newElites[i] = cloneVec(pool[order[i]])
		newRewards[i] = reward[order[i]]
	}
	g.eliteParams = newElites
	g.eliteRewards = newRewards

	g.curBestReward = g.eliteRewards[0]
	if g.firstIter || g.curBestReward > g.bestReward {
		g.firstIter = false
		g.bestReward = g.eliteRewards[0]
		g.bestParams = cloneVec(g.eliteParams[0])
	}

	if g.sigma > g.cfg.SigmaLimit {
		g.sigma *= g.cfg.SigmaDecay
	}
	return nil
}

func (g *SimpleGA) CurrentParam() []float64 { return g.eliteParams[0] }

func (g *SimpleGA) BestParam() []float64 { return g.bestParams }

// SetMean is a no-op: the GA tracks an elite pool, not a mean.
func (g *SimpleGA) SetMean([]float64) {}

func (g *SimpleGA) Result() Result {
	return Result{
		BestParams:     cloneVec(g.bestParams),
		BestReward:     g.bestReward,
		CurrBestReward: g.curBestReward,
		Sigma:          []float64{g.sigma},
	}
}

func (g *SimpleGA) RMSStdev() float64 { return math.Abs(g.sigma) }

func (g *SimpleGA) Init(Evaluator) error { return nil }

// EliteRewards exposes the current elite scores for diagnostics.
func (g *SimpleGA) EliteRewards() []float64 { return g.eliteRewards }

// ElitePopSize reports the size of the elite pool.
func (g *SimpleGA) ElitePopSize() int { return g.elitePop }
