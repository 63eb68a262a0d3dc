package es

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// WeightPolicy controls the novelty-vs-fitness blend weight of a
// NoveltyES and how it reacts to improvement or stagnation. A weight of
// 0 means pure novelty search, 1 weights novelty fully alongside the
// fitness ranks.
type WeightPolicy interface {
	Weight() float64
	// Observe is called once per TellNovelty with whether the adapted
	// solution improved on the best reward so far.
	Observe(improved bool)
}

// FixedWeight keeps the blend constant. FixedWeight(0) gives NSES,
// FixedWeight(0.5) the default NSRES.
type FixedWeight float64

func (w FixedWeight) Weight() float64 { return float64(w) }

func (FixedWeight) Observe(bool) {}

// AdaptiveWeight shifts the blend toward fitness on improvement and
// back toward novelty after a run of stagnant updates (NSRAES).
type AdaptiveWeight struct {
	weight    float64
	change    float64
	threshold int
	stagnant  int
}

// NewAdaptiveWeight starts at initial weight and moves by change per
// adjustment; threshold stagnant updates in a row trigger a decrease.
func NewAdaptiveWeight(initial, change float64, threshold int) *AdaptiveWeight {
	return &AdaptiveWeight{weight: initial, change: change, threshold: threshold}
}

func (w *AdaptiveWeight) Weight() float64 { return w.weight }

func (w *AdaptiveWeight) Observe(improved bool) {
	if improved {
		w.stagnant = 0
		w.weight = math.Min(1, w.weight+w.change)
		return
	}
	w.stagnant++
	if w.stagnant >= w.threshold {
		w.weight = math.Max(0, w.weight-w.change)
		w.stagnant = 0
	}
}

// ErrNotInitialized is returned by NoveltyES.Ask before Init has seeded
// the metapopulation and archive.
var ErrNotInitialized = errors.New("novelty search not initialized; call Init with the evaluator first")

// NoveltyESConfig configures the novelty-search engine. Start from
// DefaultNoveltyESConfig and override fields as needed.
type NoveltyESConfig struct {
	NumParams          int
	Step               StepConfig
	SigmaInit          float64
	PopSize            int
	MetapopulationSize int
	K                  int // nearest archived characteristics used for the novelty metric
	Antithetic         bool
	Seed               int64
}

// DefaultNoveltyESConfig returns the standard hyperparameters for a
// problem of the given dimension.
func DefaultNoveltyESConfig(numParams int) NoveltyESConfig {
	return NoveltyESConfig{
		NumParams:          numParams,
		Step:               StepConfig{Kind: StepAdam, Stepsize: 0.01},
		SigmaInit:          0.1,
		PopSize:            256,
		MetapopulationSize: 10,
		K:                  10,
		Seed:               42,
	}
}

// NoveltyES maintains a metapopulation of independently-adapted
// solutions plus an append-only archive of behavior characteristics.
// Each Ask picks one member with probability proportional to its
// novelty and perturbs it; TellNovelty moves that member along a blend
// of novelty and fitness ranks using the member's own step optimizer.
//
// The weight policy is injected, so NSES, NSRES, and NSRAES are the
// same engine under different policies.
type NoveltyES struct {
	cfg    NoveltyESConfig
	rng    *rand.Rand
	policy WeightPolicy
	opts   []StepOptimizer

	sigma      float64
	population [][]float64
	archive    [][]float64 // append-only
	memberIdx  []int       // archive index of each metapopulation member

	epsilon          [][]float64
	currentIndex     int
	currentSolution  []float64
	currentSolutions [][]float64

	best        []float64
	bestReward  float64
	initialized bool
}

// NewNoveltyES builds the engine with an explicit weight policy. Most
// callers want NewNSES, NewNSRES, or NewNSRAES instead.
func NewNoveltyES(cfg NoveltyESConfig, policy WeightPolicy) (*NoveltyES, error) {
	if cfg.NumParams <= 0 {
		return nil, fmt.Errorf("novelty: num params must be positive, got %d", cfg.NumParams)
	}
	if cfg.PopSize < 2 {
		return nil, fmt.Errorf("novelty: population size must be at least 2, got %d", cfg.PopSize)
	}
	if cfg.Antithetic && cfg.PopSize%2 != 0 {
		return nil, fmt.Errorf("novelty: antithetic sampling needs an even population size, got %d", cfg.PopSize)
	}
	if cfg.MetapopulationSize < 1 {
		return nil, fmt.Errorf("novelty: metapopulation size must be positive, got %d", cfg.MetapopulationSize)
	}
	if cfg.K < 1 {
		return nil, fmt.Errorf("novelty: k must be positive, got %d", cfg.K)
	}

	// One inner optimizer per member: momentum and moment estimates
	// must not leak between independently-evolving solutions.
	opts := make([]StepOptimizer, cfg.MetapopulationSize)
	for i := range opts {
		opt, err := NewStepOptimizer(cfg.Step, cfg.NumParams)
		if err != nil {
			return nil, err
		}
		opts[i] = opt
	}

	return &NoveltyES{
		cfg:    cfg,
		rng:    newRNG(cfg.Seed),
		policy: policy,
		opts:   opts,
		sigma:  cfg.SigmaInit,
	}, nil
}

// NewNSES builds a pure novelty-search ES (fitness ranks carry zero
// blend weight).
func NewNSES(cfg NoveltyESConfig) (*NoveltyES, error) {
	return NewNoveltyES(cfg, FixedWeight(0))
}

// NewNSRES builds a novelty-reward ES with a static blend weight.
func NewNSRES(cfg NoveltyESConfig, weight float64) (*NoveltyES, error) {
	return NewNoveltyES(cfg, FixedWeight(weight))
}

// NSRAESDefaults are the standard adaptive-weight parameters.
var NSRAESDefaults = struct {
	InitWeight      float64
	WeightChange    float64
	ChangeThreshold int
}{InitWeight: 1, WeightChange: 0.05, ChangeThreshold: 50}

// NewNSRAES builds a novelty-reward ES whose blend weight adapts to
// improvement and stagnation.
func NewNSRAES(cfg NoveltyESConfig) (*NoveltyES, error) {
	d := NSRAESDefaults
	return NewNoveltyES(cfg, NewAdaptiveWeight(d.InitWeight, d.WeightChange, d.ChangeThreshold))
}

// Init seeds the metapopulation with random draws, evaluates each
// member once, and records the archive and the best-ever solution.
func (n *NoveltyES) Init(eval Evaluator) error {
	if eval == nil {
		return errors.New("novelty: init requires an evaluator")
	}

	n.population = make([][]float64, n.cfg.MetapopulationSize)
	n.archive = n.archive[:0]
	n.memberIdx = make([]int, n.cfg.MetapopulationSize)
	n.bestReward = math.Inf(-1)

	for i := range n.population {
		member := make([]float64, n.cfg.NumParams)
		for j := range member {
			member[j] = n.rng.NormFloat64()
		}
		n.population[i] = member

		fitness, characteristic := eval.Evaluate(member)
		n.archive = append(n.archive, cloneVec(characteristic))
		n.memberIdx[i] = i
		if fitness > n.bestReward {
			n.bestReward = fitness
			n.best = cloneVec(member)
		}
	}
	n.currentSolution = n.population[0]
	n.initialized = true
	return nil
}

// CalculateNovelty is the k-NN novelty metric: the mean Euclidean
// distance from the characteristic to its k nearest archive entries.
func (n *NoveltyES) CalculateNovelty(characteristic []float64) float64 {
	distances := make([]float64, len(n.archive))
	for i, archived := range n.archive {
		distances[i] = floats.Distance(archived, characteristic, 2)
	}
	sort.Float64s(distances)

	k := n.cfg.K
	if k > len(distances) {
		k = len(distances)
	}
	if k == 0 {
		return 0
	}
	return floats.Sum(distances[:k]) / float64(k)
}

// Ask selects one metapopulation member (probability proportional to
// its novelty) and perturbs it into a local population.
func (n *NoveltyES) Ask() ([][]float64, error) {
	if !n.initialized {
		return nil, ErrNotInitialized
	}

	n.epsilon = make([][]float64, n.cfg.PopSize)
	if n.cfg.Antithetic {
		half := n.cfg.PopSize / 2
		for i := 0; i < half; i++ {
			eps := n.drawNoise()
			neg := make([]float64, len(eps))
			for j, v := range eps {
				neg[j] = -v
			}
			n.epsilon[i] = eps
			n.epsilon[half+i] = neg
		}
	} else {
		for i := range n.epsilon {
			n.epsilon[i] = n.drawNoise()
		}
	}

	n.currentIndex = n.selectMember()
	n.currentSolution = n.population[n.currentIndex]

	n.currentSolutions = make([][]float64, n.cfg.PopSize)
	for i, eps := range n.epsilon {
		sol := cloneVec(n.currentSolution)
		floats.Add(sol, eps)
		n.currentSolutions[i] = sol
	}
	return n.currentSolutions, nil
}

func (n *NoveltyES) drawNoise() []float64 {
	eps := make([]float64, n.cfg.NumParams)
	for j := range eps {
		eps[j] = n.rng.NormFloat64() * n.sigma
	}
	return eps
}

// selectMember samples a metapopulation index with probability
// proportional to member novelty. Falls back to uniform when every
// novelty is zero (e.g. all members share one behavior).
func (n *NoveltyES) selectMember() int {
	novelties := make([]float64, n.cfg.MetapopulationSize)
	for i, idx := range n.memberIdx {
		novelties[i] = n.CalculateNovelty(n.archive[idx])
	}

	total := floats.Sum(novelties)
	if total <= 0 {
		return n.rng.Intn(n.cfg.MetapopulationSize)
	}

	target := n.rng.Float64() * total
	var cum float64
	for i, nov := range novelties {
		cum += nov
		if target < cum {
			return i
		}
	}
	return n.cfg.MetapopulationSize - 1
}

// Tell is part of the Strategy contract but insufficient for novelty
// search; use TellNovelty.
func (n *NoveltyES) Tell([]float64) error {
	return errors.New("novelty search needs behavior characteristics; use TellNovelty")
}

// TellNovelty blends rank-shaped novelty and fitness into a
// pseudo-gradient, moves the selected member with its own optimizer,
// re-evaluates the adapted solution for the archive, and replaces the
// metapopulation slot.
func (n *NoveltyES) TellNovelty(scores []float64, characteristics [][]float64, eval Evaluator) error {
	if !n.initialized {
		return ErrNotInitialized
	}
	if len(scores) != n.cfg.PopSize {
		return &PopulationSizeError{Want: n.cfg.PopSize, Got: len(scores)}
	}
	if len(characteristics) != n.cfg.PopSize {
		return &PopulationSizeError{Want: n.cfg.PopSize, Got: len(characteristics)}
	}
	if eval == nil {
		return errors.New("novelty: tell requires an evaluator")
	}

	novelties := make([]float64, n.cfg.PopSize)
	for i, ch := range characteristics {
		novelties[i] = n.CalculateNovelty(ch)
	}

	noveltyRanks, err := CenteredRanks(novelties)
	if err != nil {
		return err
	}
	fitnessRanks, err := CenteredRanks(scores)
	if err != nil {
		return err
	}

	weight := n.policy.Weight()
	gradient := make([]float64, n.cfg.NumParams)
	for i, eps := range n.epsilon {
		w := noveltyRanks[i]*weight + fitnessRanks[i]
		for j, v := range eps {
			gradient[j] += v * w
		}
	}
	floats.Scale(1.0/(n.sigma*float64(n.cfg.PopSize)), gradient)

	neg := make([]float64, len(gradient))
	for j, v := range gradient {
		neg[j] = -v
	}
	newSol := cloneVec(n.currentSolution)
	floats.Add(newSol, n.opts[n.currentIndex].ComputeStep(neg))

	fitness, characteristic := eval.Evaluate(newSol)
	n.archive = append(n.archive, cloneVec(characteristic))
	n.population[n.currentIndex] = newSol
	n.memberIdx[n.currentIndex] = len(n.archive) - 1
	n.currentSolution = newSol

	improved := fitness > n.bestReward
	if improved {
		n.bestReward = fitness
		n.best = cloneVec(newSol)
	}
	n.policy.Observe(improved)
	return nil
}

func (n *NoveltyES) CurrentParam() []float64 { return n.currentSolution }

func (n *NoveltyES) BestParam() []float64 { return n.best }

// SetMean is a no-op: the engine tracks per-member solutions, not a
// global mean.
func (n *NoveltyES) SetMean([]float64) {}

func (n *NoveltyES) Result() Result {
	return Result{
		BestParams:     cloneVec(n.best),
		BestReward:     n.bestReward,
		CurrBestReward: n.bestReward,
		Sigma:          []float64{n.sigma},
	}
}

func (n *NoveltyES) RMSStdev() float64 { return math.Abs(n.sigma) }

// ArchiveSize reports how many behavior characteristics have been
// recorded so far.
func (n *NoveltyES) ArchiveSize() int { return len(n.archive) }
