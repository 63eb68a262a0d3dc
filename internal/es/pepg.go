package es

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// PEPGConfig configures PEPG. Start from DefaultPEPGConfig and override
// fields as needed.
type PEPGConfig struct {
	NumParams         int
	SigmaInit         float64
	SigmaAlpha        float64 // learning rate for the per-dimension sigma
	SigmaDecay        float64
	SigmaLimit        float64
	SigmaMaxChange    float64 // clamp on the adaptive sigma update, as a fraction of sigma
	LearningRate      float64
	LearningRateDecay float64
	LearningRateLimit float64
	EliteRatio        float64 // if > 0, averages the top-k perturbations instead of using the learning rate
	PopSize           int
	AverageBaseline   bool // baseline is the batch mean instead of an explicit unperturbed sample
	WeightDecay       float64
	RankFitness       bool
	ForgetBest        bool
	Seed              int64
}

// DefaultPEPGConfig returns the standard hyperparameters for a problem
// of the given dimension.
func DefaultPEPGConfig(numParams int) PEPGConfig {
	return PEPGConfig{
		NumParams:         numParams,
		SigmaInit:         0.10,
		SigmaAlpha:        0.20,
		SigmaDecay:        0.999,
		SigmaLimit:        0.01,
		SigmaMaxChange:    0.2,
		LearningRate:      0.01,
		LearningRateDecay: 0.9999,
		LearningRateLimit: 0.01,
		PopSize:           256,
		AverageBaseline:   true,
		WeightDecay:       0.01,
		RankFitness:       true,
		ForgetBest:        true,
		Seed:              42,
	}
}

// PEPG is parameter-exploring policy gradients with per-dimension
// adaptive sigma, antithetic sampling, and an explicit or averaged
// baseline. The mean moves through an Adam updater driven by the
// decayed learning rate; optionally an elite mode averages the top-k
// perturbations instead.
type PEPG struct {
	cfg PEPGConfig
	rng *rand.Rand

	batchSize   int
	elitePop    int
	useElite    bool
	forgetBest  bool
	updater     *MeanUpdater
	updateRatio float64

	mu           []float64
	sigma        []float64
	learningRate float64

	epsilon     [][]float64 // batchSize draws, already scaled by sigma
	epsilonFull [][]float64 // epsilon followed by its mirror
	solutions   [][]float64

	curBestMu     []float64
	curBestReward float64
	bestMu        []float64
	bestReward    float64
	firstIter     bool
}

// NewPEPG validates cfg and builds the strategy.
//
// The population parity rules are kept exactly as the reference
// algorithm states them, even though they look contradictory: the
// averaged-baseline mode wants an even popsize (pure antithetic pairs)
// while the explicit-baseline mode wants an odd one (pairs plus the
// unperturbed sample). The antithetic batch itself is always
// popsize/2 rounded down.
func NewPEPG(cfg PEPGConfig) (*PEPG, error) {
	if cfg.NumParams <= 0 {
		return nil, fmt.Errorf("pepg: num params must be positive, got %d", cfg.NumParams)
	}
	var batchSize int
	if cfg.AverageBaseline {
		if cfg.PopSize%2 != 0 {
			return nil, fmt.Errorf("pepg: population size must be even with an averaged baseline, got %d", cfg.PopSize)
		}
		batchSize = cfg.PopSize / 2
	} else {
		if cfg.PopSize%2 != 1 {
			return nil, fmt.Errorf("pepg: population size must be odd with an explicit baseline, got %d", cfg.PopSize)
		}
		batchSize = (cfg.PopSize - 1) / 2
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("pepg: population size %d leaves no antithetic batch", cfg.PopSize)
	}

	elitePop := int(float64(cfg.PopSize) * cfg.EliteRatio)

	forgetBest := cfg.ForgetBest
	if cfg.RankFitness {
		forgetBest = true
	}

	adam, err := NewStepOptimizer(StepConfig{Kind: StepAdam, Stepsize: cfg.LearningRate}, cfg.NumParams)
	if err != nil {
		return nil, err
	}

	sigma := make([]float64, cfg.NumParams)
	for i := range sigma {
		sigma[i] = cfg.SigmaInit
	}

	return &PEPG{
		cfg:          cfg,
		rng:          newRNG(cfg.Seed),
		batchSize:    batchSize,
		elitePop:     elitePop,
		useElite:     elitePop > 0,
		forgetBest:   forgetBest,
		updater:      &MeanUpdater{Opt: adam},
		mu:           make([]float64, cfg.NumParams),
		sigma:        sigma,
		learningRate: cfg.LearningRate,
		bestMu:       make([]float64, cfg.NumParams),
		curBestMu:    make([]float64, cfg.NumParams),
		firstIter:    true,
	}, nil
}

// Ask draws batchSize perturbations scaled by the per-dimension sigma
// and mirrors them. With an explicit baseline the unperturbed mean is
// prepended as member 0.
func (p *PEPG) Ask() ([][]float64, error) {
	p.epsilon = make([][]float64, p.batchSize)
	for i := range p.epsilon {
		eps := make([]float64, p.cfg.NumParams)
		for j := range eps {
			eps[j] = p.rng.NormFloat64() * p.sigma[j]
		}
		p.epsilon[i] = eps
	}

	p.epsilonFull = make([][]float64, 2*p.batchSize)
	for i, eps := range p.epsilon {
		neg := make([]float64, len(eps))
		for j, v := range eps {
			neg[j] = -v
		}
		p.epsilonFull[i] = eps
		p.epsilonFull[p.batchSize+i] = neg
	}

	var perturbations [][]float64
	if p.cfg.AverageBaseline {
		perturbations = p.epsilonFull
	} else {
		perturbations = append([][]float64{make([]float64, p.cfg.NumParams)}, p.epsilonFull...)
	}

	p.solutions = make([][]float64, len(perturbations))
	for i, eps := range perturbations {
		sol := cloneVec(p.mu)
		floats.Add(sol, eps)
		p.solutions[i] = sol
	}
	return p.solutions, nil
}

// Tell consumes one score per member of the last Ask, moves the mean,
// and adapts the per-dimension sigma.
func (p *PEPG) Tell(scores []float64) error {
	if len(scores) != p.cfg.PopSize {
		return &PopulationSizeError{Want: p.cfg.PopSize, Got: len(scores)}
	}

	rewardTable := cloneVec(scores)
	if p.cfg.RankFitness {
		shaped, err := CenteredRanks(rewardTable)
		if err != nil {
			return err
		}
		rewardTable = shaped
	}
	if p.cfg.WeightDecay > 0 {
		floats.Add(rewardTable, WeightDecay(p.cfg.WeightDecay, p.solutions))
	}

	var baseline float64
	rewardOffset := 1
	if p.cfg.AverageBaseline {
		baseline = floats.Sum(rewardTable) / float64(len(rewardTable))
		rewardOffset = 0
	} else {
		baseline = rewardTable[0]
	}
	reward := rewardTable[rewardOffset:]

	order := argsortDesc(reward)
	topIdx := order
	if p.useElite && p.elitePop < len(order) {
		topIdx = order[:p.elitePop]
	}

	bestReward := reward[order[0]]
	var bestMu []float64
	if bestReward > baseline || p.cfg.AverageBaseline {
		bestMu = cloneVec(p.mu)
		floats.Add(bestMu, p.epsilonFull[order[0]])
	} else {
		bestMu = cloneVec(p.mu)
		bestReward = baseline
	}

	p.curBestReward = bestReward
	p.curBestMu = bestMu

	if p.firstIter {
		for i := range p.sigma {
			p.sigma[i] = p.cfg.SigmaInit
		}
		p.firstIter = false
		p.bestReward = p.curBestReward
		p.bestMu = cloneVec(bestMu)
	} else if p.forgetBest || p.curBestReward > p.bestReward {
		p.bestReward = p.curBestReward
		p.bestMu = cloneVec(bestMu)
	}

	if p.useElite {
		// Greedy mode: move the mean to the average of the elite
		// perturbations, ignoring the learning rate.
		avg := make([]float64, p.cfg.NumParams)
		for _, i := range topIdx {
			floats.Add(avg, p.epsilonFull[i])
		}
		floats.Scale(1.0/float64(len(topIdx)), avg)
		floats.Add(p.mu, avg)
	} else {
		changeMu := make([]float64, p.cfg.NumParams)
		for i := 0; i < p.batchSize; i++ {
			rT := reward[i] - reward[p.batchSize+i]
			for j, v := range p.epsilon[i] {
				changeMu[j] += rT * v
			}
		}
		floats.Scale(0.5, changeMu)

		grad := make([]float64, p.cfg.NumParams)
		for j, v := range changeMu {
			grad[j] = -v
		}
		p.updater.Opt.SetStepsize(p.learningRate)
		p.updateRatio = p.updater.Update(p.mu, grad)
	}

	if p.cfg.SigmaAlpha > 0 {
		p.adaptSigma(reward, baseline)
	}

	if p.cfg.SigmaDecay < 1 {
		for j := range p.sigma {
			if p.sigma[j] > p.cfg.SigmaLimit {
				p.sigma[j] *= p.cfg.SigmaDecay
			}
		}
	}
	if p.cfg.LearningRateDecay < 1 && p.learningRate > p.cfg.LearningRateLimit {
		p.learningRate *= p.cfg.LearningRateDecay
	}
	return nil
}

// adaptSigma correlates the squared-noise deviation with the centered
// pair-average rewards and applies the clamped per-dimension change.
func (p *PEPG) adaptSigma(reward []float64, baseline float64) {
	deltaSigma := make([]float64, p.cfg.NumParams)
	for i := 0; i < p.batchSize; i++ {
		rS := (reward[i]+reward[p.batchSize+i])/2.0 - baseline
		for j, v := range p.epsilon[i] {
			s := (v*v - p.sigma[j]*p.sigma[j]) / p.sigma[j]
			deltaSigma[j] += rS * s
		}
	}

	for j := range p.sigma {
		change := p.cfg.SigmaAlpha * deltaSigma[j]
		limit := p.cfg.SigmaMaxChange * p.sigma[j]
		if change > limit {
			change = limit
		}
		if change < -limit {
			change = -limit
		}
		p.sigma[j] += change
	}
}

// UpdateRatio reports ||step|| / (||mean|| + eps) of the latest
// gradient-mode mean update, for diagnostics.
func (p *PEPG) UpdateRatio() float64 { return p.updateRatio }

func (p *PEPG) CurrentParam() []float64 { return p.curBestMu }

func (p *PEPG) BestParam() []float64 { return p.bestMu }

func (p *PEPG) SetMean(mean []float64) {
	p.mu = cloneVec(mean)
}

func (p *PEPG) Result() Result {
	return Result{
		BestParams:     cloneVec(p.bestMu),
		BestReward:     p.bestReward,
		CurrBestReward: p.curBestReward,
		Sigma:          cloneVec(p.sigma),
	}
}

// RMSStdev averages the per-dimension spread.
func (p *PEPG) RMSStdev() float64 {
	var sum float64
	for _, s := range p.sigma {
		sum += math.Abs(s)
	}
	return sum / float64(len(p.sigma))
}

func (p *PEPG) Init(Evaluator) error { return nil }
