package es

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// OpenESConfig configures OpenES. Start from DefaultOpenESConfig and
// override fields as needed.
type OpenESConfig struct {
	NumParams         int
	Step              StepConfig
	SigmaInit         float64
	SigmaDecay        float64
	SigmaLimit        float64
	LearningRate      float64
	LearningRateDecay float64
	LearningRateLimit float64
	PopSize           int
	Antithetic        bool
	WeightDecay       float64
	RankFitness       bool
	ForgetBest        bool
	Seed              int64
}

// DefaultOpenESConfig returns the standard hyperparameters for a
// problem of the given dimension.
func DefaultOpenESConfig(numParams int) OpenESConfig {
	return OpenESConfig{
		NumParams:         numParams,
		Step:              StepConfig{Kind: StepAdam, Stepsize: 0.01},
		SigmaInit:         0.1,
		SigmaDecay:        0.999,
		SigmaLimit:        0.01,
		LearningRate:      0.01,
		LearningRateDecay: 0.9999,
		LearningRateLimit: 0.001,
		PopSize:           256,
		WeightDecay:       0.01,
		RankFitness:       true,
		ForgetBest:        true,
		Seed:              42,
	}
}

// OpenES is the basic OpenAI-style evolution strategy: isotropic
// Gaussian perturbations around a mean, centered-rank fitness shaping,
// optional antithetic sampling, and an inner step optimizer turning the
// pseudo-gradient into a mean update.
type OpenES struct {
	cfg OpenESConfig
	rng *rand.Rand
	opt StepOptimizer

	mu           []float64
	sigma        float64
	learningRate float64
	forgetBest   bool

	epsilon   [][]float64
	solutions [][]float64

	curBestMu     []float64
	curBestReward float64
	bestMu        []float64
	bestReward    float64
	firstIter     bool
}

// NewOpenES validates cfg and builds the strategy.
func NewOpenES(cfg OpenESConfig) (*OpenES, error) {
	if cfg.NumParams <= 0 {
		return nil, fmt.Errorf("openes: num params must be positive, got %d", cfg.NumParams)
	}
	if cfg.PopSize < 2 {
		return nil, fmt.Errorf("openes: population size must be at least 2, got %d", cfg.PopSize)
	}
	if cfg.Antithetic && cfg.PopSize%2 != 0 {
		return nil, fmt.Errorf("openes: antithetic sampling needs an even population size, got %d", cfg.PopSize)
	}

	opt, err := NewStepOptimizer(cfg.Step, cfg.NumParams)
	if err != nil {
		return nil, err
	}

	forgetBest := cfg.ForgetBest
	if cfg.RankFitness {
		// Ranks are not comparable across iterations, so a historical
		// best kept under rank shaping would be meaningless.
		forgetBest = true
	}

	return &OpenES{
		cfg:          cfg,
		rng:          newRNG(cfg.Seed),
		opt:          opt,
		mu:           make([]float64, cfg.NumParams),
		sigma:        cfg.SigmaInit,
		learningRate: cfg.LearningRate,
		forgetBest:   forgetBest,
		bestMu:       make([]float64, cfg.NumParams),
		firstIter:    true,
	}, nil
}

// Ask draws the next population around the current mean. With
// antithetic sampling the second half mirrors the first.
func (o *OpenES) Ask() ([][]float64, error) {
	o.epsilon = make([][]float64, o.cfg.PopSize)
	if o.cfg.Antithetic {
		half := o.cfg.PopSize / 2
		for i := 0; i < half; i++ {
			eps := o.drawNoise()
			neg := make([]float64, len(eps))
			for j, v := range eps {
				neg[j] = -v
			}
			o.epsilon[i] = eps
			o.epsilon[half+i] = neg
		}
	} else {
		for i := range o.epsilon {
			o.epsilon[i] = o.drawNoise()
		}
	}

	o.solutions = make([][]float64, o.cfg.PopSize)
	for i, eps := range o.epsilon {
		sol := make([]float64, o.cfg.NumParams)
		for j := range sol {
			sol[j] = o.mu[j] + o.sigma*eps[j]
		}
		o.solutions[i] = sol
	}
	return o.solutions, nil
}

func (o *OpenES) drawNoise() []float64 {
	eps := make([]float64, o.cfg.NumParams)
	for j := range eps {
		eps[j] = o.rng.NormFloat64()
	}
	return eps
}

// Tell consumes one score per member of the last Ask and moves the mean
// along the estimated fitness gradient.
func (o *OpenES) Tell(scores []float64) error {
	if len(scores) != o.cfg.PopSize {
		return &PopulationSizeError{Want: o.cfg.PopSize, Got: len(scores)}
	}

	reward := cloneVec(scores)
	if o.cfg.RankFitness {
		shaped, err := CenteredRanks(reward)
		if err != nil {
			return err
		}
		reward = shaped
	}
	if o.cfg.WeightDecay > 0 {
		floats.Add(reward, WeightDecay(o.cfg.WeightDecay, o.solutions))
	}

	best := argsortDesc(reward)[0]
	o.curBestReward = reward[best]
	o.curBestMu = cloneVec(o.solutions[best])

	if o.firstIter {
		o.firstIter = false
		o.bestReward = o.curBestReward
		o.bestMu = cloneVec(o.curBestMu)
	} else if o.forgetBest || o.curBestReward > o.bestReward {
		o.bestReward = o.curBestReward
		o.bestMu = cloneVec(o.curBestMu)
	}

	// Standardize rewards before correlating them with the noise.
	normalized, err := CenteredRanks(reward)
	if err != nil {
		return err
	}

	gradient := make([]float64, o.cfg.NumParams)
	for i, eps := range o.epsilon {
		w := normalized[i]
		for j, v := range eps {
			gradient[j] += v * w
		}
	}
	floats.Scale(1.0/(float64(o.cfg.PopSize)*o.sigma), gradient)

	floats.Sub(o.mu, o.opt.ComputeStep(gradient))

	if o.sigma > o.cfg.SigmaLimit {
		o.sigma *= o.cfg.SigmaDecay
	}
	if o.learningRate > o.cfg.LearningRateLimit {
		o.learningRate *= o.cfg.LearningRateDecay
	}
	return nil
}

func (o *OpenES) CurrentParam() []float64 { return o.curBestMu }

func (o *OpenES) BestParam() []float64 { return o.bestMu }

func (o *OpenES) SetMean(mean []float64) {
	o.mu = cloneVec(mean)
}

func (o *OpenES) Result() Result {
	return Result{
		BestParams:     cloneVec(o.bestMu),
		BestReward:     o.bestReward,
		CurrBestReward: o.curBestReward,
		Sigma:          []float64{o.sigma},
	}
}

func (o *OpenES) RMSStdev() float64 { return math.Abs(o.sigma) }

func (o *OpenES) Init(Evaluator) error { return nil }
