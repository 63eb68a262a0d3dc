package es

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// stepEpsilon stabilizes Adam denominators and the update ratio.
const stepEpsilon = 1e-8

// StepKind names a first-order step optimizer implementation. The set
// is closed; NewStepOptimizer rejects anything else.
type StepKind string

const (
	StepSGD  StepKind = "sgd"
	StepSGDM StepKind = "sgdm"
	StepAdam StepKind = "adam"
)

// StepConfig declares a step optimizer. Zero-valued hyperparameters
// fall back to the documented defaults.
type StepConfig struct {
	Kind     StepKind `yaml:"kind"`
	Stepsize float64  `yaml:"stepsize"`
	Momentum float64  `yaml:"momentum"` // sgdm only, default 0.9
	Beta1    float64  `yaml:"beta1"`    // adam only, default 0.99
	Beta2    float64  `yaml:"beta2"`    // adam only, default 0.999
}

// StepOptimizer turns a pseudo-gradient into a descent step. The step
// is scaled by internal state (momentum, moment estimates) and is meant
// to be applied by the owning strategy with the sign it needs to ascend
// fitness. Implementations never retain the returned slice.
type StepOptimizer interface {
	ComputeStep(gradient []float64) []float64
	// SetStepsize replaces the base stepsize. PEPG re-binds its decayed
	// learning rate through this before every update.
	SetStepsize(stepsize float64)
}

// NewStepOptimizer builds the optimizer named by cfg.Kind for a
// parameter vector of the given dimension.
func NewStepOptimizer(cfg StepConfig, numParams int) (StepOptimizer, error) {
	switch cfg.Kind {
	case StepSGD:
		return &SGD{stepsize: cfg.Stepsize}, nil
	case StepSGDM:
		momentum := cfg.Momentum
		if momentum == 0 {
			momentum = 0.9
		}
		return &MomentumSGD{
			stepsize: cfg.Stepsize,
			momentum: momentum,
			v:        make([]float64, numParams),
		}, nil
	case StepAdam:
		beta1 := cfg.Beta1
		if beta1 == 0 {
			beta1 = 0.99
		}
		beta2 := cfg.Beta2
		if beta2 == 0 {
			beta2 = 0.999
		}
		return &Adam{
			stepsize: cfg.Stepsize,
			beta1:    beta1,
			beta2:    beta2,
			m:        make([]float64, numParams),
			v:        make([]float64, numParams),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported step optimizer %q", cfg.Kind)
	}
}

// SGD is a plain gradient step with no state beyond the stepsize.
type SGD struct {
	stepsize float64
}

func (s *SGD) ComputeStep(gradient []float64) []float64 {
	step := make([]float64, len(gradient))
	for i, g := range gradient {
		step[i] = -s.stepsize * g
	}
	return step
}

func (s *SGD) SetStepsize(stepsize float64) { s.stepsize = stepsize }

// MomentumSGD keeps an exponential moving average of the gradient as a
// velocity and steps along it.
type MomentumSGD struct {
	stepsize float64
	momentum float64
	v        []float64
}

func (s *MomentumSGD) ComputeStep(gradient []float64) []float64 {
	step := make([]float64, len(gradient))
	for i, g := range gradient {
		s.v[i] = s.momentum*s.v[i] + (1.0-s.momentum)*g
		step[i] = -s.stepsize * s.v[i]
	}
	return step
}

func (s *MomentumSGD) SetStepsize(stepsize float64) { s.stepsize = stepsize }

// Adam tracks first and second moment estimates with bias correction.
// The correction is exact from the very first step (t=1).
type Adam struct {
	stepsize float64
	beta1    float64
	beta2    float64
	m        []float64
	v        []float64
	t        int
}

func (a *Adam) ComputeStep(gradient []float64) []float64 {
	a.t++
	t := float64(a.t)
	rate := a.stepsize * math.Sqrt(1-math.Pow(a.beta2, t)) / (1 - math.Pow(a.beta1, t))

	step := make([]float64, len(gradient))
	for i, g := range gradient {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g
		step[i] = -rate * a.m[i] / (math.Sqrt(a.v[i]) + stepEpsilon)
	}
	return step
}

func (a *Adam) SetStepsize(stepsize float64) { a.stepsize = stepsize }

// MeanUpdater is the second call surface over the same optimizers: it
// applies the step to a mean vector in place and reports the update
// ratio ||step|| / (||mean|| + eps) for diagnostics. Both surfaces
// share one moment-tracking state, so the math cannot drift apart.
type MeanUpdater struct {
	Opt StepOptimizer
}

// Update mutates mean by one optimizer step and returns the ratio of
// step norm to mean norm.
func (u *MeanUpdater) Update(mean, gradient []float64) float64 {
	step := u.Opt.ComputeStep(gradient)
	ratio := floats.Norm(step, 2) / (floats.Norm(mean, 2) + stepEpsilon)
	floats.Add(mean, step)
	return ratio
}
