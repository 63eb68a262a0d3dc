// Package bench provides synthetic black-box objectives for exercising
// the optimizers. Each objective is a classic minimization test
// function exposed through the maximizing Evaluator contract; the
// behavior characteristic is the candidate's first two coordinates,
// which is enough structure for novelty-search runs.
package bench

import (
	"fmt"
	"math"
)

// Func is a minimization test function over a real vector.
type Func func(x []float64) float64

// Sphere is sum(x_i^2), minimum 0 at the origin.
func Sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// Rastrigin is the standard multimodal benchmark, minimum 0 at the
// origin.
func Rastrigin(x []float64) float64 {
	sum := 10.0 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10.0*math.Cos(2.0*math.Pi*v)
	}
	return sum
}

// Rosenbrock is the banana-valley benchmark, minimum 0 at (1,...,1).
func Rosenbrock(x []float64) float64 {
	var sum float64
	for i := 0; i+1 < len(x); i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1.0 - x[i]
		sum += 100.0*a*a + b*b
	}
	return sum
}

// Evaluator adapts a minimization function to the maximizing fitness
// contract used by the strategies.
type Evaluator struct {
	name string
	fn   Func
}

// New wraps fn as an evaluator.
func New(name string, fn Func) *Evaluator {
	return &Evaluator{name: name, fn: fn}
}

// ByName returns the named benchmark evaluator.
func ByName(name string) (*Evaluator, error) {
	switch name {
	case "sphere":
		return New(name, Sphere), nil
	case "rastrigin":
		return New(name, Rastrigin), nil
	case "rosenbrock":
		return New(name, Rosenbrock), nil
	default:
		return nil, fmt.Errorf("unknown objective %q", name)
	}
}

// Name reports the benchmark name.
func (e *Evaluator) Name() string { return e.name }

// Evaluate returns the negated function value as fitness and the first
// two coordinates as the behavior characteristic.
func (e *Evaluator) Evaluate(params []float64) (float64, []float64) {
	characteristic := make([]float64, 2)
	for i := 0; i < len(characteristic) && i < len(params); i++ {
		characteristic[i] = params[i]
	}
	return -e.fn(params), characteristic
}
