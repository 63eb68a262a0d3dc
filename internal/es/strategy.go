// Package es implements derivative-free population optimizers behind a
// shared ask/tell protocol: Ask produces a batch of candidate parameter
// vectors, the caller evaluates them externally, and Tell feeds the
// scores back to update the strategy state. No gradients of the
// objective are ever required.
package es

import (
	"fmt"
	"math/rand"
	"sort"
)

// Result is a snapshot of a strategy for logging and checkpointing:
// the historically best parameters and reward, the best reward of the
// most recent iteration, and the current step-size. Scalar-sigma
// strategies report a single-element Sigma.
type Result struct {
	BestParams     []float64
	BestReward     float64
	CurrBestReward float64
	Sigma          []float64
}

// Evaluator is the external black-box objective. Evaluate scores one
// candidate (higher is better) and reports its behavior characteristic;
// strategies outside the novelty family ignore the characteristic.
type Evaluator interface {
	Evaluate(params []float64) (fitness float64, characteristic []float64)
}

// Strategy is the contract shared by every optimizer in this package.
//
// Instances are not safe for concurrent use: one logical caller drives
// one Ask, evaluates the returned population (possibly in parallel),
// then calls Tell with scores aligned index-for-index with the Ask
// output. Population members carry no request identifiers, so that
// alignment is entirely the caller's responsibility.
type Strategy interface {
	// Ask returns a fresh population of candidate parameter vectors.
	Ask() ([][]float64, error)

	// Tell consumes one fitness score per member of the last Ask, in
	// the same order. Higher is better. No partial update happens on
	// error.
	Tell(scores []float64) error

	// CurrentParam returns the best solution of the latest iteration.
	CurrentParam() []float64

	// BestParam returns the historically best solution, subject to the
	// strategy's forget-best policy.
	BestParam() []float64

	// SetMean reinitializes the central estimate. A no-op for
	// strategies that track a representative solution instead of an
	// explicit mean (CMA-ES, the GA, novelty search).
	SetMean(mean []float64)

	// Result snapshots the strategy for logging or checkpointing.
	Result() Result

	// RMSStdev is a scalar summary of the current exploration spread.
	RMSStdev() float64

	// Init seeds strategies that need an initial evaluation pass (the
	// novelty family); a no-op elsewhere.
	Init(eval Evaluator) error
}

// NoveltyStrategy extends Strategy for optimizers that blend fitness
// with behavioral novelty. TellNovelty replaces Tell and additionally
// needs one behavior characteristic per population member plus the
// evaluator, which is called once more to score the adapted solution
// for the archive.
type NoveltyStrategy interface {
	Strategy
	TellNovelty(scores []float64, characteristics [][]float64, eval Evaluator) error
}

// PopulationSizeError reports a Tell whose scores do not align with the
// population returned by the last Ask.
type PopulationSizeError struct {
	Want int
	Got  int
}

func (e *PopulationSizeError) Error() string {
	return fmt.Sprintf("inconsistent scores length: want %d, got %d", e.Want, e.Got)
}

func (e *PopulationSizeError) Is(target error) bool {
	_, ok := target.(*PopulationSizeError)
	return ok
}

// newRNG builds the per-strategy generator. All draws of one strategy
// instance come from this single source, so a fixed seed makes a run
// reproducible.
func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// argsortDesc returns indices ordering x from highest to lowest.
func argsortDesc(x []float64) []int {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[order[a]] > x[order[b]]
	})
	return order
}

func cloneVec(x []float64) []float64 {
	return append([]float64(nil), x...)
}
