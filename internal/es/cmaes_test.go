package es

import (
	"errors"
	"testing"
)

func testCMAESConfig(numParams, popSize int) CMAESConfig {
	cfg := DefaultCMAESConfig(numParams)
	cfg.PopSize = popSize
	cfg.Seed = 3
	return cfg
}

func TestCMAESRejectsBadDimensions(t *testing.T) {
	cfg := testCMAESConfig(0, 8)
	if _, err := NewCMAES(cfg); err == nil {
		t.Error("expected error for zero params")
	}
	cfg = testCMAESConfig(3, 1)
	if _, err := NewCMAES(cfg); err == nil {
		t.Error("expected error for population size below 2")
	}
}

func TestCMAESAskShape(t *testing.T) {
	c, err := NewCMAES(testCMAESConfig(4, 8))
	if err != nil {
		t.Fatalf("NewCMAES: %v", err)
	}

	pop, err := c.Ask()
	if err != nil {
		t.Fatal(err)
	}
	if len(pop) != 8 {
		t.Fatalf("population size = %d, want 8", len(pop))
	}
	for i, sol := range pop {
		if len(sol) != 4 {
			t.Errorf("solution %d has %d params, want 4", i, len(sol))
		}
	}
}

func TestCMAESTellLengthMismatch(t *testing.T) {
	c, err := NewCMAES(testCMAESConfig(3, 8))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Ask(); err != nil {
		t.Fatal(err)
	}
	err = c.Tell([]float64{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for mismatched scores length")
	}
	if !errors.Is(err, &PopulationSizeError{}) {
		t.Errorf("error %v is not a PopulationSizeError", err)
	}
}

func TestCMAESBestTracking(t *testing.T) {
	cfg := testCMAESConfig(3, 6)
	cfg.WeightDecay = 0
	c, err := NewCMAES(cfg)
	if err != nil {
		t.Fatal(err)
	}

	pop, err := c.Ask()
	if err != nil {
		t.Fatal(err)
	}
	scores := []float64{1, 6, 3, 2, 5, 4}
	if err := c.Tell(scores); err != nil {
		t.Fatal(err)
	}

	res := c.Result()
	if res.BestReward != 6 {
		t.Fatalf("best reward = %g, want 6", res.BestReward)
	}
	for j := range res.BestParams {
		if res.BestParams[j] != pop[1][j] {
			t.Fatalf("best params = %v, want member 1 %v", res.BestParams, pop[1])
		}
	}

	// A worse generation must not displace the all-time best.
	if _, err := c.Ask(); err != nil {
		t.Fatal(err)
	}
	if err := c.Tell([]float64{0, 1, 2, 0, 1, 2}); err != nil {
		t.Fatal(err)
	}
	res = c.Result()
	if res.BestReward != 6 {
		t.Errorf("best reward = %g after a worse generation, want 6", res.BestReward)
	}
	if res.CurrBestReward != 2 {
		t.Errorf("current best reward = %g, want 2", res.CurrBestReward)
	}
}

func TestCMAESRunsSeveralGenerations(t *testing.T) {
	c, err := NewCMAES(testCMAESConfig(2, 8))
	if err != nil {
		t.Fatal(err)
	}

	for iter := 0; iter < 5; iter++ {
		pop, err := c.Ask()
		if err != nil {
			t.Fatalf("Ask at iteration %d: %v", iter, err)
		}
		scores := make([]float64, len(pop))
		for i, sol := range pop {
			scores[i] = -(sol[0]*sol[0] + sol[1]*sol[1])
		}
		if err := c.Tell(scores); err != nil {
			t.Fatalf("Tell at iteration %d: %v", iter, err)
		}
	}

	if len(c.Result().BestParams) != 2 {
		t.Errorf("best params have %d dims, want 2", len(c.Result().BestParams))
	}
}
