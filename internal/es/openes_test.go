package es

import (
	"errors"
	"math"
	"testing"
)

func testOpenESConfig(numParams, popSize int) OpenESConfig {
	cfg := DefaultOpenESConfig(numParams)
	cfg.PopSize = popSize
	cfg.Seed = 7
	return cfg
}

func TestOpenESAskShape(t *testing.T) {
	cfg := testOpenESConfig(5, 8)
	s, err := NewOpenES(cfg)
	if err != nil {
		t.Fatalf("NewOpenES: %v", err)
	}

	pop, err := s.Ask()
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(pop) != 8 {
		t.Fatalf("population size = %d, want 8", len(pop))
	}
	for i, sol := range pop {
		if len(sol) != 5 {
			t.Errorf("solution %d has %d params, want 5", i, len(sol))
		}
	}
}

func TestOpenESAntitheticMirrors(t *testing.T) {
	cfg := testOpenESConfig(4, 6)
	cfg.Antithetic = true
	s, err := NewOpenES(cfg)
	if err != nil {
		t.Fatal(err)
	}

	pop, err := s.Ask()
	if err != nil {
		t.Fatal(err)
	}

	// mu starts at zero, so mirrored pairs are exact negations.
	half := len(pop) / 2
	for i := 0; i < half; i++ {
		for j := range pop[i] {
			if math.Abs(pop[i][j]+pop[half+i][j]) > 1e-12 {
				t.Fatalf("members %d and %d are not mirrored at dim %d", i, half+i, j)
			}
		}
	}
}

func TestOpenESAntitheticRequiresEvenPopSize(t *testing.T) {
	cfg := testOpenESConfig(3, 5)
	cfg.Antithetic = true
	if _, err := NewOpenES(cfg); err == nil {
		t.Error("expected error for odd population with antithetic sampling")
	}
}

func TestOpenESTellLengthMismatch(t *testing.T) {
	s, err := NewOpenES(testOpenESConfig(3, 8))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Ask(); err != nil {
		t.Fatal(err)
	}

	err = s.Tell([]float64{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for mismatched scores length")
	}
	if !errors.Is(err, &PopulationSizeError{}) {
		t.Errorf("error %v is not a PopulationSizeError", err)
	}
}

func TestOpenESDeterministicUnderSeed(t *testing.T) {
	run := func() []float64 {
		cfg := testOpenESConfig(6, 10)
		cfg.Antithetic = false
		s, err := NewOpenES(cfg)
		if err != nil {
			t.Fatal(err)
		}
		for iter := 0; iter < 3; iter++ {
			pop, err := s.Ask()
			if err != nil {
				t.Fatal(err)
			}
			scores := make([]float64, len(pop))
			for i, sol := range pop {
				var sum float64
				for _, v := range sol {
					sum -= v * v
				}
				scores[i] = sum
			}
			if err := s.Tell(scores); err != nil {
				t.Fatal(err)
			}
		}
		return s.Result().BestParams
	}

	a := run()
	b := run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different runs: %v vs %v", a, b)
		}
	}
}

func TestOpenESMeanMovesTowardBetterScores(t *testing.T) {
	cfg := OpenESConfig{
		NumParams:         3,
		Step:              StepConfig{Kind: StepSGD, Stepsize: 0.1},
		SigmaInit:         0.1,
		SigmaDecay:        0.999,
		SigmaLimit:        0.01,
		LearningRate:      0.1,
		LearningRateDecay: 1.0,
		LearningRateLimit: 0.001,
		PopSize:           4,
		Antithetic:        true,
		WeightDecay:       0,
		RankFitness:       true,
		Seed:              11,
	}
	s, err := NewOpenES(cfg)
	if err != nil {
		t.Fatal(err)
	}

	pop, err := s.Ask()
	if err != nil {
		t.Fatal(err)
	}

	// Reward each member by its first coordinate. The pseudo-gradient is
	// the covariance of centered ranks with the noise, so the first
	// coordinate of the mean must strictly increase.
	scores := make([]float64, len(pop))
	for i, sol := range pop {
		scores[i] = sol[0]
	}
	if err := s.Tell(scores); err != nil {
		t.Fatal(err)
	}

	mean := cloneVec(s.mu)
	if mean[0] <= 0 {
		t.Errorf("mean[0] = %g after rewarding the first coordinate, want > 0", mean[0])
	}

	wantSigma := cfg.SigmaInit * cfg.SigmaDecay
	if math.Abs(s.Result().Sigma[0]-wantSigma) > 1e-15 {
		t.Errorf("sigma = %g after one iteration, want %g", s.Result().Sigma[0], wantSigma)
	}
}

func TestOpenESSigmaNeverDecaysPastLimit(t *testing.T) {
	cfg := testOpenESConfig(2, 4)
	cfg.Antithetic = false
	cfg.SigmaInit = 0.02
	cfg.SigmaDecay = 0.5
	cfg.SigmaLimit = 0.01
	s, err := NewOpenES(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for iter := 0; iter < 50; iter++ {
		pop, err := s.Ask()
		if err != nil {
			t.Fatal(err)
		}
		scores := make([]float64, len(pop))
		for i := range scores {
			scores[i] = float64(i)
		}
		if err := s.Tell(scores); err != nil {
			t.Fatal(err)
		}
	}

	// Decay only fires while sigma is above the limit, so the floor is
	// one decay step below it at worst.
	floor := cfg.SigmaLimit * cfg.SigmaDecay
	if got := s.Result().Sigma[0]; got < floor-1e-15 {
		t.Errorf("sigma = %g, decayed past floor %g", got, floor)
	}
}

func TestOpenESBestTrackingWithoutForget(t *testing.T) {
	cfg := testOpenESConfig(2, 4)
	cfg.RankFitness = false
	cfg.ForgetBest = false
	cfg.WeightDecay = 0
	s, err := NewOpenES(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Ask(); err != nil {
		t.Fatal(err)
	}
	if err := s.Tell([]float64{1, 5, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if got := s.Result().BestReward; got != 5 {
		t.Fatalf("best reward = %g after first tell, want 5", got)
	}

	if _, err := s.Ask(); err != nil {
		t.Fatal(err)
	}
	if err := s.Tell([]float64{0, 3, 1, 2}); err != nil {
		t.Fatal(err)
	}

	res := s.Result()
	if res.BestReward != 5 {
		t.Errorf("best reward = %g, want historical 5", res.BestReward)
	}
	if res.CurrBestReward != 3 {
		t.Errorf("current best reward = %g, want 3", res.CurrBestReward)
	}
}

func TestOpenESSetMean(t *testing.T) {
	s, err := NewOpenES(testOpenESConfig(3, 4))
	if err != nil {
		t.Fatal(err)
	}
	s.SetMean([]float64{1, 2, 3})

	pop, err := s.Ask()
	if err != nil {
		t.Fatal(err)
	}
	// Each candidate is mean + sigma*eps with sigma 0.1, so it stays in
	// a tight band around the new mean.
	for _, sol := range pop {
		for j, want := range []float64{1, 2, 3} {
			if math.Abs(sol[j]-want) > 1.0 {
				t.Fatalf("candidate %v far from mean after SetMean", sol)
			}
		}
	}
}
