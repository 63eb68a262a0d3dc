package store

import (
	"testing"
	"time"
)

func TestCheckpointValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Checkpoint)
		valid  bool
	}{
		{"valid", func(c *Checkpoint) {}, true},
		{"empty run id", func(c *Checkpoint) { c.RunID = "" }, false},
		{"negative iteration", func(c *Checkpoint) { c.Iteration = -1 }, false},
		{"zero timestamp", func(c *Checkpoint) { c.Timestamp = time.Time{} }, false},
		{"empty strategy", func(c *Checkpoint) { c.Config.Strategy = "" }, false},
		{"zero params", func(c *Checkpoint) { c.Config.NumParams = 0 }, false},
		{"zero popsize", func(c *Checkpoint) { c.Config.PopSize = 0 }, false},
		{"params length mismatch", func(c *Checkpoint) { c.BestParams = []float64{1} }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cp := testCheckpoint("run-1")
			tc.mutate(cp)
			err := cp.Validate()
			if tc.valid && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
			if !tc.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCheckpointIsCompatible(t *testing.T) {
	cp := testCheckpoint("run-1")

	ok := cp.Config
	if err := cp.IsCompatible(ok); err != nil {
		t.Errorf("identical config reported incompatible: %v", err)
	}

	badStrategy := cp.Config
	badStrategy.Strategy = "pepg"
	if err := cp.IsCompatible(badStrategy); err == nil {
		t.Error("expected strategy mismatch error")
	}

	badObjective := cp.Config
	badObjective.Objective = "rastrigin"
	if err := cp.IsCompatible(badObjective); err == nil {
		t.Error("expected objective mismatch error")
	}

	badDims := cp.Config
	badDims.NumParams = 99
	if err := cp.IsCompatible(badDims); err == nil {
		t.Error("expected dimension mismatch error")
	}

	// Population size and seed may differ between the checkpointed run
	// and the resuming run.
	relaxed := cp.Config
	relaxed.PopSize = 512
	relaxed.Seed = 999
	if err := cp.IsCompatible(relaxed); err != nil {
		t.Errorf("popsize/seed change reported incompatible: %v", err)
	}
}

func TestCheckpointToInfo(t *testing.T) {
	cp := testCheckpoint("run-1")
	info := cp.ToInfo()

	if info.RunID != cp.RunID {
		t.Errorf("runID = %q, want %q", info.RunID, cp.RunID)
	}
	if info.Strategy != cp.Config.Strategy {
		t.Errorf("strategy = %q, want %q", info.Strategy, cp.Config.Strategy)
	}
	if info.Objective != cp.Config.Objective {
		t.Errorf("objective = %q, want %q", info.Objective, cp.Config.Objective)
	}
	if info.Iteration != cp.Iteration || info.BestReward != cp.BestReward {
		t.Errorf("info = %+v does not match checkpoint", info)
	}
}
