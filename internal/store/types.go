package store

import (
	"fmt"
	"time"
)

// RunConfig holds the settings of an optimization run (checkpoint
// copy). Kept as its own type so the store does not depend on the
// config package.
type RunConfig struct {
	Strategy           string `json:"strategy"`
	Objective          string `json:"objective"`
	NumParams          int    `json:"numParams"`
	PopSize            int    `json:"popSize"`
	Iterations         int    `json:"iterations"`
	Seed               int64  `json:"seed"`
	CheckpointInterval int    `json:"checkpointInterval,omitempty"` // checkpoint every N iterations (0 = disabled)
}

// Checkpoint is a saved snapshot of an optimization run.
//
// It carries the best solution found so far, not the full optimizer
// internals (noise tables, moment estimates, covariance). Resuming
// restarts the strategy fresh and reseeds its mean from BestParams, so
// a resumed run diverges from an uninterrupted one but never loses the
// best solution. Serializing full optimizer state would tie the format
// to every strategy's internals for little gain.
type Checkpoint struct {
	// RunID identifies the optimization run this snapshot belongs to.
	RunID string `json:"runId"`

	// BestParams is the best parameter vector seen so far.
	BestParams []float64 `json:"bestParams"`

	// BestReward is the fitness achieved by BestParams.
	BestReward float64 `json:"bestReward"`

	// CurrBestReward is the best fitness of the checkpointed iteration.
	CurrBestReward float64 `json:"currBestReward"`

	// Sigma is the strategy's exploration spread at checkpoint time
	// (one element for scalar-sigma strategies).
	Sigma []float64 `json:"sigma,omitempty"`

	// Iteration is the number of completed ask/tell iterations.
	Iteration int `json:"iteration"`

	// Timestamp records when the checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Config holds the run settings, used to validate resume requests.
	Config RunConfig `json:"config"`
}

// CheckpointInfo is the metadata subset returned by listings.
type CheckpointInfo struct {
	RunID      string    `json:"runId"`
	Strategy   string    `json:"strategy"`
	Objective  string    `json:"objective"`
	Iteration  int       `json:"iteration"`
	BestReward float64   `json:"bestReward"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToInfo extracts listing metadata from a checkpoint.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		RunID:      c.RunID,
		Strategy:   c.Config.Strategy,
		Objective:  c.Config.Objective,
		Iteration:  c.Iteration,
		BestReward: c.BestReward,
		Timestamp:  c.Timestamp,
	}
}

// Validate checks internal consistency before a checkpoint is saved or
// used for resumption.
func (c *Checkpoint) Validate() error {
	if c.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if c.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.Strategy == "" {
		return &ValidationError{Field: "Config.Strategy", Reason: "cannot be empty"}
	}
	if c.Config.NumParams <= 0 {
		return &ValidationError{Field: "Config.NumParams", Reason: "must be positive"}
	}
	if c.Config.PopSize <= 0 {
		return &ValidationError{Field: "Config.PopSize", Reason: "must be positive"}
	}
	if len(c.BestParams) != c.Config.NumParams {
		return &ValidationError{
			Field:  "BestParams",
			Reason: fmt.Sprintf("length mismatch: expected %d params, got %d", c.Config.NumParams, len(c.BestParams)),
		}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether this checkpoint can seed a run with the
// given config.
func (c *Checkpoint) IsCompatible(config RunConfig) error {
	if c.Config.Strategy != config.Strategy {
		return &CompatibilityError{Field: "Strategy", Expected: c.Config.Strategy, Actual: config.Strategy}
	}
	if c.Config.Objective != config.Objective {
		return &CompatibilityError{Field: "Objective", Expected: c.Config.Objective, Actual: config.Objective}
	}
	if c.Config.NumParams != config.NumParams {
		return &CompatibilityError{
			Field:    "NumParams",
			Expected: fmt.Sprintf("%d", c.Config.NumParams),
			Actual:   fmt.Sprintf("%d", config.NumParams),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
