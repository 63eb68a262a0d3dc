package store

// Store defines the interface for checkpoint persistence operations.
// Implementations must be thread-safe and handle concurrent access
// gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if a checkpoint doesn't exist (Load/Delete)
//   - Return descriptive errors for I/O, serialization, or validation
//     failures, wrapped with context via fmt.Errorf("context: %w", err)
type Store interface {
	// SaveCheckpoint atomically saves a checkpoint for the given run,
	// overwriting any existing one. Implementations should use atomic
	// write strategies (temp file + rename) so a crash never leaves a
	// corrupt checkpoint behind.
	SaveCheckpoint(runID string, checkpoint *Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for the given run.
	// Returns ErrNotFound if none exists.
	LoadCheckpoint(runID string) (*Checkpoint, error)

	// ListCheckpoints returns metadata for all available checkpoints.
	// The returned slice may be empty.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the checkpoint and all associated
	// artifacts (checkpoint.json, trace.jsonl) for the given run.
	// Returns ErrNotFound if none exists.
	DeleteCheckpoint(runID string) error
}

// ErrNotFound is returned when a requested checkpoint does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing checkpoint error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "checkpoint not found: " + e.RunID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
