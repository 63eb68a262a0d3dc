package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore implements the Store interface using filesystem-based
// persistence. Checkpoints live in <baseDir>/runs/<runID>/.
//
// Thread-safety: atomic file operations (rename) only, no locks.
// Multiple goroutines can safely call methods concurrently.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store. The baseDir is
// created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// runDir returns the directory path for a given run ID.
func (fs *FSStore) runDir(runID string) string {
	return filepath.Join(fs.baseDir, "runs", runID)
}

// checkpointPath returns the path to the checkpoint.json file for a run.
func (fs *FSStore) checkpointPath(runID string) string {
	return filepath.Join(fs.runDir(runID), "checkpoint.json")
}

// SaveCheckpoint atomically saves a checkpoint for the given run using
// the temp file + rename pattern.
func (fs *FSStore) SaveCheckpoint(runID string, checkpoint *Checkpoint) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if checkpoint == nil {
		return fmt.Errorf("checkpoint cannot be nil")
	}

	runDir := fs.runDir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	tempPath := fs.checkpointPath(runID) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp checkpoint file: %w", err)
	}

	finalPath := fs.checkpointPath(runID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}

	slog.Debug("Checkpoint saved", "runID", runID, "path", finalPath)
	return nil
}

// LoadCheckpoint retrieves the checkpoint for the given run.
func (fs *FSStore) LoadCheckpoint(runID string) (*Checkpoint, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	path := fs.checkpointPath(runID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}

	slog.Debug("Checkpoint loaded", "runID", runID, "path", path)
	return &checkpoint, nil
}

// ListCheckpoints returns metadata for all available checkpoints.
func (fs *FSStore) ListCheckpoints() ([]CheckpointInfo, error) {
	runsDir := filepath.Join(fs.baseDir, "runs")

	if _, err := os.Stat(runsDir); os.IsNotExist(err) {
		return []CheckpointInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat runs directory: %w", err)
	}

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var infos []CheckpointInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		runID := entry.Name()
		if _, err := os.Stat(fs.checkpointPath(runID)); os.IsNotExist(err) {
			continue // directory without checkpoint.json
		}

		checkpoint, err := fs.LoadCheckpoint(runID)
		if err != nil {
			slog.Warn("Failed to load checkpoint for listing", "runID", runID, "error", err)
			continue // skip corrupted checkpoints
		}
		infos = append(infos, checkpoint.ToInfo())
	}

	slog.Debug("Listed checkpoints", "count", len(infos))
	return infos, nil
}

// DeleteCheckpoint removes the checkpoint and all associated artifacts.
func (fs *FSStore) DeleteCheckpoint(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	runDir := fs.runDir(runID)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Checkpoint deleted", "runID", runID, "path", runDir)
	return nil
}
