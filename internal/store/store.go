package store

import "github.com/jacklau/webshot/internal/outcome"

// Store defines the history operations used by the pipeline.
// It is satisfied by *DB and can be replaced with a mock for testing.
type Store interface {
	// CreateRun inserts a run, assigning an ID when it has none.
	CreateRun(run *Run) error

	// RecordOutcomes stores the classified outcomes of a run.
	RecordOutcomes(runID string, outcomes []outcome.Outcome) error

	// FinishRun marks a run complete with the publish action taken.
	FinishRun(runID, publishAction string) error
}

// Compile-time check that *DB satisfies the Store interface.
var _ Store = (*DB)(nil)
