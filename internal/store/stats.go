package store

import (
	"fmt"

	"github.com/jacklau/webshot/internal/outcome"
)

// RunStats holds per-status outcome counts for a single run.
type RunStats struct {
	Run    Run
	Counts map[outcome.Status]int
	Total  int
}

// GetRunStats returns outcome counts for a single run.
func (d *DB) GetRunStats(runID string) (*RunStats, error) {
	run, err := d.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	stats := &RunStats{Run: *run, Counts: make(map[outcome.Status]int)}

	rows, err := d.db.Query(
		`SELECT status, COUNT(*) FROM outcomes WHERE run_id = ? GROUP BY status`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("counting outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning outcome count: %w", err)
		}
		stats.Counts[outcome.Status(status)] = n
		stats.Total += n
	}
	return stats, rows.Err()
}

// ListRunStats returns statistics for the most recent runs, newest first.
func (d *DB) ListRunStats(repository string, limit int) ([]RunStats, error) {
	runs, err := d.ListRuns(repository, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	var results []RunStats
	for _, run := range runs {
		stats, err := d.GetRunStats(run.ID)
		if err != nil {
			return nil, fmt.Errorf("getting stats for run %s: %w", run.ID, err)
		}
		results = append(results, *stats)
	}

	return results, nil
}
