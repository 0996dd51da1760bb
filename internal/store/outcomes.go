package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jacklau/webshot/internal/outcome"
)

// OutcomeRecord is a stored per-file outcome.
type OutcomeRecord struct {
	ID        int64
	RunID     string
	Path      string
	ImageID   string
	Status    outcome.Status
	Tags      []string
	DiffCount int
	Error     string
	CreatedAt time.Time
}

// RecordOutcomes inserts all outcomes of a run in one transaction.
func (d *DB) RecordOutcomes(runID string, outcomes []outcome.Outcome) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning outcome transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO outcomes (run_id, path, image_id, status, tags, diff_count, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		var created sql.NullString
		if !o.CreatedAt.IsZero() {
			created = sql.NullString{String: o.CreatedAt.UTC().Format(time.RFC3339), Valid: true}
		}
		_, err := stmt.Exec(runID, o.Path, nullStr(o.ImageID), string(o.Status),
			nullStr(strings.Join(o.Tags, ",")), o.DiffCount, nullStr(o.Error), created)
		if err != nil {
			return fmt.Errorf("recording outcome %s: %w", o.Path, err)
		}
	}

	return tx.Commit()
}

// GetOutcomes returns the outcomes of a run in insertion order.
func (d *DB) GetOutcomes(runID string) ([]OutcomeRecord, error) {
	rows, err := d.db.Query(`
		SELECT id, run_id, path, image_id, status, tags, diff_count, error, created_at
		FROM outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRecord
	for rows.Next() {
		var r OutcomeRecord
		var imageID, tags, errText, created sql.NullString
		var status string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Path, &imageID, &status, &tags, &r.DiffCount, &errText, &created); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		r.ImageID = imageID.String
		r.Status = outcome.Status(status)
		if tags.String != "" {
			r.Tags = strings.Split(tags.String, ",")
		}
		r.Error = errText.String
		if created.Valid {
			r.CreatedAt, _ = time.Parse(time.RFC3339, created.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
