package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one invocation of the uploader.
type Run struct {
	ID               string
	Repository       string
	Branch           string
	CommitSHA        string
	CompareCommitSHA string
	EventName        string
	EventKind        string
	MergedBranch     string
	PRNumber         int
	PublishAction    string
	StartedAt        time.Time
	FinishedAt       *time.Time
}

// CreateRun inserts a new run record.
func (d *DB) CreateRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := d.db.Exec(`
		INSERT INTO runs (id, repository, branch, commit_sha, compare_commit_sha, event_name, event_kind, merged_branch, pr_number, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Repository, nullStr(run.Branch), run.CommitSHA, nullStr(run.CompareCommitSHA),
		nullStr(run.EventName), run.EventKind, nullStr(run.MergedBranch), nullInt(run.PRNumber),
		run.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// FinishRun records the publish action and completion time of a run.
func (d *DB) FinishRun(runID, publishAction string) error {
	res, err := d.db.Exec(
		`UPDATE runs SET publish_action = ?, finished_at = ? WHERE id = ?`,
		nullStr(publishAction), time.Now().UTC().Format(time.RFC3339), runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run: run %s not found", runID)
	}
	return nil
}

const runColumns = `id, repository, branch, commit_sha, compare_commit_sha, event_name, event_kind, merged_branch, pr_number, publish_action, started_at, finished_at`

// GetRun retrieves a run by ID.
func (d *DB) GetRun(id string) (*Run, error) {
	row := d.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first. An empty repository
// lists runs for every repository; limit <= 0 means no limit.
func (d *DB) ListRuns(repository string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if repository != "" {
		query += ` WHERE repository = ?`
		args = append(args, repository)
	}
	query += ` ORDER BY started_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var branch, compare, eventName, merged, action, finished sql.NullString
	var prNumber sql.NullInt64
	var startedAt string

	err := s.Scan(&r.ID, &r.Repository, &branch, &r.CommitSHA, &compare, &eventName,
		&r.EventKind, &merged, &prNumber, &action, &startedAt, &finished)
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	r.Branch = branch.String
	r.CompareCommitSHA = compare.String
	r.EventName = eventName.String
	r.MergedBranch = merged.String
	r.PRNumber = int(prNumber.Int64)
	r.PublishAction = action.String
	r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finished.Valid {
		t, _ := time.Parse(time.RFC3339, finished.String)
		r.FinishedAt = &t
	}
	return &r, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}
