package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/shared"
)

const runColumns = `id, sequence, region, source, playlist_id, name, mode, updated, submitted, failed, status, error, created_at, updated_at`

// RunFailure is a stored per-track failure.
type RunFailure struct {
	TrackID string `json:"track_id"`
	Reason  string `json:"reason"`
}

// RunRepository implements models.Repository[*models.Run] for run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run with generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Exec(query,
		id,
		sequence,
		run.Region(),
		run.Source(),
		run.PlaylistID(),
		run.Name(),
		string(run.Mode()),
		run.Updated(),
		run.Submitted(),
		run.Failed(),
		string(run.Status()),
		run.Error(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	run.SetID(id)
	run.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Update stores the outcome fields of an existing run
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE runs
		SET playlist_id = ?, name = ?, mode = ?, updated = ?, submitted = ?, failed = ?, status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		run.PlaylistID(),
		run.Name(),
		string(run.Mode()),
		run.Updated(),
		run.Submitted(),
		run.Failed(),
		string(run.Status()),
		run.Error(),
		run.UpdatedAt(),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, run.ID())
	}
	return nil
}

// Delete removes a run and its failures
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

// List retrieves every run, oldest first
func (r *RunRepository) List() ([]*models.Run, error) {
	return r.query(`SELECT ` + runColumns + ` FROM runs ORDER BY sequence ASC`)
}

// Recent retrieves the latest runs, newest first. A non-positive limit returns all runs.
func (r *RunRepository) Recent(limit int) ([]*models.Run, error) {
	if limit <= 0 {
		return r.query(`SELECT ` + runColumns + ` FROM runs ORDER BY sequence DESC`)
	}
	return r.query(`SELECT `+runColumns+` FROM runs ORDER BY sequence DESC LIMIT ?`, limit)
}

// RecordFailures stores the failed tracks of a run. Repeated track IDs keep the last reason.
func (r *RunRepository) RecordFailures(runID string, failed []models.FailedTrack) error {
	if len(failed) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO run_failures (run_id, track_id, reason) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range failed {
		if _, err := stmt.Exec(runID, f.ID, f.Reason()); err != nil {
			return fmt.Errorf("failed to insert failure for %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failures: %w", err)
	}
	return nil
}

// Failures retrieves the stored failures of a run ordered by track ID
func (r *RunRepository) Failures(runID string) ([]RunFailure, error) {
	rows, err := r.db.Query(`SELECT track_id, reason FROM run_failures WHERE run_id = ? ORDER BY track_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var failures []RunFailure
	for rows.Next() {
		var f RunFailure
		if err := rows.Scan(&f.TrackID, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return failures, nil
}

func (r *RunRepository) query(query string, args ...any) ([]*models.Run, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a row from [sql.Row] or [sql.Rows] into a [models.Run]
func scanRun(s scanner) (*models.Run, error) {
	var (
		id, region, source, playlistID, name, mode, status, errMsg string
		sequence, submitted, failed                                  int
		updated                                                      bool
		createdAt, updatedAt                                         time.Time
	)

	err := s.Scan(&id, &sequence, &region, &source, &playlistID, &name, &mode, &updated, &submitted, &failed, &status, &errMsg, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return models.RestoreRun(id, sequence, region, source, playlistID, name, models.UpdateMode(mode),
		updated, submitted, failed, models.RunStatus(status), errMsg, createdAt, updatedAt), nil
}
