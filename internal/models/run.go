package models

import (
	"fmt"
	"time"
)

// RunStatus is the terminal state of a recorded run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// Run is a persisted record of one chart-to-playlist run.
type Run struct {
	id         string
	sequence   int
	region     string
	source     string
	playlistID string
	name       string
	mode       UpdateMode
	updated    bool
	submitted  int
	failed     int
	status     RunStatus
	errMsg     string
	createdAt  time.Time
	updatedAt  time.Time
}

// NewRun creates an unsaved run for the given region and playlist name.
func NewRun(region, source, name string, mode UpdateMode) *Run {
	now := time.Now().UTC()
	return &Run{
		region:    region,
		source:    source,
		name:      name,
		mode:      mode,
		status:    RunFailed,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreRun rebuilds a run from stored columns.
func RestoreRun(
	id string, sequence int, region, source, playlistID, name string, mode UpdateMode,
	updated bool, submitted, failed int, status RunStatus, errMsg string, createdAt, updatedAt time.Time,
) *Run {
	return &Run{
		id: id, sequence: sequence, region: region, source: source, playlistID: playlistID,
		name: name, mode: mode, updated: updated, submitted: submitted, failed: failed,
		status: status, errMsg: errMsg, createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (r *Run) ID() string           { return r.id }
func (r *Run) Sequence() int        { return r.sequence }
func (r *Run) Region() string       { return r.region }
func (r *Run) Source() string       { return r.source }
func (r *Run) PlaylistID() string   { return r.playlistID }
func (r *Run) Name() string         { return r.name }
func (r *Run) Mode() UpdateMode     { return r.mode }
func (r *Run) Updated() bool        { return r.updated }
func (r *Run) Submitted() int       { return r.submitted }
func (r *Run) Failed() int          { return r.failed }
func (r *Run) Status() RunStatus    { return r.status }
func (r *Run) Error() string        { return r.errMsg }
func (r *Run) CreatedAt() time.Time { return r.createdAt }
func (r *Run) UpdatedAt() time.Time { return r.updatedAt }

func (r *Run) SetID(id string)     { r.id = id }
func (r *Run) SetSequence(seq int) { r.sequence = seq }

// Complete fills the run from a finished workflow. runErr may be nil.
func (r *Run) Complete(playlist *PlaylistRef, mode UpdateMode, updated bool, result *BatchResult, runErr error) {
	if playlist != nil {
		r.playlistID = playlist.ID
		r.name = playlist.Name
	}
	if mode != "" {
		r.mode = mode
	}
	r.updated = updated
	if result != nil {
		r.submitted = result.Submitted
		r.failed = len(result.Failed)
	}

	switch {
	case runErr != nil:
		r.status = RunFailed
		r.errMsg = runErr.Error()
	case r.failed > 0:
		r.status = RunPartial
	default:
		r.status = RunSucceeded
	}
	r.updatedAt = time.Now().UTC()
}

// Validate checks required fields.
func (r *Run) Validate() error {
	if r.region == "" && r.source == "" {
		return fmt.Errorf("run requires a region or source URL")
	}
	if r.name == "" {
		return fmt.Errorf("run requires a playlist name")
	}
	switch r.status {
	case RunSucceeded, RunPartial, RunFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.status)
	}
	return nil
}
