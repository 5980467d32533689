package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the common interface for persisted entities.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository defines the persistence contract for a [Model] type.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List() ([]T, error)
}

// Track is a single chart entry or catalog item.
//
// ID is the only field required for correctness; the rest is display metadata.
type Track struct {
	ID       string `json:"id"`
	URI      string `json:"uri,omitempty"`
	Name     string `json:"name,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Position int    `json:"position,omitempty"`
}

// SpotifyURI returns the track URI, deriving it from the ID when unset.
func (t Track) SpotifyURI() string {
	if t.URI != "" {
		return t.URI
	}
	return "spotify:track:" + t.ID
}

// ChartSnapshot is the ordered result of one scrape, capped at the requested limit.
type ChartSnapshot struct {
	Region    string    `json:"region"`
	Source    string    `json:"source"`
	Tracks    []Track   `json:"tracks"`
	FetchedAt time.Time `json:"fetched_at"`
}

// IDs returns the snapshot's track IDs in rank order.
func (s *ChartSnapshot) IDs() []string {
	ids := make([]string, 0, len(s.Tracks))
	for _, t := range s.Tracks {
		ids = append(ids, t.ID)
	}
	return ids
}

// PlaylistRef is a handle to a playlist owned by the authenticated user.
type PlaylistRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OwnerID    string `json:"owner_id"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
	URL        string `json:"url,omitempty"`
}

// UpdateMode selects how a plan is applied to its playlist.
type UpdateMode string

const (
	ModeReplace   UpdateMode = "replace"
	ModeAppend    UpdateMode = "append"
	ModeCreateNew UpdateMode = "create-new"
	// ModeNew forces a fresh playlist even when one with the same name exists.
	ModeNew UpdateMode = "new"
)

// ParseUpdateMode maps user input onto an [UpdateMode].
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch m := UpdateMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeReplace, ModeAppend, ModeNew, ModeCreateNew:
		return m, nil
	case "":
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("unknown update mode %q (want replace, append or new)", s)
	}
}

// UpdatePlan is the computed set of writes for one run.
type UpdatePlan struct {
	Playlist PlaylistRef `json:"playlist"`
	Mode     UpdateMode  `json:"mode"`
	TrackIDs []string    `json:"track_ids"`
	Skipped  []string    `json:"skipped,omitempty"` // already present when appending
}

// FailedTrack records why a single track was not added.
type FailedTrack struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// Reason returns the failure cause as text.
func (f FailedTrack) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// BatchResult is the outcome of applying an [UpdatePlan].
//
// Submitted + len(Failed) always equals the number of IDs in the plan.
type BatchResult struct {
	Submitted int           `json:"submitted"`
	Failed    []FailedTrack `json:"failed"`

	// Replaced is set once a replace-mode write reached the playlist.
	Replaced bool `json:"-"`
}

// FailedIDs returns the IDs of failed tracks in the order they failed.
func (r *BatchResult) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.ID)
	}
	return ids
}

// Total is the number of tracks accounted for.
func (r *BatchResult) Total() int {
	return r.Submitted + len(r.Failed)
}

// Fail records ids as failed with the same cause.
func (r *BatchResult) Fail(err error, ids ...string) {
	for _, id := range ids {
		r.Failed = append(r.Failed, FailedTrack{ID: id, Err: err})
	}
}

// Dedupe removes repeated IDs, keeping the first occurrence and its rank.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Difference returns ids not present in existing, preserving order.
func Difference(ids, existing []string) (kept, skipped []string) {
	have := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		have[id] = struct{}{}
	}
	kept = make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := have[id]; ok {
			skipped = append(skipped, id)
			continue
		}
		kept = append(kept, id)
	}
	return kept, skipped
}
