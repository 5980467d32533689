package tasks

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/services"
	"github.com/desertthunder/spotichart/internal/shared"
)

const trackURIPrefix = "spotify:track:"

var trackIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// NormalizeTrackID accepts a bare track ID, a spotify:track: URI or an open.spotify.com track URL
// and returns the bare ID.
func NormalizeTrackID(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(s, trackURIPrefix):
		s = strings.TrimPrefix(s, trackURIPrefix)
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil || u.Host != "open.spotify.com" {
			return "", &services.ResolutionError{ID: raw, Reason: "not a Spotify track URL"}
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 || parts[len(parts)-2] != "track" {
			return "", &services.ResolutionError{ID: raw, Reason: "not a Spotify track URL"}
		}
		s = parts[len(parts)-1]
	}

	if !trackIDPattern.MatchString(s) {
		return "", &services.ResolutionError{ID: raw, Reason: "malformed track id"}
	}
	return s, nil
}

// Resolver maps chart identifiers onto catalog tracks.
type Resolver struct {
	api    services.PlaylistAPI
	logger *log.Logger
	verify bool
	retry  RetryPolicy
}

// NewResolver creates a Resolver. When verify is set every ID is looked up in the catalog.
func NewResolver(api services.PlaylistAPI, logger *log.Logger, verify bool, retry RetryPolicy) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{
		api:    api,
		logger: shared.WithLogger(logger, "component", "resolver"),
		verify: verify,
		retry:  retry,
	}
}

type pendingTrack struct {
	raw string
	id  string
}

// Resolve returns the playable tracks for ids in input order and the IDs that could not be resolved.
//
// Every input appears in exactly one of the two slices. On a fatal error (authorization, exhausted
// rate limit, cancellation) the unprocessed inputs are reported as failed with that error.
func (r *Resolver) Resolve(ctx context.Context, ids []string) ([]models.Track, []models.FailedTrack, error) {
	resolved := make([]models.Track, 0, len(ids))
	var failed []models.FailedTrack
	var pending []pendingTrack

	for _, raw := range ids {
		id, err := NormalizeTrackID(raw)
		if err != nil {
			failed = append(failed, models.FailedTrack{ID: raw, Err: err})
			continue
		}
		pending = append(pending, pendingTrack{raw: raw, id: id})
	}

	if !r.verify {
		for _, p := range pending {
			resolved = append(resolved, models.Track{ID: p.id, URI: trackURIPrefix + p.id})
		}
		return resolved, failed, nil
	}

	for start := 0; start < len(pending); start += services.MaxLookupIDs {
		group := pending[start:min(start+services.MaxLookupIDs, len(pending))]
		lookup := make([]string, len(group))
		for i, p := range group {
			lookup[i] = p.id
		}

		var tracks []*services.SpotifyTrack
		err := r.retry.do(ctx, "lookup tracks", func() error {
			var err error
			tracks, err = r.api.LookupTracks(ctx, lookup)
			return err
		})
		if err != nil {
			if isFatal(err) {
				for _, p := range pending[start:] {
					failed = append(failed, models.FailedTrack{ID: p.raw, Err: err})
				}
				return resolved, failed, err
			}
			r.logger.Warn("track lookup failed", "count", len(group), "error", err)
			for _, p := range group {
				failed = append(failed, models.FailedTrack{ID: p.raw, Err: err})
			}
			continue
		}

		for i, p := range group {
			if i >= len(tracks) || tracks[i] == nil {
				failed = append(failed, models.FailedTrack{ID: p.raw, Err: &services.ResolutionError{ID: p.raw, Reason: "not found in catalog"}})
				continue
			}
			if tracks[i].IsPlayable != nil && !*tracks[i].IsPlayable {
				failed = append(failed, models.FailedTrack{ID: p.raw, Err: &services.ResolutionError{ID: p.raw, Reason: "not playable"}})
				continue
			}
			track := tracks[i].Model()
			track.ID = p.id
			if track.URI == "" {
				track.URI = trackURIPrefix + p.id
			}
			resolved = append(resolved, track)
		}
	}

	r.logger.Debug("resolved tracks", "resolved", len(resolved), "failed", len(failed))
	return resolved, failed, nil
}

// isFatal reports whether err must stop the run.
func isFatal(err error) bool {
	return errors.Is(err, shared.ErrNotAuthenticated) ||
		errors.Is(err, shared.ErrRateLimited) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func trackURIs(tracks []models.Track) []string {
	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = t.SpotifyURI()
	}
	return uris
}

func trackIDs(tracks []models.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
