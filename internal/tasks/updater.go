package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/services"
	"github.com/desertthunder/spotichart/internal/shared"
	"golang.org/x/time/rate"
)

// UpdaterOptions controls batching, pacing and retries.
type UpdaterOptions struct {
	BatchSize    int           // URIs per write, capped at [services.MaxTracksPerRequest]
	Pacing       time.Duration // minimum interval between writes
	VerifyTracks bool
	Retry        RetryPolicy
}

// UpdaterOptionsFromConfig builds [UpdaterOptions] from the [playlist] and [chart] config sections.
func UpdaterOptionsFromConfig(cfg *shared.Config) UpdaterOptions {
	return UpdaterOptions{
		BatchSize:    cfg.Playlist.BatchSize,
		Pacing:       cfg.Playlist.Pacing.Duration,
		VerifyTracks: cfg.Playlist.VerifyTracks,
		Retry: RetryPolicy{
			MaxRetries: cfg.Playlist.MaxRateLimitRetries,
			BaseDelay:  cfg.Chart.RetryDelay.Duration,
			MaxDelay:   cfg.Chart.MaxRetryDelay.Duration,
		},
	}
}

// Updater applies an [models.UpdatePlan] to a playlist in paced batches.
type Updater struct {
	api      services.PlaylistAPI
	resolver *Resolver
	limiter  *rate.Limiter
	logger   *log.Logger
	opts     UpdaterOptions
}

// NewUpdater creates an Updater.
func NewUpdater(api services.PlaylistAPI, logger *log.Logger, opts UpdaterOptions) *Updater {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.BatchSize <= 0 || opts.BatchSize > services.MaxTracksPerRequest {
		opts.BatchSize = services.MaxTracksPerRequest
	}

	limit := rate.Inf
	if opts.Pacing > 0 {
		limit = rate.Every(opts.Pacing)
	}

	return &Updater{
		api:      api,
		resolver: NewResolver(api, logger, opts.VerifyTracks, opts.Retry),
		limiter:  rate.NewLimiter(limit, 1),
		logger:   shared.WithLogger(logger, "component", "updater"),
		opts:     opts,
	}
}

// Apply resolves the plan's tracks and writes them to the playlist.
//
// Per-track and per-batch failures are recorded in the result and do not produce an error.
// Fatal errors stop the run; the partial result is returned with the error and every track
// that was not submitted is listed as failed.
func (u *Updater) Apply(ctx context.Context, plan *models.UpdatePlan) (*models.BatchResult, error) {
	return u.apply(ctx, plan, nil)
}

func (u *Updater) apply(ctx context.Context, plan *models.UpdatePlan, progress chan<- ProgressUpdate) (*models.BatchResult, error) {
	result := &models.BatchResult{Failed: []models.FailedTrack{}}
	playlistID := plan.Playlist.ID
	logger := shared.WithLogger(u.logger, "playlist", playlistID, "mode", plan.Mode)

	resolved, failed, err := u.resolver.Resolve(ctx, plan.TrackIDs)
	result.Failed = append(result.Failed, failed...)
	if err != nil {
		result.Fail(err, trackIDs(resolved)...)
		return result, fmt.Errorf("failed to resolve tracks: %w", err)
	}

	chunks := chunkTracks(resolved, u.opts.BatchSize)
	replacing := plan.Mode == models.ModeReplace

	if len(chunks) == 0 {
		if !replacing {
			return result, nil
		}
		logger.Info("clearing playlist")
		err := u.opts.Retry.do(ctx, "clear playlist", func() error {
			return u.api.ReplaceTracks(ctx, playlistID, []string{})
		})
		if err != nil {
			return result, fmt.Errorf("failed to clear playlist: %w", err)
		}
		result.Replaced = true
		return result, nil
	}

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			failRemaining(result, chunks[i:], err)
			return result, err
		}
		if err := u.limiter.Wait(ctx); err != nil {
			failRemaining(result, chunks[i:], err)
			return result, err
		}

		sendProgress(progress, chunkUpdate(i+1, len(chunks), len(chunk)))
		uris := trackURIs(chunk)

		var err error
		if replacing {
			err = u.opts.Retry.do(ctx, "replace tracks", func() error {
				return u.api.ReplaceTracks(ctx, playlistID, uris)
			})
		} else {
			err = u.opts.Retry.do(ctx, "add tracks", func() error {
				return u.api.AddTracks(ctx, playlistID, uris)
			})
		}

		if err == nil {
			result.Submitted += len(chunk)
			result.Replaced = result.Replaced || replacing
			replacing = false
			logger.Debug("batch submitted", "batch", i+1, "of", len(chunks), "tracks", len(chunk))
			continue
		}

		sendProgress(progress, chunkFailedUpdate(i+1, len(chunks), err))
		if isFatal(err) {
			logger.Error("stopping after fatal error", "batch", i+1, "error", err)
			failRemaining(result, chunks[i:], err)
			return result, err
		}

		logger.Warn("batch failed", "batch", i+1, "tracks", len(chunk), "error", err)
		result.Fail(err, trackIDs(chunk)...)
	}

	return result, nil
}

func chunkTracks(tracks []models.Track, size int) [][]models.Track {
	var chunks [][]models.Track
	for start := 0; start < len(tracks); start += size {
		chunks = append(chunks, tracks[start:min(start+size, len(tracks))])
	}
	return chunks
}

func failRemaining(result *models.BatchResult, chunks [][]models.Track, err error) {
	for _, chunk := range chunks {
		result.Fail(err, trackIDs(chunk)...)
	}
}
