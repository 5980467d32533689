// package tasks implements the chart-to-playlist reconciliation workflow.
//
// The core abstraction is [Workflow], which scrapes a chart, finds or creates the target playlist,
// plans the writes and applies them in batches.
// Runs emit progress updates via channels for non-blocking status reporting to the CLI.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotichart/internal/chart"
	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/services"
	"github.com/desertthunder/spotichart/internal/shared"
)

// Request describes one run.
type Request struct {
	Region      string            // Region key; ignored for the URL when URL is set
	URL         string            // Explicit chart URL
	Limit       int               // Maximum chart entries
	Name        string            // Playlist name; defaults to "Top N - Region (Kworb)"
	Description string            // Playlist description; defaults to "Top N from Kworb Region charts"
	Public      bool              // Visibility for newly created playlists
	Mode        models.UpdateMode // replace, append or new
}

// Report contains everything a run produced.
type Report struct {
	Playlist *models.PlaylistRef   `json:"playlist"`
	Result   *models.BatchResult   `json:"result"`
	Plan     *models.UpdatePlan    `json:"plan"`
	Updated  bool                  `json:"updated"` // true when an existing playlist was modified
	Snapshot *models.ChartSnapshot `json:"snapshot"`
}

// WorkflowOptions configures a [Workflow].
type WorkflowOptions struct {
	Regions  chart.Regions
	CacheTTL time.Duration
	Updater  UpdaterOptions
}

// WorkflowOptionsFromConfig builds [WorkflowOptions] from cfg.
func WorkflowOptionsFromConfig(cfg *shared.Config) WorkflowOptions {
	return WorkflowOptions{
		Regions:  chart.Regions(cfg.Chart.Regions),
		CacheTTL: cfg.Playlist.CacheTTL.Duration,
		Updater:  UpdaterOptionsFromConfig(cfg),
	}
}

// Workflow reconciles a chart with a playlist.
type Workflow struct {
	getter  chart.Getter
	api     services.PlaylistAPI
	regions chart.Regions
	locator *Locator
	updater *Updater
	logger  *log.Logger
}

// NewWorkflow creates a Workflow that scrapes with getter and writes through api.
func NewWorkflow(getter chart.Getter, api services.PlaylistAPI, logger *log.Logger, opts WorkflowOptions) *Workflow {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Workflow{
		getter:  getter,
		api:     api,
		regions: opts.Regions,
		locator: NewLocator(api, logger, opts.CacheTTL),
		updater: NewUpdater(api, logger, opts.Updater),
		logger:  shared.WithLogger(logger, "component", "workflow"),
	}
}

// Locator returns the workflow's playlist locator.
func (w *Workflow) Locator() *Locator {
	return w.locator
}

// Run scrapes the chart and creates or updates the playlist.
//
// Scrape and locate failures are returned before anything is written. Once writing has started the
// report is returned alongside any fatal error; applied batches are not rolled back.
func (w *Workflow) Run(ctx context.Context, req Request, progress chan<- ProgressUpdate) (*Report, error) {
	if w.getter == nil {
		return nil, fmt.Errorf("%w: chart fetcher not initialized", shared.ErrServiceUnavailable)
	}
	if w.api == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	req, source, err := w.normalize(req)
	if err != nil {
		return nil, err
	}
	logger := shared.WithLogger(w.logger, "region", req.Region, "playlist", req.Name)

	sendProgress(progress, scrapeUpdate(source))
	snapshot, err := chart.Scrape(ctx, w.getter, source, req.Region, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape chart: %w", err)
	}
	sendProgress(progress, scrapedUpdate(snapshot))

	raw := snapshot.IDs()
	ids := models.Dedupe(raw)
	sendProgress(progress, dedupeUpdate(len(raw), len(ids)))
	logger.Info("chart scraped", "entries", len(raw), "unique", len(ids))

	sendProgress(progress, locateUpdate(req.Name))
	user, err := w.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	var playlist *models.PlaylistRef
	forceNew := req.Mode == models.ModeNew || req.Mode == models.ModeCreateNew
	if !forceNew {
		playlist, err = w.locator.FindByName(ctx, user.ID, req.Name)
		if err != nil {
			return nil, err
		}
	}

	mode := req.Mode
	updated := playlist != nil
	var existing []string

	if playlist == nil {
		playlist, err = w.api.CreatePlaylist(ctx, user.ID, req.Name, req.Description, req.Public)
		if err != nil {
			return nil, fmt.Errorf("failed to create playlist: %w", err)
		}
		w.locator.Remember(*playlist)
		mode = models.ModeCreateNew
		sendProgress(progress, createdPlaylistUpdate(playlist))
		logger.Info("playlist created", "id", playlist.ID)
	} else {
		sendProgress(progress, foundPlaylistUpdate(playlist))
		logger.Info("playlist found", "id", playlist.ID, "mode", mode)
		if mode == models.ModeAppend {
			existing, err = w.api.PlaylistTrackIDs(ctx, playlist.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to read playlist tracks: %w", err)
			}
		}
	}

	kept, skipped := models.Difference(ids, existing)
	plan := &models.UpdatePlan{Playlist: *playlist, Mode: mode, TrackIDs: kept, Skipped: skipped}
	sendProgress(progress, planUpdate(plan))

	report := &Report{Playlist: playlist, Plan: plan, Updated: updated, Snapshot: snapshot}

	result, err := w.updater.apply(ctx, plan, progress)
	report.Result = result
	gone := playlistGone(result, err)
	if gone {
		logger.Warn("playlist disappeared during update", "id", playlist.ID)
		w.locator.Forget(playlist.Name)
	}
	if err != nil {
		return report, err
	}

	if updated && !gone && req.Description != "" {
		if err := w.api.UpdateDetails(ctx, playlist.ID, "", req.Description); err != nil {
			logger.Warn("failed to update playlist description", "error", err)
		}
	}

	switch {
	case mode == models.ModeAppend:
		playlist.TrackCount = len(existing) + result.Submitted
	case mode == models.ModeReplace && !result.Replaced:
		// every batch failed, so the old tracks are still there
	default:
		playlist.TrackCount = result.Submitted
	}
	if !gone {
		w.locator.Remember(*playlist)
	}

	sendProgress(progress, reportUpdate(result))
	logger.Info("run complete", "submitted", result.Submitted, "failed", len(result.Failed))
	return report, nil
}

// playlistGone reports whether a write found the playlist deleted.
func playlistGone(result *models.BatchResult, err error) bool {
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		return true
	}
	if result == nil {
		return false
	}
	for _, f := range result.Failed {
		if errors.Is(f.Err, shared.ErrPlaylistNotFound) {
			return true
		}
	}
	return false
}

// normalize fills request defaults and resolves the chart URL.
func (w *Workflow) normalize(req Request) (Request, string, error) {
	if req.Limit < 0 {
		return req, "", fmt.Errorf("%w: limit must be >= 0, got %d", shared.ErrInvalidArgument, req.Limit)
	}
	if req.Mode == "" {
		req.Mode = models.ModeReplace
	}

	source := req.URL
	if source == "" {
		if req.Region == "" {
			return req, "", fmt.Errorf("%w: region or url is required", shared.ErrMissingArgument)
		}
		u, err := w.regions.URL(req.Region)
		if err != nil {
			return req, "", err
		}
		source = u
	}
	if req.Region == "" {
		req.Region = "custom"
	}

	if req.Name == "" {
		req.Name = chart.DefaultPlaylistName(req.Region, req.Limit)
	}
	if req.Description == "" {
		req.Description = chart.DefaultDescription(req.Region, req.Limit)
	}
	return req, source, nil
}
