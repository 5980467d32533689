package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotichart/internal/chart"
	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/repositories"
	"github.com/desertthunder/spotichart/internal/services"
	"github.com/desertthunder/spotichart/internal/shared"
	"github.com/desertthunder/spotichart/internal/tasks"
	"github.com/desertthunder/spotichart/internal/ui"
	"github.com/urfave/cli/v3"
)

// Create scrapes a chart and creates, replaces or appends to the matching playlist.
//
// Progress is printed as the workflow runs unless --json is set. The run is recorded in the history
// database when one is configured; failing to record only logs a warning. A retry after
// reauthorization reuses the workflow and resumes into the playlist the first attempt wrote to.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	req, err := r.createRequest(cmd)
	if err != nil {
		return err
	}
	useJSON := cmd.Bool("json")

	r.logger.Info("creating playlist from chart", "region", req.Region, "url", req.URL, "limit", req.Limit, "mode", req.Mode)

	var (
		workflow *tasks.Workflow
		report   *tasks.Report
	)
	runErr := r.withReauth(ctx, func(api services.PlaylistAPI) error {
		if workflow == nil {
			workflow = tasks.NewWorkflow(r.fetcher(), api, r.logger, tasks.WorkflowOptionsFromConfig(r.config))
		} else if report != nil && report.Playlist != nil {
			req = resumeRequest(req, workflow.Locator(), report.Playlist)
			r.logger.Info("resuming into playlist", "id", report.Playlist.ID, "mode", req.Mode)
		}

		var progress chan tasks.ProgressUpdate
		var done <-chan struct{}
		if !useJSON {
			progress = make(chan tasks.ProgressUpdate, 64)
			done = ui.Progress(r.output, r.painter, progress)
		}

		var err error
		report, err = workflow.Run(ctx, req, progress)

		if progress != nil {
			close(progress)
			<-done
		}
		return err
	})

	r.recordRun(ctx, req, report, runErr)

	if report == nil {
		return runErr
	}

	if useJSON {
		if err := r.writeJSON(report, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else {
		r.writePlainln("%s", ui.RenderReport(r.painter, report))
	}
	return runErr
}

// createRequest maps flags onto a [tasks.Request], falling back to config defaults.
func (r *Runner) createRequest(cmd *cli.Command) (tasks.Request, error) {
	mode, err := models.ParseUpdateMode(cmd.String("update-mode"))
	if err != nil {
		return tasks.Request{}, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	req := tasks.Request{
		Region:      cmd.String("region"),
		URL:         cmd.String("url"),
		Limit:       r.config.Chart.Limit,
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		Public:      r.config.Playlist.Public,
		Mode:        mode,
	}
	if cmd.IsSet("limit") {
		req.Limit = cmd.Int("limit")
	}
	if cmd.IsSet("public") {
		req.Public = cmd.Bool("public")
	}
	if req.Region == "" && req.URL == "" {
		req.Region = r.config.Chart.DefaultRegion
	}
	return req, nil
}

// resumeRequest points req at the playlist an interrupted attempt already wrote to, so a retry
// never creates a second one.
func resumeRequest(req tasks.Request, locator *tasks.Locator, playlist *models.PlaylistRef) tasks.Request {
	locator.Remember(*playlist)
	req.Name = playlist.Name
	if req.Mode == models.ModeNew || req.Mode == models.ModeCreateNew {
		req.Mode = models.ModeReplace
	}
	return req
}

// recordRun stores the outcome of a create in the history database.
func (r *Runner) recordRun(ctx context.Context, req tasks.Request, report *tasks.Report, runErr error) {
	if r.config.Database.Path == "" {
		return
	}

	db, err := shared.OpenConfigured(ctx, r.config.Database)
	if err != nil {
		r.logger.Warn("history not recorded", "error", err)
		return
	}
	defer db.Close()

	region := req.Region
	if region == "" {
		region = "custom"
	}
	name := req.Name
	if name == "" {
		name = chart.DefaultPlaylistName(region, req.Limit)
	}
	source := req.URL

	var (
		playlist *models.PlaylistRef
		mode     = req.Mode
		updated  bool
		result   *models.BatchResult
	)
	if report != nil {
		playlist, updated, result = report.Playlist, report.Updated, report.Result
		if report.Plan != nil {
			mode = report.Plan.Mode
		}
		if report.Snapshot != nil {
			source = report.Snapshot.Source
		}
	}

	run := models.NewRun(region, source, name, mode)
	run.Complete(playlist, mode, updated, result, runErr)

	repo := repositories.NewRunRepository(db)
	if err := repo.Create(run); err != nil {
		r.logger.Warn("history not recorded", "error", err)
		return
	}
	if result != nil && len(result.Failed) > 0 {
		if err := repo.RecordFailures(run.ID(), result.Failed); err != nil {
			r.logger.Warn("failed tracks not recorded", "run", run.ID(), "error", err)
		}
	}
	r.logger.Debug("run recorded", "id", run.ID(), "status", run.Status())
}
