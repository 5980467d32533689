package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/repositories"
	"github.com/desertthunder/spotichart/internal/shared"
	"github.com/urfave/cli/v3"
)

// runView is the JSON shape of a recorded run.
type runView struct {
	ID         string                    `json:"id"`
	Sequence   int                       `json:"sequence"`
	Region     string                    `json:"region"`
	Source     string                    `json:"source"`
	PlaylistID string                    `json:"playlist_id,omitempty"`
	Name       string                    `json:"name"`
	Mode       models.UpdateMode         `json:"mode"`
	Updated    bool                      `json:"updated"`
	Submitted  int                       `json:"submitted"`
	Failed     int                       `json:"failed"`
	Status     models.RunStatus          `json:"status"`
	Error      string                    `json:"error,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
	Failures   []repositories.RunFailure `json:"failures,omitempty"`
}

func newRunView(run *models.Run) runView {
	return runView{
		ID: run.ID(), Sequence: run.Sequence(), Region: run.Region(), Source: run.Source(),
		PlaylistID: run.PlaylistID(), Name: run.Name(), Mode: run.Mode(), Updated: run.Updated(),
		Submitted: run.Submitted(), Failed: run.Failed(), Status: run.Status(), Error: run.Error(),
		CreatedAt: run.CreatedAt(),
	}
}

// History lists recorded runs, newest first, or the failed tracks of a single run with --id.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if r.config.Database.Path == "" {
		return fmt.Errorf("%w: database.path is not set", shared.ErrMissingConfig)
	}

	db, err := shared.OpenConfigured(ctx, r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)

	if id := cmd.String("id"); id != "" {
		return r.showRun(repo, id, cmd.Bool("json"))
	}

	runs, err := repo.Recent(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet\n")
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			strconv.Itoa(run.Sequence()),
			run.CreatedAt().Local().Format("2006-01-02 15:04"),
			run.Region(),
			run.Name(),
			string(run.Mode()),
			strconv.Itoa(run.Submitted()),
			strconv.Itoa(run.Failed()),
			r.status(run.Status()),
			run.ID(),
		})
	}
	return r.writePlain("%s\n", renderTable(
		[]string{"#", "When", "Region", "Playlist", "Mode", "Added", "Failed", "Status", "ID"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
}

func (r *Runner) showRun(repo *repositories.RunRepository, id string, useJSON bool) error {
	run, err := repo.Get(id)
	if err != nil {
		return err
	}

	failures, err := repo.Failures(id)
	if err != nil {
		return err
	}

	view := newRunView(run)
	view.Failures = failures
	if useJSON {
		return r.writeJSON(view, true)
	}

	r.writePlainHeader(fmt.Sprintf("Run #%d: %s", run.Sequence(), run.Name()))
	r.writePlain("Status: %s\n", r.status(run.Status()))
	r.writePlain("Source: %s\n", run.Source())
	if run.PlaylistID() != "" {
		r.writePlain("Playlist: %s\n", run.PlaylistID())
	}
	r.writePlain("Added: %d, Failed: %d\n", run.Submitted(), run.Failed())
	if run.Error() != "" {
		r.writePlain("Error: %s\n", run.Error())
	}

	if len(failures) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.TrackID, f.Reason})
	}
	return r.writePlain("\n%s\n", renderTable([]string{"Track ID", "Reason"}, rows, nil))
}

func (r *Runner) status(s models.RunStatus) string {
	switch s {
	case models.RunSucceeded:
		return r.painter.Success(string(s))
	case models.RunPartial:
		return r.painter.Warning(string(s))
	default:
		return r.painter.Error(string(s))
	}
}
