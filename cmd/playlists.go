package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/services"
	"github.com/desertthunder/spotichart/internal/shared"
	"github.com/urfave/cli/v3"
)

// playlistLister is implemented by services that can page through every playlist.
type playlistLister interface {
	AllPlaylists(ctx context.Context) ([]models.PlaylistRef, error)
}

// Playlists lists the authenticated user's playlists with optional limit.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	var playlists []models.PlaylistRef
	err := r.withReauth(ctx, func(api services.PlaylistAPI) error {
		lister, ok := api.(playlistLister)
		if !ok {
			return fmt.Errorf("%w: playlist listing not supported", shared.ErrServiceUnavailable)
		}
		var err error
		playlists, err = lister.AllPlaylists(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n", len(playlists))
	rows := make([][]string, 0, len(playlists))
	for _, p := range playlists {
		visibility := "Private"
		if p.Public {
			visibility = "Public"
		}
		rows = append(rows, []string{p.Name, strconv.Itoa(p.TrackCount), visibility, p.ID})
	}
	return r.writePlain("%s\n", renderTable(
		[]string{"Name", "Tracks", "Visibility", "ID"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))
}
