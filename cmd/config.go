package main

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/desertthunder/spotichart/internal/shared"
	"github.com/urfave/cli/v3"
)

// ShowConfig prints the effective configuration with secrets masked and reports validation problems.
func (r *Runner) ShowConfig(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("init") {
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", r.configPath)
		r.writePlain("✓ Wrote example config to %s\n\n", r.configPath)
	}

	c := r.config
	sp := c.Credentials.Spotify

	source := r.configPath
	if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
		source = "defaults (no " + r.configPath + ")"
	}
	r.writePlainHeader("Configuration")
	r.writePlain("Loaded from: %s\n\n", source)

	rows := [][]string{
		{"credentials.spotify.client_id", shared.Mask(sp.ClientID)},
		{"credentials.spotify.client_secret", shared.Mask(sp.ClientSecret)},
		{"credentials.spotify.redirect_uri", sp.RedirectURI},
		{"credentials.spotify.access_token", shared.Mask(sp.AccessToken)},
		{"credentials.spotify.refresh_token", shared.Mask(sp.RefreshToken)},
		{"credentials.spotify.expiry", sp.Expiry},
		{"database.path", c.Database.Path},
		{"server", c.Server.Host + ":" + strconv.Itoa(c.Server.Port)},
		{"chart.default_region", c.Chart.DefaultRegion},
		{"chart.limit", strconv.Itoa(c.Chart.Limit)},
		{"chart.timeout", c.Chart.Timeout.String()},
		{"chart.max_retries", strconv.Itoa(c.Chart.MaxRetries)},
		{"chart.regions", strconv.Itoa(len(c.Chart.Regions))},
		{"playlist.batch_size", strconv.Itoa(c.Playlist.BatchSize)},
		{"playlist.pacing", c.Playlist.Pacing.String()},
		{"playlist.max_rate_limit_retries", strconv.Itoa(c.Playlist.MaxRateLimitRetries)},
		{"playlist.cache_ttl", c.Playlist.CacheTTL.String()},
		{"playlist.verify_tracks", strconv.FormatBool(c.Playlist.VerifyTracks)},
		{"playlist.public", strconv.FormatBool(c.Playlist.Public)},
		{"log.level", c.Log.Level},
	}
	r.writePlain("%s\n\n", renderTable([]string{"Key", "Value"}, rows, nil))

	if err := c.Validate(); err != nil {
		r.writePlain("%s\n", r.painter.Error("✗ "+err.Error()))
		return nil
	}
	return r.writePlain("%s\n", r.painter.Success("✓ Configuration is valid"))
}
