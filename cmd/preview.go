package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/spotichart/internal/chart"
	"github.com/desertthunder/spotichart/internal/formatter"
	"github.com/desertthunder/spotichart/internal/shared"
	"github.com/urfave/cli/v3"
)

// Preview scrapes a chart and prints it without contacting Spotify.
func (r *Runner) Preview(ctx context.Context, cmd *cli.Command) error {
	region := cmd.String("region")
	url := cmd.String("url")
	limit := cmd.Int("limit")
	format := strings.ToLower(cmd.String("format"))
	output := cmd.String("output")

	if limit < 0 {
		return fmt.Errorf("%w: --limit must be >= 0", shared.ErrInvalidFlag)
	}
	if region == "" && url == "" {
		region = r.config.Chart.DefaultRegion
	}
	if url == "" {
		if region == "" {
			return fmt.Errorf("%w: --region or --url is required", shared.ErrMissingArgument)
		}
		u, err := chart.Regions(r.config.Chart.Regions).URL(region)
		if err != nil {
			return err
		}
		url = u
	}

	r.logger.Info("previewing chart", "url", url, "limit", limit)

	snapshot, err := chart.Scrape(ctx, r.fetcher(), url, region, limit)
	if err != nil {
		return err
	}

	if format == "table" {
		if output != "" {
			return fmt.Errorf("%w: --output needs --format csv, markdown, txt or json", shared.ErrInvalidFlag)
		}
		title := "Kworb chart"
		if region != "" {
			title = chart.DisplayName(region) + " weekly chart"
		}
		r.writePlainHeader(title)
		r.writePlain("Source: %s\n", snapshot.Source)

		rows := make([][]string, 0, len(snapshot.Tracks))
		for _, t := range snapshot.Tracks {
			rows = append(rows, []string{strconv.Itoa(t.Position), t.Artist, t.Name, t.ID})
		}
		return r.writePlain("%s\n", renderTable(
			[]string{"#", "Artist", "Title", "Track ID"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		))
	}

	if output != "" {
		path, err := formatter.WriteExport(snapshot, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("chart exported", "path", path, "tracks", len(snapshot.Tracks))
		return r.writePlain("✓ Chart exported to %s\n", path)
	}

	data, err := formatter.Export(snapshot, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// Regions lists configured region keys and their chart URLs.
func (r *Runner) Regions(ctx context.Context, cmd *cli.Command) error {
	regions := chart.Regions(r.config.Chart.Regions)
	names := regions.Names()

	if cmd.Bool("json") {
		return r.writeJSON(r.config.Chart.Regions, true)
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		u, _ := regions.URL(name)
		marker := ""
		if name == r.config.Chart.DefaultRegion {
			marker = "*"
		}
		rows = append(rows, []string{name + marker, chart.DisplayName(name), u})
	}

	r.writePlain("%s\n", renderTable([]string{"Region", "Name", "URL"}, rows, nil))
	return r.writePlain("%s\n", r.painter.Help("* default region"))
}
