// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
}

func chartFlags(limit int) []cli.Flag {
	limitUsage := "Number of chart entries to use (default: chart.limit from config)"
	if limit > 0 {
		limitUsage = "Number of chart entries to use"
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "region",
			Aliases: []string{"r"},
			Usage:   "Chart region (see 'spotichart regions')",
		},
		&cli.StringFlag{
			Name:  "url",
			Usage: "Kworb chart URL, overrides --region",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   limitUsage,
			Value:   limit,
		},
	}
}

// createCommand scrapes a chart and writes it to a playlist
func createCommand(r *Runner) *cli.Command {
	flags := append(chartFlags(0),
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Playlist name (default: Top <limit> - <Region> (Kworb))",
		},
		&cli.StringFlag{
			Name:  "description",
			Usage: "Playlist description",
		},
		&cli.BoolFlag{
			Name:  "public",
			Usage: "Create the playlist as public",
		},
		&cli.StringFlag{
			Name:    "update-mode",
			Aliases: []string{"u"},
			Usage:   "How to update an existing playlist: replace, append or new",
			Value:   "replace",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output the run report as JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	)

	return &cli.Command{
		Name:   "create",
		Usage:  "Create or update a playlist from a Kworb chart",
		Flags:  flags,
		Action: r.Create,
	}
}

// previewCommand prints a chart without touching Spotify
func previewCommand(r *Runner) *cli.Command {
	flags := append(chartFlags(10),
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: table, csv, markdown, txt or json",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the export to a file instead of stdout",
		},
	)

	return &cli.Command{
		Name:   "preview",
		Usage:  "Preview chart entries without creating a playlist",
		Flags:  flags,
		Action: r.Preview,
	}
}

// regionsCommand lists configured chart regions
func regionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "regions",
		Usage: "List available chart regions",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Regions,
	}
}

// playlistsCommand lists the user's Spotify playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your Spotify playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to show",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Playlists,
	}
}

// authCommand runs the Spotify OAuth2 flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify using OAuth2",
		Action: r.Auth,
	}
}

// configCommand shows the effective configuration
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show configuration and validation status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "init",
				Usage: "Write an example config file if none exists",
			},
		},
		Action: r.ShowConfig,
	}
}

// setupCommand handles setup operations
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// historyCommand lists recorded runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show previous runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of runs to show (0 for all)",
				Value: 10,
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Show failed tracks for a single run",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}
