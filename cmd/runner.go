package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotichart/internal/chart"
	"github.com/desertthunder/spotichart/internal/services"
	"github.com/desertthunder/spotichart/internal/shared"
	"github.com/desertthunder/spotichart/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	preloaded  bool
	api        services.PlaylistAPI
	getter     chart.Getter
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	painter    ui.Painter

	authorize func(context.Context, services.OAuthService, string) (*oauth2.Token, error)
}

// RunnerOpts contains configuration options for creating a Runner.
//
// API and Getter replace the Spotify service and chart fetcher built from config when set.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        services.PlaylistAPI
	Getter     chart.Getter
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Painter    ui.Painter
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	preloaded := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Painter == nil {
		opts.Painter = ui.Styles()
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		preloaded:  preloaded,
		api:        opts.API,
		getter:     opts.Getter,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		painter:    opts.Painter,
	}
	r.authorize = r.doOAuth
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		createCommand, previewCommand, regionsCommand, playlistsCommand,
		authCommand, configCommand, setupCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration file named by --config, overlays the environment and sets the log level.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if !r.preloaded {
		config, err := shared.LoadOrDefault(r.configPath)
		if err != nil {
			return ctx, err
		}
		if err := shared.ApplyEnv(config); err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("debug") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// spotify returns the injected [services.PlaylistAPI] or an authenticated [services.SpotifyService] built from config.
func (r *Runner) spotify(ctx context.Context) (services.PlaylistAPI, error) {
	if r.api != nil {
		return r.api, nil
	}

	svc, err := r.newSpotifyService()
	if err != nil {
		return nil, err
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'spotichart auth' first", shared.ErrNotAuthenticated)
	}
	if err := svc.OAuthenticate(ctx, token); err != nil {
		return nil, err
	}

	r.api = svc
	return svc, nil
}

func (r *Runner) newSpotifyService() (*services.SpotifyService, error) {
	creds := r.config.Credentials.Spotify
	if !creds.HasCredentials() {
		return nil, fmt.Errorf("%w: set credentials.spotify.client_id and client_secret in %s or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET",
			shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map(),
		services.WithHTTPClient(r.httpClient),
		services.WithLogger(shared.WithLogger(r.logger, "component", "spotify")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	})
	return svc, nil
}

// fetcher returns the injected [chart.Getter] or a [chart.Fetcher] configured from [shared.ChartConfig].
func (r *Runner) fetcher() chart.Getter {
	if r.getter != nil {
		return r.getter
	}
	return chart.NewFetcher(r.httpClient, shared.WithLogger(r.logger, "component", "chart"), chart.OptionsFromConfig(r.config.Chart))
}

// withReauth runs fn with the Spotify API. An expired token triggers one OAuth flow and a retry.
//
// The retry receives the same API value, re-authenticated in place.
func (r *Runner) withReauth(ctx context.Context, fn func(services.PlaylistAPI) error) error {
	api, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	err = fn(api)
	if err == nil || !errors.Is(err, shared.ErrTokenExpired) {
		return err
	}

	oauthSrv, ok := api.(services.OAuthService)
	if !ok {
		return err
	}

	r.writePlainln("⚠ Authentication token expired. Starting reauthorization...")
	token, authErr := r.authorize(ctx, oauthSrv, "reauthorization")
	if authErr != nil {
		return fmt.Errorf("reauthorization failed: %w", authErr)
	}
	if err := r.saveTokens(token); err != nil {
		return err
	}
	if err := oauthSrv.OAuthenticate(ctx, token); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...")
	return fn(api)
}

// saveTokens stores token in the config and writes it to configPath when one is set.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.painter.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
