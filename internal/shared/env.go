package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override config file values.
const (
	EnvClientID       = "SPOTIFY_CLIENT_ID"
	EnvClientSecret   = "SPOTIFY_CLIENT_SECRET"
	EnvRedirectURI    = "REDIRECT_URI"
	EnvPlaylistLimit  = "PLAYLIST_LIMIT"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvLogLevel       = "LOG_LEVEL"
)

// LoadDotEnv loads variables from the given .env files into the process environment.
//
// Missing files are ignored and variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto config.
//
// REQUEST_TIMEOUT accepts a Go duration or a number of seconds.
func ApplyEnv(config *Config) error {
	return applyEnv(config, os.LookupEnv)
}

func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvClientID); ok && v != "" {
		config.Credentials.Spotify.ClientID = v
	}
	if v, ok := lookup(EnvClientSecret); ok && v != "" {
		config.Credentials.Spotify.ClientSecret = v
	}
	if v, ok := lookup(EnvRedirectURI); ok && v != "" {
		config.Credentials.Spotify.RedirectURI = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		config.Log.Level = v
	}

	if v, ok := lookup(EnvPlaylistLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvPlaylistLimit, v)
		}
		config.Chart.Limit = n
	}

	if v, ok := lookup(EnvRequestTimeout); ok && v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvRequestTimeout, v)
		}
		config.Chart.Timeout = NewDuration(d)
	}

	return nil
}

func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
