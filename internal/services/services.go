// Playlist API interfaces
package services

import (
	"context"

	"github.com/desertthunder/spotichart/internal/models"
	"golang.org/x/oauth2"
)

// PlaylistAPI is the subset of the Spotify Web API the workflow needs.
//
// Implementations return [*AuthError], [*RateLimitError] or [*APIError] for non-2xx responses.
type PlaylistAPI interface {
	// CurrentUser returns the authenticated user's profile.
	CurrentUser(ctx context.Context) (*SpotifyUser, error)

	// UserPlaylists returns one page (at most 50) of the user's playlists.
	UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.PlaylistRef, error)

	// PlaylistTrackIDs returns every track ID currently in the playlist, in order.
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)

	// ReplaceTracks atomically replaces the playlist contents with uris (at most 100).
	ReplaceTracks(ctx context.Context, playlistID string, uris []string) error

	// AddTracks appends uris (at most 100) to the playlist.
	AddTracks(ctx context.Context, playlistID string, uris []string) error

	// LookupTracks fetches up to 50 tracks by ID. Unknown IDs yield nil entries at the same index.
	LookupTracks(ctx context.Context, ids []string) ([]*SpotifyTrack, error)

	// UpdateDetails changes the playlist description, and its name when name is non-empty.
	UpdateDetails(ctx context.Context, playlistID, name, description string) error
}

// OAuthService is implemented by services that authenticate with the OAuth2 authorization code flow.
type OAuthService interface {
	// GetAuthURL returns the URL the user visits to grant access.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the config used to exchange the callback code.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs token, refreshing it as needed on later requests.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
