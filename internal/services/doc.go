// Package services implements the Spotify Web API client used to create and update playlists.
//
// # Playlist API
//
// [PlaylistAPI] is the narrow surface the playlist workflow depends on. [SpotifyService] implements it
// over net/http with an [oauth2] client; tests substitute an in-memory fake.
//
// # Authentication
//
// [SpotifyService] implements [OAuthService] for the authorization code flow run by the auth command.
// Stored tokens are installed with Authenticate; expired tokens are refreshed through the refresh token
// and every new token is reported to the callback set with SetTokenRefreshCallback so it can be persisted.
//
// # Error Handling
//
// Non-2xx responses are classified into typed errors:
//   - [*AuthError] : 401, 403 or an unusable token; matches [shared.ErrNotAuthenticated]
//   - [*RateLimitError] : 429 with the Retry-After hint; matches [shared.ErrRateLimited]
//   - [*APIError] : everything else; matches [shared.ErrAPIRequest], and [shared.ErrPlaylistNotFound] for 404
//
// [*ResolutionError] is produced during track resolution and matches [shared.ErrTrackNotFound].
package services
