package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/services"
	"github.com/desertthunder/spotichart/internal/shared"
	th "github.com/desertthunder/spotichart/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// fakeSpotify is an in-memory [services.PlaylistAPI] that also lists playlists.
type fakeSpotify struct {
	playlists []models.PlaylistRef
	contents  map[string][]string
	unknown   map[string]bool
	writeErr  error
	writeErrs []error // popped once per write before writeErr applies
	listErr   error

	listLag bool // created playlists are left out of UserPlaylists
	created map[string]bool
}

func newFakeSpotify() *fakeSpotify {
	return &fakeSpotify{contents: map[string][]string{}, unknown: map[string]bool{}, created: map[string]bool{}}
}

func (f *fakeSpotify) CurrentUser(context.Context) (*services.SpotifyUser, error) {
	return &services.SpotifyUser{ID: "me", DisplayName: "Me"}, nil
}

func (f *fakeSpotify) UserPlaylists(_ context.Context, limit, offset int) (*services.SpotifyPaginatedPlaylists, error) {
	var visible []models.PlaylistRef
	for _, p := range f.playlists {
		if !f.listLag || !f.created[p.ID] {
			visible = append(visible, p)
		}
	}

	page := &services.SpotifyPaginatedPlaylists{Limit: limit, Offset: offset, Total: len(visible)}
	end := min(offset+limit, len(visible))
	for i := offset; i < end; i++ {
		p := visible[i]
		page.Items = append(page.Items, services.SpotifyPlaylist{ID: p.ID, Name: p.Name, Owner: services.Owner{ID: p.OwnerID}})
	}
	return page, nil
}

func (f *fakeSpotify) AllPlaylists(context.Context) ([]models.PlaylistRef, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.playlists, nil
}

func (f *fakeSpotify) CreatePlaylist(_ context.Context, userID, name, _ string, public bool) (*models.PlaylistRef, error) {
	ref := models.PlaylistRef{ID: fmt.Sprintf("pl%d", len(f.playlists)+1), Name: name, OwnerID: userID, Public: public}
	f.playlists = append(f.playlists, ref)
	f.created[ref.ID] = true
	return &ref, nil
}

func (f *fakeSpotify) PlaylistTrackIDs(_ context.Context, id string) ([]string, error) {
	return f.contents[id], nil
}

func (f *fakeSpotify) nextWriteErr() error {
	if len(f.writeErrs) > 0 {
		err := f.writeErrs[0]
		f.writeErrs = f.writeErrs[1:]
		return err
	}
	return f.writeErr
}

func (f *fakeSpotify) ReplaceTracks(_ context.Context, id string, uris []string) error {
	if err := f.nextWriteErr(); err != nil {
		return err
	}
	f.contents[id] = trimURIs(uris)
	return nil
}

func (f *fakeSpotify) AddTracks(_ context.Context, id string, uris []string) error {
	if err := f.nextWriteErr(); err != nil {
		return err
	}
	f.contents[id] = append(f.contents[id], trimURIs(uris)...)
	return nil
}

func (f *fakeSpotify) LookupTracks(_ context.Context, ids []string) ([]*services.SpotifyTrack, error) {
	out := make([]*services.SpotifyTrack, len(ids))
	for i, id := range ids {
		if !f.unknown[id] {
			out[i] = &services.SpotifyTrack{ID: id, URI: "spotify:track:" + id, Name: "Song " + id}
		}
	}
	return out, nil
}

func (f *fakeSpotify) UpdateDetails(context.Context, string, string, string) error { return nil }

// oauthSpotify is a fakeSpotify that can be reauthorized.
type oauthSpotify struct {
	*fakeSpotify
	tokens []*oauth2.Token
}

func (f *oauthSpotify) GetAuthURL(state string) string {
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (f *oauthSpotify) GetOAuthConfig() *oauth2.Config { return &oauth2.Config{} }

func (f *oauthSpotify) OAuthenticate(_ context.Context, token *oauth2.Token) error {
	f.tokens = append(f.tokens, token)
	return nil
}

func trimURIs(uris []string) []string {
	ids := make([]string, len(uris))
	for i, u := range uris {
		ids[i] = strings.TrimPrefix(u, "spotify:track:")
	}
	return ids
}

// pageGetter serves a fixed chart page.
type pageGetter struct {
	page string
	err  error
	urls []string
}

func (g *pageGetter) Fetch(_ context.Context, url string) (string, error) {
	g.urls = append(g.urls, url)
	return g.page, g.err
}

func chartOf(n int) (*pageGetter, []string) {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%022d", i+1)
	}
	return &pageGetter{page: th.ChartIDs(ids...)}, ids
}

// plainPainter leaves text unstyled so assertions can match exact strings.
type plainPainter struct{}

func (plainPainter) Title(s string) string   { return s }
func (plainPainter) Success(s string) string { return s }
func (plainPainter) Error(s string) string   { return s }
func (plainPainter) Warning(s string) string { return s }
func (plainPainter) Help(s string) string    { return s }

// testConfig returns defaults with a temp database and placeholder credentials.
func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "runs.db")
	config.Playlist.Pacing = shared.NewDuration(0)
	return config
}

// runCLI runs args through a root command wired like main.
func runCLI(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:      "spotichart",
		Flags:     globalFlags(),
		Before:    r.before,
		Commands:  r.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	return app.Run(context.Background(), append([]string{"spotichart"}, args...))
}
