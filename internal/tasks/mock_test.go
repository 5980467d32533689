package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/services"
	th "github.com/desertthunder/spotichart/internal/testing"
)

// mockAPI is an in-memory [services.PlaylistAPI] that keeps playlist contents between calls.
type mockAPI struct {
	mu sync.Mutex

	userID    string
	playlists []services.SpotifyPlaylist
	contents  map[string][]string
	unknown   map[string]bool

	writeErrs  []error // popped once per ReplaceTracks/AddTracks call
	lookupErrs []error // popped once per LookupTracks call
	onWrite    func(call int)

	userErr    error
	createErr  error
	detailsErr error

	calls       []string
	pageCalls   int
	lookupCalls int
	writeCalls  int
	created     int
	description string
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		userID:   "user1",
		contents: make(map[string][]string),
		unknown:  make(map[string]bool),
	}
}

// addPlaylist seeds a playlist with ids.
func (m *mockAPI) addPlaylist(id, name, owner string, ids ...string) {
	p := services.SpotifyPlaylist{ID: id, Name: name, Owner: services.Owner{ID: owner}}
	p.Tracks.Total = len(ids)
	m.playlists = append(m.playlists, p)
	m.contents[id] = append([]string(nil), ids...)
}

func (m *mockAPI) tracks(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.contents[id]...)
}

func (m *mockAPI) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *mockAPI) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	return &services.SpotifyUser{ID: m.userID}, nil
}

func (m *mockAPI) UserPlaylists(ctx context.Context, limit, offset int) (*services.SpotifyPaginatedPlaylists, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageCalls++

	end := min(offset+limit, len(m.playlists))
	page := &services.SpotifyPaginatedPlaylists{Total: len(m.playlists), Limit: limit, Offset: offset}
	if offset < end {
		page.Items = append(page.Items, m.playlists[offset:end]...)
	}
	if end < len(m.playlists) {
		next := fmt.Sprintf("offset=%d", end)
		page.Next = &next
	}
	return page, nil
}

func (m *mockAPI) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.PlaylistRef, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	id := fmt.Sprintf("created%d", m.created)
	m.playlists = append(m.playlists, services.SpotifyPlaylist{ID: id, Name: name, Owner: services.Owner{ID: userID}, Public: public})
	m.contents[id] = nil
	m.description = description
	m.record("create " + name)
	return &models.PlaylistRef{ID: id, Name: name, OwnerID: userID, Public: public}, nil
}

func (m *mockAPI) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	return m.tracks(playlistID), nil
}

func (m *mockAPI) nextWriteErr() error {
	m.writeCalls++
	if m.onWrite != nil {
		m.onWrite(m.writeCalls)
	}
	if len(m.writeErrs) == 0 {
		return nil
	}
	err := m.writeErrs[0]
	m.writeErrs = m.writeErrs[1:]
	return err
}

func (m *mockAPI) ReplaceTracks(ctx context.Context, playlistID string, uris []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("PUT %d", len(uris)))
	if err := m.nextWriteErr(); err != nil {
		return err
	}
	m.contents[playlistID] = idsFromURIs(uris)
	return nil
}

func (m *mockAPI) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("POST %d", len(uris)))
	if err := m.nextWriteErr(); err != nil {
		return err
	}
	m.contents[playlistID] = append(m.contents[playlistID], idsFromURIs(uris)...)
	return nil
}

func (m *mockAPI) LookupTracks(ctx context.Context, ids []string) ([]*services.SpotifyTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls++
	if len(m.lookupErrs) > 0 {
		err := m.lookupErrs[0]
		m.lookupErrs = m.lookupErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	out := make([]*services.SpotifyTrack, len(ids))
	for i, id := range ids {
		if m.unknown[id] {
			continue
		}
		out[i] = &services.SpotifyTrack{ID: id, Name: "Song " + id, URI: "spotify:track:" + id}
	}
	return out, nil
}

func (m *mockAPI) UpdateDetails(ctx context.Context, playlistID, name, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("details")
	if m.detailsErr != nil {
		return m.detailsErr
	}
	m.description = description
	return nil
}

func idsFromURIs(uris []string) []string {
	ids := make([]string, len(uris))
	for i, u := range uris {
		ids[i] = strings.TrimPrefix(u, "spotify:track:")
	}
	return ids
}

// tid returns a well-formed 22 character track ID.
func tid(n int) string {
	return fmt.Sprintf("%022d", n)
}

func tids(from, to int) []string {
	ids := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		ids = append(ids, tid(i))
	}
	return ids
}

// chartGetter serves a kworb-style page listing ids in order.
type chartGetter struct {
	ids   []string
	err   error
	calls int
}

func (g *chartGetter) Fetch(ctx context.Context, url string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return th.ChartIDs(g.ids...), nil
}
