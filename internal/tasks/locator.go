package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/services"
	"github.com/desertthunder/spotichart/internal/shared"
)

const (
	defaultCacheTTL = 5 * time.Minute
	playlistPage    = 50
)

type cachedPlaylist struct {
	ref     models.PlaylistRef
	expires time.Time
}

// Locator finds the user's playlists by name.
//
// Hits are kept in memory for the lifetime of the Locator and expire after the configured TTL.
type Locator struct {
	api    services.PlaylistAPI
	logger *log.Logger
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedPlaylist
}

// NewLocator creates a Locator. A non-positive ttl uses five minutes.
func NewLocator(api services.PlaylistAPI, logger *log.Logger, ttl time.Duration) *Locator {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Locator{
		api:    api,
		logger: shared.WithLogger(logger, "component", "locator"),
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cachedPlaylist),
	}
}

// FindByName returns the first playlist owned by ownerID whose name equals name exactly.
//
// It returns nil and no error when nothing matches.
func (l *Locator) FindByName(ctx context.Context, ownerID, name string) (*models.PlaylistRef, error) {
	if ref, ok := l.lookup(ownerID, name); ok {
		l.logger.Debug("playlist cache hit", "name", name, "id", ref.ID)
		return &ref, nil
	}

	for offset := 0; ; offset += playlistPage {
		page, err := l.api.UserPlaylists(ctx, playlistPage, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}

		for i := range page.Items {
			ref := page.Items[i].Ref()
			if ref.OwnerID != ownerID || ref.Name != name {
				continue
			}
			l.Remember(ref)
			return &ref, nil
		}

		if page.Next == nil || len(page.Items) == 0 {
			return nil, nil
		}
	}
}

// Remember caches ref under its name, replacing any earlier entry.
func (l *Locator) Remember(ref models.PlaylistRef) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[ref.Name] = cachedPlaylist{ref: ref, expires: l.now().Add(l.ttl)}
}

// Forget drops the cached entry for name.
func (l *Locator) Forget(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, name)
}

func (l *Locator) lookup(ownerID, name string) (models.PlaylistRef, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.cache[name]
	if !ok {
		return models.PlaylistRef{}, false
	}
	if !l.now().Before(entry.expires) {
		delete(l.cache, name)
		return models.PlaylistRef{}, false
	}
	if entry.ref.OwnerID != ownerID {
		return models.PlaylistRef{}, false
	}
	return entry.ref, true
}
