package chart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/spotichart/internal/shared"
)

// Regions maps a region key ("brazil", "us") to its weekly totals page.
type Regions map[string]string

// URL returns the chart page for region. Keys are matched case-insensitively.
func (r Regions) URL(region string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(region))
	if u, ok := r[key]; ok && u != "" {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q (available: %s)", shared.ErrUnknownRegion, region, strings.Join(r.Names(), ", "))
}

// Names returns the region keys sorted alphabetically.
func (r Regions) Names() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DisplayName formats a region key for playlist titles: two-letter codes are
// upper-cased, anything else is capitalised.
func DisplayName(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		return ""
	}
	if len(region) <= 2 {
		return strings.ToUpper(region)
	}
	return strings.ToUpper(region[:1]) + strings.ToLower(region[1:])
}

// DefaultPlaylistName is the title used when the caller gives none.
func DefaultPlaylistName(region string, limit int) string {
	return fmt.Sprintf("Top %d - %s (Kworb)", limit, DisplayName(region))
}

// DefaultDescription is the description used when the caller gives none.
func DefaultDescription(region string, limit int) string {
	return fmt.Sprintf("Top %d from Kworb %s charts", limit, DisplayName(region))
}
