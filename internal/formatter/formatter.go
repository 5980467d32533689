// package formatter renders chart snapshots as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotichart/internal/chart"
	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
)

const trackURLPrefix = "https://open.spotify.com/track/"

// Export renders snapshot in the named format. "md" and "text" are accepted as aliases.
func Export(snapshot *models.ChartSnapshot, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ExportToCSV(snapshot)
	case FormatMarkdown, "md":
		return ExportToMarkdown(snapshot)
	case FormatText, "text":
		return ExportToText(snapshot)
	case FormatJSON:
		return shared.MarshalJSON(snapshot, true)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts a snapshot to CSV with columns: Position, ID, Name, Artist, URL
func ExportToCSV(snapshot *models.ChartSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "ID", "Name", "Artist", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range snapshot.Tracks {
		record := []string{
			strconv.Itoa(track.Position),
			track.ID,
			track.Name,
			track.Artist,
			trackURLPrefix + track.ID,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts a snapshot to a Markdown document with linked tracks
func ExportToMarkdown(snapshot *models.ChartSnapshot) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(snapshot))
	if snapshot.Source != "" {
		fmt.Fprintf(&buf, "**Source**: %s\n", snapshot.Source)
	}
	if !snapshot.FetchedAt.IsZero() {
		fmt.Fprintf(&buf, "**Fetched**: %s\n", snapshot.FetchedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(snapshot.Tracks))

	buf.WriteString("## Tracks\n\n")
	for _, track := range snapshot.Tracks {
		fmt.Fprintf(&buf, "%d. [%s](%s%s) - %s\n", track.Position, escapeMarkdown(label(track)), trackURLPrefix, track.ID, escapeMarkdown(track.Artist))
	}
	return buf.Bytes(), nil
}

// ExportToText converts a snapshot to plain text
func ExportToText(snapshot *models.ChartSnapshot) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Chart: %s\n", title(snapshot))
	if snapshot.Source != "" {
		fmt.Fprintf(&buf, "Source: %s\n", snapshot.Source)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(snapshot.Tracks))

	for _, track := range snapshot.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", track.Position, track.Artist, label(track))
	}
	return buf.Bytes(), nil
}

// WriteExport renders snapshot and writes it to path.
//
// Defaults to {region}_chart.{ext} as the filename.
func WriteExport(snapshot *models.ChartSnapshot, format, path string) (string, error) {
	data, err := Export(snapshot, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		region := snapshot.Region
		if region == "" {
			region = "custom"
		}
		path = fmt.Sprintf("%s_chart.%s", strings.ToLower(region), extension(format))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func title(snapshot *models.ChartSnapshot) string {
	if snapshot.Region == "" {
		return "Kworb chart"
	}
	return chart.DisplayName(snapshot.Region) + " weekly chart"
}

func label(track models.Track) string {
	if track.Name != "" {
		return track.Name
	}
	return track.ID
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return "md"
	case FormatText, "text":
		return "txt"
	default:
		return strings.ToLower(format)
	}
}

var markdownEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
