package chart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/shared"
)

const (
	trackHrefPrefix  = "../track/"
	artistHrefPrefix = "../artist/"
)

// tableSelectors are tried in order; the first match is the ranking table.
var tableSelectors = []string{
	"table.display",
	"table.addpos",
	"table#spotifyweekly",
	"table.data",
	"table.chart",
}

// Parse extracts up to limit tracks, in rank order, from a kworb chart page.
//
// A page without a ranking table is a [*ParseError]; a table with no rows yields an empty snapshot.
func Parse(markup string, limit int, region string) (*models.ChartSnapshot, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0, got %d", shared.ErrInvalidArgument, limit)
	}

	snapshot := &models.ChartSnapshot{Region: region, Tracks: []models.Track{}}
	if limit == 0 {
		return snapshot, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid markup: %v", err)}
	}

	table := findTable(doc)
	if table == nil {
		return nil, &ParseError{Reason: "ranking table not found, site structure may have changed"}
	}

	table.Find("tbody tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		track, ok := parseRow(row, i+1)
		if ok {
			snapshot.Tracks = append(snapshot.Tracks, track)
		}
		return len(snapshot.Tracks) < limit
	})

	return snapshot, nil
}

func findTable(doc *goquery.Document) *goquery.Selection {
	for _, sel := range tableSelectors {
		if t := doc.Find(sel).First(); t.Length() > 0 {
			return t
		}
	}
	return nil
}

// parseRow reads one ranking row. rank is used when the row has no numeric position cell.
func parseRow(row *goquery.Selection, rank int) (models.Track, bool) {
	var track models.Track

	row.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		switch {
		case track.ID == "" && strings.HasPrefix(href, trackHrefPrefix):
			track.ID = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(href, trackHrefPrefix), ".html"))
			track.Name = strings.TrimSpace(a.Text())
		case track.Artist == "" && strings.HasPrefix(href, artistHrefPrefix):
			track.Artist = strings.TrimSpace(a.Text())
		}
		return track.ID == "" || track.Artist == ""
	})

	if track.ID == "" {
		return models.Track{}, false
	}

	track.Position = rank
	if pos, err := strconv.Atoi(strings.TrimSpace(row.Find("td").First().Text())); err == nil && pos > 0 {
		track.Position = pos
	}
	return track, true
}
