package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/tasks"
)

// plain is a [Painter] that leaves text unstyled
type plain struct{}

func (plain) Title(s string) string   { return s }
func (plain) Success(s string) string { return s }
func (plain) Error(s string) string   { return s }
func (plain) Warning(s string) string { return "!" + s }
func (plain) Help(s string) string    { return s }

func TestProgress(t *testing.T) {
	t.Run("writes every update before done closes", func(t *testing.T) {
		var buf bytes.Buffer
		updates := make(chan tasks.ProgressUpdate, 3)
		done := Progress(&buf, plain{}, updates)

		updates <- tasks.ProgressUpdate{Phase: tasks.Scraping, Message: "Fetching chart"}
		updates <- tasks.ProgressUpdate{Phase: tasks.Applying, Message: "[1/2] ✗ boom"}
		updates <- tasks.ProgressUpdate{Phase: tasks.Reporting, Message: "Submitted 1 tracks"}
		close(updates)
		<-done

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
		}
		if lines[0] != "scrape Fetching chart" {
			t.Errorf("unexpected first line %q", lines[0])
		}
		if lines[1] != "apply  ![1/2] ✗ boom" {
			t.Errorf("expected failure line to use warning style, got %q", lines[1])
		}
	})

	t.Run("default palette renders text", func(t *testing.T) {
		line := FormatUpdate(Styles(), tasks.ProgressUpdate{Phase: tasks.Planning, Message: "Planned 3 tracks"})
		if !strings.Contains(line, "Planned 3 tracks") {
			t.Errorf("message missing from %q", line)
		}
	})
}

func TestRenderReport(t *testing.T) {
	ref := &models.PlaylistRef{ID: "pl1", Name: "Top 50 - US (Kworb)", URL: "https://open.spotify.com/playlist/pl1"}

	t.Run("success", func(t *testing.T) {
		out := RenderReport(plain{}, &tasks.Report{
			Playlist: ref,
			Plan:     &models.UpdatePlan{Mode: models.ModeAppend, Skipped: []string{"a"}},
			Result:   &models.BatchResult{Submitted: 4},
		})
		for _, want := range []string{"✓ Playlist updated", "Playlist: Top 50 - US (Kworb) (ID: pl1)", "URL: https://open.spotify.com/playlist/pl1", "Already present: 1", "Submitted: 4/4 (100.0%)"} {
			if !strings.Contains(out, want) {
				t.Errorf("report missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("failures", func(t *testing.T) {
		out := RenderReport(plain{}, &tasks.Report{
			Playlist: ref,
			Result: &models.BatchResult{
				Submitted: 1,
				Failed:    []models.FailedTrack{{ID: "bad", Err: errors.New("not found")}},
			},
		})
		for _, want := range []string{"!Playlist updated with 1 failures", "Submitted: 1/2 (50.0%)", "• bad: not found"} {
			if !strings.Contains(out, want) {
				t.Errorf("report missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		if out := RenderReport(plain{}, nil); out != "No result available" {
			t.Errorf("unexpected output %q", out)
		}
		if out := RenderReport(plain{}, &tasks.Report{Result: &models.BatchResult{}}); !strings.Contains(out, "Submitted: 0/0 (100.0%)") {
			t.Errorf("unexpected output %q", out)
		}
	})
}
