package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/spotichart/internal/tasks"
)

// Progress prints each update from updates to w until the channel is closed.
//
// The returned channel is closed once every update has been written.
func Progress(w io.Writer, p Painter, updates <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range updates {
			fmt.Fprintln(w, FormatUpdate(p, update))
		}
	}()
	return done
}

// FormatUpdate renders a single progress line prefixed by its phase.
func FormatUpdate(p Painter, update tasks.ProgressUpdate) string {
	label := p.Help(fmt.Sprintf("%-6s", update.Phase))
	switch {
	case strings.Contains(update.Message, "✗"):
		return fmt.Sprintf("%s %s", label, p.Warning(update.Message))
	case update.Phase == tasks.Reporting:
		return fmt.Sprintf("%s %s", label, p.Success(update.Message))
	default:
		return fmt.Sprintf("%s %s", label, update.Message)
	}
}

// RenderReport summarises a finished run.
func RenderReport(p Painter, report *tasks.Report) string {
	if report == nil || report.Result == nil {
		return p.Error("No result available")
	}

	var b strings.Builder
	result := report.Result
	total := result.Submitted + len(result.Failed)

	if len(result.Failed) == 0 {
		b.WriteString(p.Success("✓ Playlist updated"))
	} else {
		b.WriteString(p.Warning(fmt.Sprintf("Playlist updated with %d failures", len(result.Failed))))
	}
	b.WriteString("\n\n")

	if ref := report.Playlist; ref != nil {
		fmt.Fprintf(&b, "Playlist: %s (ID: %s)\n", ref.Name, ref.ID)
		if ref.URL != "" {
			fmt.Fprintf(&b, "URL: %s\n", ref.URL)
		}
	}
	if report.Plan != nil {
		fmt.Fprintf(&b, "Mode: %s\n", report.Plan.Mode)
		if n := len(report.Plan.Skipped); n > 0 {
			fmt.Fprintf(&b, "Already present: %d\n", n)
		}
	}

	rate := 100.0
	if total > 0 {
		rate = float64(result.Submitted) / float64(total) * 100
	}
	fmt.Fprintf(&b, "Submitted: %d/%d (%.1f%%)", result.Submitted, total, rate)

	if len(result.Failed) > 0 {
		b.WriteString("\n\n")
		b.WriteString(p.Warning(fmt.Sprintf("Failed to add %d tracks:", len(result.Failed))))
		for _, f := range result.Failed {
			fmt.Fprintf(&b, "\n  • %s: %s", f.ID, f.Reason())
		}
	}
	return b.String()
}
