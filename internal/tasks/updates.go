package tasks

import (
	"fmt"

	"github.com/desertthunder/spotichart/internal/models"
)

// ProgressUpdate represents a progress event during a run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Scraping Phase = iota
	Deduping
	Locating
	Planning
	Applying
	Reporting
)

func (p Phase) String() string {
	switch p {
	case Scraping:
		return "scrape"
	case Deduping:
		return "dedupe"
	case Locating:
		return "locate"
	case Planning:
		return "plan"
	case Applying:
		return "apply"
	case Reporting:
		return "report"
	default:
		return ""
	}
}

func scrapeUpdate(source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Scraping,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching chart from %s...", source),
	}
}

func scrapedUpdate(snapshot *models.ChartSnapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Scraping,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d chart entries", len(snapshot.Tracks)),
		Data:    snapshot,
	}
}

func dedupeUpdate(before, after int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Deduping,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d unique tracks (%d duplicates removed)", after, before-after),
	}
}

func locateUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Locating,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Looking for playlist %q...", name),
	}
}

func foundPlaylistUpdate(ref *models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Locating,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Found playlist: %s (ID: %s)", ref.Name, ref.ID),
		Data:    ref,
	}
}

func createdPlaylistUpdate(ref *models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Locating,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", ref.Name, ref.ID),
		Data:    ref,
	}
}

func planUpdate(plan *models.UpdatePlan) ProgressUpdate {
	msg := fmt.Sprintf("Planned %d tracks (%s)", len(plan.TrackIDs), plan.Mode)
	if len(plan.Skipped) > 0 {
		msg = fmt.Sprintf("%s, %d already present", msg, len(plan.Skipped))
	}
	return ProgressUpdate{
		Phase:   Planning,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    plan,
	}
}

func chunkUpdate(step, total, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Applying,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Submitting %d tracks...", step, total, size),
	}
}

func chunkFailedUpdate(step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Applying,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %v", step, total, err),
	}
}

func reportUpdate(result *models.BatchResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reporting,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Submitted %d tracks, %d failed", result.Submitted, len(result.Failed)),
		Data:    result,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
