// Package tasks turns a chart into a playlist, reporting progress as it goes.
//
// # Workflow
//
// [Workflow.Run] performs one reconciliation:
//
//  1. Scrape : fetch the chart page and parse up to the requested number of entries
//  2. Dedupe : drop repeated track IDs, keeping the first (highest ranked) occurrence
//  3. Locate : find the user's playlist by exact name, creating it when missing or when mode is new
//  4. Plan   : for append, drop tracks already in the playlist
//  5. Apply  : resolve and write the tracks in paced batches
//  6. Report : return the playlist, plan and [models.BatchResult]
//
// Nothing is written before the Locate phase. Applied batches are not rolled back after a fatal error.
//
// # Batching
//
// [Updater] writes at most 100 URIs per request. In replace mode the first successful batch replaces
// the playlist contents and later batches append; an empty plan clears the playlist. Rate limited
// requests are retried per [RetryPolicy]; authorization failures and exhausted retries stop the run.
// Any other batch failure is recorded against its tracks and the run continues.
//
// The result always accounts for every planned track: Submitted plus len(Failed) equals the plan size.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default so a slow reader never blocks a run.
//
// # Playlist Lookup
//
// [Locator] caches name lookups in memory for a configurable TTL. Nothing is persisted between runs.
package tasks
