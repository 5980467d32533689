// Package models defines the value types shared by the chart scraper, the playlist workflow and the run history store.
//
// # Chart Types
//
// A [ChartSnapshot] is the ordered list of [Track] values scraped for one region.
// Tracks carry an opaque catalog ID plus optional display metadata.
//
// # Playlist Types
//
// [PlaylistRef] is a transient handle to a playlist owned by the current user.
// An [UpdatePlan] pairs a playlist with an [UpdateMode] and the de-duplicated IDs to write.
// Applying a plan yields a [BatchResult] whose submitted and failed counts always add up to the plan size.
//
// # Persisted Types
//
// [Run] implements [Model] and is stored by repositories.RunRepository.
package models
