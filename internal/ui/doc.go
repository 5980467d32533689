// Package ui renders workflow progress and run summaries for the terminal.
//
// [Progress] drains a [tasks.ProgressUpdate] channel, printing one styled line per update until the
// channel closes. [RenderReport] formats the final [tasks.Report] with submitted counts and any failed tracks.
//
// Colors come from a small lipgloss [Palette]; output degrades to plain text when the writer is not a terminal.
package ui
