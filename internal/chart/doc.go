// Package chart scrapes weekly chart rankings from kworb.net.
//
// Fetching and parsing are separate steps. A [Fetcher] downloads a chart page with retries:
// transport errors, timeouts, 5xx, 408 and 429 responses are retried with capped exponential
// backoff while any other 4xx fails immediately. [Parse] turns the page into a
// models.ChartSnapshot without doing any I/O.
//
// Failures are reported as [*FetchError] or [*ParseError]; both match shared.ErrScrape with errors.Is.
package chart
