package chart

import (
	"fmt"

	"github.com/desertthunder/spotichart/internal/shared"
)

// FetchError is returned when a chart page could not be downloaded.
//
// Status is zero when no HTTP response was received.
type FetchError struct {
	URL      string
	Status   int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s failed after %d attempt(s)", e.URL, e.Attempts)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == shared.ErrScrape }

// ParseError means the page no longer has the expected ranking table.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse chart: " + e.Reason
}

func (e *ParseError) Is(target error) bool { return target == shared.ErrScrape }
