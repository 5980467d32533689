// package testing contains shared testing utilities: failing writers and transports, file assertions and chart fixtures
package testing

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// NewResponse builds an [http.Response] with the given status and body
func NewResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// ChartRow is one entry of a generated chart page
type ChartRow struct {
	TrackID string
	Name    string
	Artist  string
}

// ChartPage renders a kworb-style weekly totals page with rows in rank order
func ChartPage(rows ...ChartRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="addpos sortable"><thead><tr><th>Pos</th><th>Artist and Title</th><th>Streams</th></tr></thead><tbody>`)
	for i, r := range rows {
		fmt.Fprintf(&b, `<tr><td>%d</td><td class="text mp"><div><a href="../artist/%d.html">%s</a> - <a href="../track/%s.html">%s</a></div></td><td>1,000</td></tr>`,
			i+1, i, r.Artist, r.TrackID, r.Name)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

// ChartIDs renders a chart page for ids with generated names
func ChartIDs(ids ...string) string {
	rows := make([]ChartRow, len(ids))
	for i, id := range ids {
		rows[i] = ChartRow{TrackID: id, Name: fmt.Sprintf("Song %d", i+1), Artist: fmt.Sprintf("Artist %d", i+1)}
	}
	return ChartPage(rows...)
}
