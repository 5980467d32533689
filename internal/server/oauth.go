package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
)

const defaultCallbackPath = "/callback"

var callbackTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>spotichart: {{.Title}}</title>
<style>
body { margin: 0; padding: 5rem 1rem; background: #121212; color: #b3b3b3;
       font: 16px/1.5 system-ui, sans-serif; text-align: center; }
h1 { margin: 0 0 .5rem; font-size: 1.5rem; color: {{if .OK}}#1db954{{else}}#f15e6c{{end}}; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Detail}}</p>
</body>
</html>
`))

// callbackPage is what the browser shows once the redirect lands.
type callbackPage struct {
	OK     bool
	Title  string
	Detail string
}

// OAuthResult is the outcome of one authorization callback.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler receives the authorization code redirect and trades the code for a token.
//
// Only the first request is processed; the outcome is delivered once on [OAuthHandler.Result].
type OAuthHandler struct {
	config *oauth2.Config
	state  string
	client *http.Client

	served  atomic.Bool
	once    sync.Once
	results chan OAuthResult
}

// NewOAuthHandler creates a handler expecting state on the callback. A nil client uses
// [http.DefaultClient] for the code exchange.
func NewOAuthHandler(config *oauth2.Config, state string, client *http.Client) *OAuthHandler {
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuthHandler{
		config:  config,
		state:   state,
		client:  client,
		results: make(chan OAuthResult, 1),
	}
}

// Routes returns the path of the config's redirect URL, or /callback when it has none.
func (h *OAuthHandler) Routes() []string {
	return []string{CallbackPath(h.config.RedirectURL)}
}

// CallbackPath extracts the path the authorization server redirects to.
func CallbackPath(redirectURL string) string {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return defaultCallbackPath
	}
	return u.Path
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.served.CompareAndSwap(false, true) {
		render(w, http.StatusBadRequest, callbackPage{
			Title:  "Already handled",
			Detail: "This login finished earlier. Check the terminal for the result.",
		})
		return
	}

	token, status, err := h.complete(r)
	h.Send(OAuthResult{Token: token, err: err})

	if err != nil {
		render(w, status, callbackPage{
			Title:  "Spotify login failed",
			Detail: err.Error() + ". Run spotichart auth to try again.",
		})
		return
	}
	render(w, http.StatusOK, callbackPage{
		OK:     true,
		Title:  "spotichart can reach your playlists",
		Detail: "The token is on its way to the terminal. This tab can be closed.",
	})
}

// complete checks the redirect parameters and exchanges the code. The returned status is the one
// the browser should see.
func (h *OAuthHandler) complete(r *http.Request) (*oauth2.Token, int, error) {
	q := r.URL.Query()

	if q.Get("state") != h.state {
		return nil, http.StatusBadRequest, errors.New("state mismatch, the redirect belongs to another login")
	}
	if reason := q.Get("error"); reason != "" {
		if desc := q.Get("error_description"); desc != "" {
			reason += " (" + desc + ")"
		}
		return nil, http.StatusBadRequest, fmt.Errorf("spotify refused access: %s", reason)
	}

	code := q.Get("code")
	if code == "" {
		return nil, http.StatusBadRequest, errors.New("redirect carried no authorization code")
	}

	ctx := context.WithValue(r.Context(), oauth2.HTTPClient, h.client)
	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		return nil, http.StatusBadGateway, fmt.Errorf("code exchange failed: %w", err)
	}
	return token, http.StatusOK, nil
}

func render(w http.ResponseWriter, status int, page callbackPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackTemplate.Execute(w, page)
}

// Send delivers result to [OAuthHandler.Result]. Calls after the first are ignored.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result yields exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
