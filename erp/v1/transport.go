package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"axiapac.com/punchsync/core"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("relay")

const (
	// SnippetLimit bounds how much of a non-JSON body is kept for errors and logs.
	SnippetLimit  = 500
	snippetMarker = "..."
	maxBodyBytes  = 10 << 20
)

type RelayErrorKind string

const (
	InvalidTarget RelayErrorKind = "invalid_target"
	Unreachable   RelayErrorKind = "unreachable"
	NonJSON       RelayErrorKind = "non_json"
	Malformed     RelayErrorKind = "malformed"
)

// RelayError is a relay failure. Unreachable means the target was never
// reached; the other kinds mean the target answered with something the relay
// could not hand back as JSON.
type RelayError struct {
	Kind    RelayErrorKind
	Target  string
	Status  int
	Snippet string
	Headers http.Header
	Err     error
}

func (e *RelayError) Error() string {
	switch e.Kind {
	case InvalidTarget:
		return fmt.Sprintf("invalid relay target %q: must start with http:// or https://", e.Target)
	case Unreachable:
		return fmt.Sprintf("could not reach %s: %v", e.Target, e.Err)
	case NonJSON:
		return fmt.Sprintf("%s returned non-JSON response (status %d): %s", e.Target, e.Status, e.Snippet)
	}
	return fmt.Sprintf("%s returned unreadable response (status %d): %v", e.Target, e.Status, e.Err)
}

func (e *RelayError) Unwrap() []error {
	var errs []error
	switch e.Kind {
	case Unreachable:
		errs = []error{core.ErrNetworkUnreachable}
	case InvalidTarget:
		errs = []error{core.ErrProxy, core.ErrInvalidTarget}
	default:
		errs = []error{core.ErrProxy}
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// RelayResponse is an upstream JSON answer with every response header.
// Lookups through http.Header are case-insensitive.
type RelayResponse struct {
	Status  int
	Body    json.RawMessage
	Headers http.Header
}

// OK reports a 2xx status.
func (r *RelayResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transport performs the single outbound POST behind every relay call.
// It keeps no state between calls.
type Transport struct {
	HTTPClient *http.Client
}

// NewTransport creates a transport with the per-request timeout.
func NewTransport(timeout time.Duration) *Transport {
	return &Transport{
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// helper: join base URL and path with exactly one slash
func buildURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func validTarget(target string) bool {
	t := strings.ToLower(target)
	return strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://")
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Snippet truncates b to at most SnippetLimit characters, the "..." marker
// included.
func Snippet(b []byte) string {
	s := []rune(string(b))
	if len(s) <= SnippetLimit {
		return string(s)
	}
	return string(s[:SnippetLimit-len(snippetMarker)]) + snippetMarker
}

// Relay posts payload as JSON to targetURL, forwarding cookies as the Cookie
// header when set. It never retries.
func (t *Transport) Relay(ctx context.Context, targetURL string, payload any, cookies string) (*RelayResponse, error) {
	if !validTarget(targetURL) {
		return nil, &RelayError{Kind: InvalidTarget, Target: targetURL}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &RelayError{Kind: Malformed, Target: targetURL, Err: fmt.Errorf("encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, &RelayError{Kind: InvalidTarget, Target: targetURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		log.Warningf("relay to %s failed: %v", targetURL, err)
		return nil, &RelayError{Kind: Unreachable, Target: targetURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RelayError{Kind: Unreachable, Target: targetURL, Status: resp.StatusCode, Headers: resp.Header, Err: err}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		snippet := Snippet(raw)
		log.Warningf("relay to %s: non-JSON response status=%d body=%q", targetURL, resp.StatusCode, snippet)
		return nil, &RelayError{Kind: NonJSON, Target: targetURL, Status: resp.StatusCode, Snippet: snippet, Headers: resp.Header}
	}

	if !json.Valid(raw) {
		return nil, &RelayError{
			Kind:    Malformed,
			Target:  targetURL,
			Status:  resp.StatusCode,
			Snippet: Snippet(raw),
			Headers: resp.Header,
			Err:     errors.New("invalid JSON body"),
		}
	}

	log.Debugf("relay to %s: status=%d", targetURL, resp.StatusCode)
	return &RelayResponse{
		Status:  resp.StatusCode,
		Body:    raw,
		Headers: resp.Header,
	}, nil
}

// Post relays to a path under baseURL.
func (t *Transport) Post(ctx context.Context, baseURL, path string, payload any, cookies string) (*RelayResponse, error) {
	return t.Relay(ctx, buildURL(baseURL, path), payload, cookies)
}
