package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"axiapac.com/punchsync/core"
	v1 "axiapac.com/punchsync/erp/v1"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelayer struct {
	res *v1.RelayResponse
	err error

	gotTarget  string
	gotPayload string
	gotCookies string
}

func (f *fakeRelayer) Relay(_ context.Context, targetURL string, payload any, cookies string) (*v1.RelayResponse, error) {
	f.gotTarget = targetURL
	raw, _ := json.Marshal(payload)
	f.gotPayload = string(raw)
	f.gotCookies = cookies
	return f.res, f.err
}

func relayRouter(relayer v1.Relayer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/relay", NewRelayEndpoint(relayer).Relay)
	return r
}

func postRelay(r *gin.Engine, body string, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/relay", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRelaySuccess(t *testing.T) {
	upstream := http.Header{}
	upstream.Add("Set-Cookie", "session_id=abc; Path=/")
	upstream.Add("Set-Cookie", "tz=UTC; Path=/")
	upstream.Set("X-Odoo-Version", "17.0")
	upstream.Set("Transfer-Encoding", "chunked")
	upstream.Set("Content-Encoding", "gzip")
	upstream.Set("Content-Length", "999")

	fake := &fakeRelayer{res: &v1.RelayResponse{Status: 200, Body: json.RawMessage(`{"jsonrpc":"2.0","id":"1","result":{"uid":2}}`), Headers: upstream}}
	r := relayRouter(fake)

	w := postRelay(r, `{"targetUrl":"https://erp.example.com/web/session/authenticate","payload":{"jsonrpc":"2.0","method":"call","params":{"db":"prod"}}}`, "session_id=old")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "https://erp.example.com/web/session/authenticate", fake.gotTarget)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"call","params":{"db":"prod"}}`, fake.gotPayload)
	assert.Equal(t, "session_id=old", fake.gotCookies)

	assert.Equal(t, []string{"session_id=abc; Path=/", "tz=UTC; Path=/"}, w.Header().Values("Set-Cookie"))
	assert.Equal(t, "17.0", w.Header().Get("X-Odoo-Version"))
	assert.Empty(t, w.Header().Get("Transfer-Encoding"))
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.NotEqual(t, "999", w.Header().Get("Content-Length"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"uid": float64(2)}, body["result"])
	debug := body["debug_headers"].(map[string]any)
	assert.Equal(t, []any{"session_id=abc; Path=/", "tz=UTC; Path=/"}, debug["Set-Cookie"])
	assert.Equal(t, "17.0", debug["X-Odoo-Version"])
}

func TestRelayDoesNotForwardOperatorToken(t *testing.T) {
	fake := &fakeRelayer{res: &v1.RelayResponse{Status: 200, Body: json.RawMessage(`{"result":true}`), Headers: http.Header{}}}
	r := relayRouter(fake)

	w := postRelay(r, `{"targetUrl":"https://erp.example.com/x","payload":{}}`, "punchsync.token=SIGNEDJWT; session_id=abc")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "session_id=abc", fake.gotCookies)

	postRelay(r, `{"targetUrl":"https://erp.example.com/x","payload":{}}`, "punchsync.token=SIGNEDJWT")
	assert.Empty(t, fake.gotCookies)
}

func TestForwardedCookies(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"session_id=abc", "session_id=abc"},
		{"tz=UTC; punchsync.token=x.y.z; session_id=abc", "tz=UTC; session_id=abc"},
		{" punchsync.token = x ;session_id=abc", "session_id=abc"},
		{"punchsync.tokenish=1", "punchsync.tokenish=1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ForwardedCookies(tt.header), tt.header)
	}
}

func TestRelayKeepsLargeIntegers(t *testing.T) {
	body := `{"jsonrpc":"2.0","result":{"id":9007199254740993,"amount":12.50,"ids":[18446744073709551615]}}`
	fake := &fakeRelayer{res: &v1.RelayResponse{Status: 200, Body: json.RawMessage(body), Headers: http.Header{}}}

	w := postRelay(relayRouter(fake), `{"targetUrl":"https://erp.example.com/x","payload":{}}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Contains(t, w.Body.String(), `"id":9007199254740993`)
	assert.Contains(t, w.Body.String(), `18446744073709551615`)
	assert.Contains(t, w.Body.String(), `"amount":12.50`)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotContains(t, got, "data")
	assert.JSONEq(t, `{}`, string(got["debug_headers"]))
}

func TestRelayPassesUpstreamStatus(t *testing.T) {
	fake := &fakeRelayer{res: &v1.RelayResponse{Status: 500, Body: json.RawMessage(`[1,2]`), Headers: http.Header{}}}
	w := postRelay(relayRouter(fake), `{"targetUrl":"http://erp.local","payload":{}}`, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"data":[1,2],"debug_headers":{}}`, w.Body.String())
	assert.Empty(t, fake.gotCookies)
}

func TestRelayFailures(t *testing.T) {
	pageHeaders := http.Header{"Content-Type": {"text/html"}, "Server": {"nginx"}}

	tests := []struct {
		name    string
		err     error
		status  int
		errKind string
	}{
		{"non json", &v1.RelayError{Kind: v1.NonJSON, Target: "http://erp", Status: 502, Snippet: "<html>Bad Gateway</html>", Headers: pageHeaders}, http.StatusBadGateway, "non_json"},
		{"unreachable", &v1.RelayError{Kind: v1.Unreachable, Target: "http://erp", Err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unreachable"},
		{"malformed", &v1.RelayError{Kind: v1.Malformed, Target: "http://erp", Status: 200, Err: errors.New("invalid JSON body")}, http.StatusBadGateway, "malformed"},
		{"other", errors.New("boom"), http.StatusBadGateway, "proxy_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postRelay(relayRouter(&fakeRelayer{err: tt.err}), `{"targetUrl":"http://erp","payload":{}}`, "")
			assert.Equal(t, tt.status, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.errKind, body["error"])
			assert.NotEmpty(t, body["details"])
		})
	}

	w := postRelay(relayRouter(&fakeRelayer{err: tests[0].err}), `{"targetUrl":"http://erp","payload":{}}`, "")
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(502), body["status"])
	assert.Equal(t, "<html>Bad Gateway</html>", body["snippet"])
	assert.Equal(t, "nginx", body["debug_headers"].(map[string]any)["Server"])
}

func TestRelayRejectsBadTargetWithoutCalling(t *testing.T) {
	upstreamCalled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { upstreamCalled = true }))
	defer srv.Close()

	r := relayRouter(v1.NewTransport(time.Second))
	w := postRelay(r, `{"targetUrl":"ftp://`+strings.TrimPrefix(srv.URL, "http://")+`","payload":{}}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"invalid_target"`)
	assert.False(t, upstreamCalled)

	w = postRelay(r, `{"payload":{}}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "relay target URL (targetUrl) is required")
}

func TestRelayErrorsUnwrapToTaxonomy(t *testing.T) {
	err := &v1.RelayError{Kind: v1.Unreachable, Err: errors.New("refused")}
	assert.ErrorIs(t, err, core.ErrNetworkUnreachable)
}
