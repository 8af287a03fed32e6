package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"axiapac.com/punchsync/core"
	v1 "axiapac.com/punchsync/erp/v1"
	"axiapac.com/punchsync/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubERP struct {
	setCookie  []string
	body       string
	status     int
	gotParams  v1.AuthenticateParams
	gotPath    string
	destroyed  bool
	destroyCk  string
	authCalled int
}

func (s *stubERP) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == v1.DestroyPath {
			s.destroyed = true
			s.destroyCk = r.Header.Get("Cookie")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"jsonrpc":"2.0","result":null}`))
			return
		}
		s.authCalled++
		s.gotPath = r.URL.Path
		var req struct {
			Params v1.AuthenticateParams `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.gotParams = req.Params

		for _, c := range s.setCookie {
			w.Header().Add("Set-Cookie", c)
		}
		w.Header().Set("Content-Type", "application/json")
		if s.status != 0 {
			w.WriteHeader(s.status)
		}
		w.Write([]byte(s.body))
	})
}

func newTestManager(t *testing.T, stub *stubERP) (*Manager, *kvstore.MemoryStore, string) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	store := kvstore.NewMemoryStore()
	return NewManager(v1.NewErpClient(v1.NewTransport(time.Second)), store), store, srv.URL
}

func creds(url string) *core.Credentials {
	return &core.Credentials{BaseURL: url + "/", LoginName: "admin", Password: "secret", Database: "prod"}
}

const okResult = `{"jsonrpc":"2.0","result":{"uid":2,"name":"Mitchell Admin","username":"admin","db":"prod","is_admin":true,"company_id":1}}`

func TestAuthenticateTokenFromSetCookie(t *testing.T) {
	stub := &stubERP{
		setCookie: []string{"session_id=tok-123; Expires=Wed, 21 Oct 2026 07:28:00 GMT; Path=/; HttpOnly"},
		body:      okResult,
	}
	m, store, url := newTestManager(t, stub)

	c := creds(url)
	sess, err := m.Authenticate(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, "", c.Password)
	assert.Equal(t, v1.AuthenticatePath, stub.gotPath)
	assert.Equal(t, v1.AuthenticateParams{DB: "prod", Login: "admin", Password: "secret"}, stub.gotParams)

	assert.Equal(t, "tok-123", sess.SessionToken)
	assert.Equal(t, int64(2), sess.UserID)
	assert.Equal(t, "Mitchell Admin", sess.DisplayName)
	assert.Equal(t, url, sess.BaseURL)
	assert.True(t, sess.IsAdmin)
	require.NotNil(t, sess.CompanyID)
	assert.Equal(t, int64(1), *sess.CompanyID)

	token, ok, _ := store.Get(context.Background(), kvstore.KeySessionToken)
	assert.True(t, ok)
	assert.Equal(t, "tok-123", token)

	current, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sess, current)
	assert.True(t, m.IsCurrent(context.Background(), "tok-123"))

	last, err := m.LastLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &core.LastLogin{BaseURL: url, LoginName: "admin", Database: "prod"}, last)
}

func TestAuthenticateIgnoresFalseCookieAndFallsBackToBody(t *testing.T) {
	stub := &stubERP{
		setCookie: []string{"session_id=false; Path=/", "session_id=; Path=/"},
		body:      `{"jsonrpc":"2.0","result":{"uid":5,"session_id":"body-tok"}}`,
	}
	m, _, url := newTestManager(t, stub)

	sess, err := m.Authenticate(context.Background(), creds(url))
	require.NoError(t, err)
	assert.Equal(t, "body-tok", sess.SessionToken)
	// missing fields fall back to what was supplied
	assert.Equal(t, "admin", sess.LoginName)
	assert.Equal(t, "prod", sess.Database)
	assert.Equal(t, "admin", sess.DisplayName)
}

func TestAuthenticateRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"data message", `{"jsonrpc":"2.0","error":{"code":200,"message":"Odoo Server Error","data":{"name":"odoo.exceptions.AccessDenied","message":"Access Denied"}}}`, "Access Denied"},
		{"arguments", `{"jsonrpc":"2.0","error":{"code":200,"message":"Odoo Server Error","data":{"arguments":["database","prod","does not exist"]}}}`, "database, prod, does not exist"},
		{"message", `{"jsonrpc":"2.0","error":{"code":100,"message":"Session Expired"}}`, "Session Expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubERP{setCookie: []string{"session_id=should-not-be-used"}, body: tt.body}
			m, store, url := newTestManager(t, stub)
			require.NoError(t, store.Set(context.Background(), kvstore.KeySessionToken, "previous"))

			c := creds(url)
			sess, err := m.Authenticate(context.Background(), c)
			assert.Nil(t, sess)
			assert.Equal(t, "", c.Password)

			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, Rejected, authErr.Kind)
			assert.Equal(t, tt.want, authErr.Message)
			assert.ErrorIs(t, err, core.ErrRemoteRejected)

			_, ok, _ := store.Get(context.Background(), kvstore.KeySessionToken)
			assert.False(t, ok)
			_, err = m.Current(context.Background())
			assert.ErrorIs(t, err, core.ErrNoSession)
		})
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	stub := &stubERP{setCookie: []string{"session_id=false"}, body: okResult}
	m, store, url := newTestManager(t, stub)

	sess, err := m.Authenticate(context.Background(), creds(url))
	assert.Nil(t, sess)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, MissingToken, authErr.Kind)
	assert.ErrorIs(t, err, core.ErrMissingSessionToken)
	assert.NotErrorIs(t, err, core.ErrRemoteRejected)

	_, ok, _ := store.Get(context.Background(), kvstore.KeySessionToken)
	assert.False(t, ok)
}

func TestAuthenticateNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := NewManager(v1.NewErpClient(v1.NewTransport(time.Second)), kvstore.NewMemoryStore())
	c := creds(url)
	sess, err := m.Authenticate(context.Background(), c)
	assert.Nil(t, sess)
	assert.Equal(t, "", c.Password)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ProxyOrNetwork, authErr.Kind)
	assert.ErrorIs(t, err, core.ErrNetworkUnreachable)
}

func TestAuthenticateInvalidBaseURL(t *testing.T) {
	m := NewManager(v1.NewErpClient(v1.NewTransport(time.Second)), kvstore.NewMemoryStore())
	_, err := m.Authenticate(context.Background(), &core.Credentials{BaseURL: "erp.local", LoginName: "a", Password: "b", Database: "c"})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ProxyOrNetwork, authErr.Kind)
	assert.ErrorIs(t, err, core.ErrProxy)
}

func TestAuthenticateNonJSONErrorPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<h1>502 Bad Gateway</h1>"))
	}))
	defer srv.Close()

	m := NewManager(v1.NewErpClient(v1.NewTransport(time.Second)), kvstore.NewMemoryStore())
	_, err := m.Authenticate(context.Background(), creds(srv.URL))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ProxyOrNetwork, authErr.Kind)
	assert.Contains(t, authErr.Message, "502 Bad Gateway")
}

func TestLogout(t *testing.T) {
	stub := &stubERP{setCookie: []string{"session_id=tok-9"}, body: okResult}
	m, store, url := newTestManager(t, stub)

	_, err := m.Authenticate(context.Background(), creds(url))
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))
	assert.True(t, stub.destroyed)
	assert.Equal(t, "session_id=tok-9", stub.destroyCk)

	_, ok, _ := store.Get(context.Background(), kvstore.KeySessionToken)
	assert.False(t, ok)
	assert.False(t, m.IsCurrent(context.Background(), "tok-9"))

	// logging out twice is harmless
	assert.NoError(t, m.Logout(context.Background()))
}

func TestTokenFromSetCookie(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"single", []string{"session_id=abc; Path=/"}, "abc"},
		{"joined", []string{"frontend_lang=en_US; Path=/, session_id=xyz; HttpOnly"}, "xyz"},
		{"false skipped", []string{"session_id=false; Path=/", "session_id=real"}, "real"},
		{"empty skipped", []string{"session_id=; Path=/"}, ""},
		{"other cookie only", []string{"tz=UTC"}, ""},
		{"none", nil, ""},
		{"quoted", []string{`session_id="q1"; Path=/`}, "q1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenFromSetCookie(tt.values))
		})
	}
}
