package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"axiapac.com/punchsync/core"
	v1 "axiapac.com/punchsync/erp/v1"
	"axiapac.com/punchsync/kvstore"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("session")

// Provider is the public surface of the session manager.
type Provider interface {
	Authenticate(ctx context.Context, creds *core.Credentials) (*core.Session, error)
	Current(ctx context.Context) (*core.Session, error)
	IsCurrent(ctx context.Context, token string) bool
	Logout(ctx context.Context) error
	LastLogin(ctx context.Context) (*core.LastLogin, error)
}

// userDetails is the session minus its token, stored under
// session.userDetails.
type userDetails struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	LoginName   string `json:"loginName"`
	Database    string `json:"database"`
	BaseURL     string `json:"baseUrl"`
	IsAdmin     bool   `json:"isAdmin"`
	CompanyID   *int64 `json:"companyId,omitempty"`
}

// Manager holds the one session a client instance may have.
type Manager struct {
	client *v1.ErpClient
	store  kvstore.Store
	mu     sync.Mutex
}

var _ Provider = (*Manager)(nil)

func NewManager(client *v1.ErpClient, store kvstore.Store) *Manager {
	return &Manager{client: client, store: store}
}

// Authenticate logs in against <baseUrl>/web/session/authenticate. The
// password in creds is cleared before returning, whatever the outcome. Every
// failure is an *AuthError and leaves no session persisted.
func (m *Manager) Authenticate(ctx context.Context, creds *core.Credentials) (*core.Session, error) {
	defer creds.Clear()

	m.mu.Lock()
	defer m.mu.Unlock()

	baseURL := strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/")
	m.rememberLogin(ctx, core.LastLogin{BaseURL: baseURL, LoginName: creds.LoginName, Database: creds.Database})

	sess, err := m.authenticate(ctx, baseURL, creds)
	if err != nil {
		if clearErr := m.clear(ctx); clearErr != nil {
			log.Errorf("clear session after failed login: %v", clearErr)
		}
		log.Warningf("login %s@%s (db %s) failed: %v", creds.LoginName, baseURL, creds.Database, err)
		return nil, err
	}

	if err := m.persist(ctx, sess); err != nil {
		_ = m.clear(ctx)
		return nil, &AuthError{Kind: Storage, Message: err.Error(), Err: err}
	}

	log.Infof("logged in %s@%s (db %s) as uid %d", sess.LoginName, sess.BaseURL, sess.Database, sess.UserID)
	return sess, nil
}

func (m *Manager) authenticate(ctx context.Context, baseURL string, creds *core.Credentials) (*core.Session, error) {
	resp, err := m.client.Sessions.Authenticate(ctx, baseURL, v1.AuthenticateParams{
		DB:       creds.Database,
		Login:    creds.LoginName,
		Password: creds.Password,
	})
	if err != nil {
		return nil, &AuthError{Kind: ProxyOrNetwork, Message: err.Error(), Err: err}
	}

	rpc, err := v1.DecodeResponse(resp.Body)
	if err != nil {
		return nil, &AuthError{Kind: ProxyOrNetwork, Message: err.Error(), Err: fmt.Errorf("%w: %v", core.ErrProxy, err)}
	}
	if rpc.Error != nil {
		msg := rpc.Error.Describe()
		return nil, &AuthError{Kind: Rejected, Message: msg, Err: fmt.Errorf("%w: %s", core.ErrRemoteRejected, msg)}
	}
	if !resp.OK() {
		msg := fmt.Sprintf("server answered status %d", resp.Status)
		return nil, &AuthError{Kind: ProxyOrNetwork, Message: msg, Err: fmt.Errorf("%w: %s", core.ErrProxy, msg)}
	}

	result := v1.DecodeAuthenticateResult(rpc.Result)

	token := TokenFromSetCookie(resp.Headers.Values("Set-Cookie"))
	if token == "" && usableToken(result.SessionID) {
		token = result.SessionID
	}
	if token == "" {
		return nil, &AuthError{
			Kind:    MissingToken,
			Message: "server accepted the login but returned no session",
			Err:     core.ErrMissingSessionToken,
		}
	}

	sess := &core.Session{
		SessionToken: token,
		DisplayName:  result.Name,
		LoginName:    result.Username,
		Database:     result.DB,
		BaseURL:      baseURL,
		IsAdmin:      result.IsAdmin,
		CompanyID:    result.CompanyID,
	}
	if result.UID != nil {
		sess.UserID = *result.UID
	}
	if sess.LoginName == "" {
		sess.LoginName = creds.LoginName
	}
	if sess.Database == "" {
		sess.Database = creds.Database
	}
	if sess.DisplayName == "" {
		sess.DisplayName = sess.LoginName
	}
	return sess, nil
}

func (m *Manager) persist(ctx context.Context, sess *core.Session) error {
	details, err := json.Marshal(userDetails{
		UserID:      sess.UserID,
		DisplayName: sess.DisplayName,
		LoginName:   sess.LoginName,
		Database:    sess.Database,
		BaseURL:     sess.BaseURL,
		IsAdmin:     sess.IsAdmin,
		CompanyID:   sess.CompanyID,
	})
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, kvstore.KeySessionUserDetails, string(details)); err != nil {
		return fmt.Errorf("persist user details: %w", err)
	}
	if err := m.store.Set(ctx, kvstore.KeySessionToken, sess.SessionToken); err != nil {
		return fmt.Errorf("persist session token: %w", err)
	}
	return nil
}

func (m *Manager) clear(ctx context.Context) error {
	return errors.Join(
		m.store.Remove(ctx, kvstore.KeySessionToken),
		m.store.Remove(ctx, kvstore.KeySessionUserDetails),
	)
}

func (m *Manager) rememberLogin(ctx context.Context, last core.LastLogin) {
	b, err := json.Marshal(last)
	if err == nil {
		err = m.store.Set(ctx, kvstore.KeySessionLastLogin, string(b))
	}
	if err != nil {
		log.Warningf("cache last login: %v", err)
	}
}

// Current loads the persisted session, or core.ErrNoSession.
func (m *Manager) Current(ctx context.Context) (*core.Session, error) {
	token, ok, err := m.store.Get(ctx, kvstore.KeySessionToken)
	if err != nil {
		return nil, err
	}
	if !ok || token == "" {
		return nil, core.ErrNoSession
	}

	raw, ok, err := m.store.Get(ctx, kvstore.KeySessionUserDetails)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrNoSession
	}
	var d userDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode user details: %w", err)
	}

	return &core.Session{
		SessionToken: token,
		UserID:       d.UserID,
		DisplayName:  d.DisplayName,
		LoginName:    d.LoginName,
		Database:     d.Database,
		BaseURL:      d.BaseURL,
		IsAdmin:      d.IsAdmin,
		CompanyID:    d.CompanyID,
	}, nil
}

// IsCurrent reports whether token still belongs to the active session.
func (m *Manager) IsCurrent(ctx context.Context, token string) bool {
	current, _, err := m.store.Get(ctx, kvstore.KeySessionToken)
	return err == nil && token != "" && current == token
}

// Logout asks the server to drop the session, then forgets it locally.
// The remote call is best effort.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.Current(ctx)
	if errors.Is(err, core.ErrNoSession) {
		return nil
	}
	if err == nil {
		if err := m.client.Sessions.Destroy(ctx, sess.BaseURL, sess.Cookie()); err != nil {
			log.Warningf("destroy remote session at %s: %v", sess.BaseURL, err)
		}
		log.Infof("logged out %s@%s", sess.LoginName, sess.BaseURL)
	}
	return m.clear(ctx)
}

func (m *Manager) LastLogin(ctx context.Context) (*core.LastLogin, error) {
	raw, ok, err := m.store.Get(ctx, kvstore.KeySessionLastLogin)
	if err != nil || !ok {
		return nil, err
	}
	var last core.LastLogin
	if err := json.Unmarshal([]byte(raw), &last); err != nil {
		return nil, fmt.Errorf("decode last login: %w", err)
	}
	return &last, nil
}
