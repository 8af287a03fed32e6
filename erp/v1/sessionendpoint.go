package v1

import (
	"context"
	"encoding/json"
)

const (
	AuthenticatePath = "/web/session/authenticate"
	DestroyPath      = "/web/session/destroy"
)

type AuthenticateParams struct {
	DB       string `json:"db"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

// AuthenticateResult is the subset of the ERP's session info we keep.
// The server reports missing values as false, so the fields are decoded
// leniently rather than through struct tags.
type AuthenticateResult struct {
	SessionID string
	UID       *int64
	Name      string
	Username  string
	DB        string
	IsAdmin   bool
	CompanyID *int64
}

// DecodeAuthenticateResult reads the fields it recognises from raw and
// ignores the rest.
func DecodeAuthenticateResult(raw json.RawMessage) AuthenticateResult {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return AuthenticateResult{}
	}

	res := AuthenticateResult{
		SessionID: asString(m["session_id"]),
		UID:       asInt(m["uid"]),
		Name:      asString(m["name"]),
		Username:  asString(m["username"]),
		DB:        asString(m["db"]),
		IsAdmin:   asBool(m["is_admin"]) || asBool(m["is_system"]),
		CompanyID: asInt(m["company_id"]),
	}
	if res.CompanyID == nil {
		if companies, ok := m["user_companies"].(map[string]any); ok {
			res.CompanyID = asInt(companies["current_company"])
		}
	}
	return res
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// asInt accepts a number or a [id, "name"] many2one pair.
func asInt(v any) *int64 {
	switch t := v.(type) {
	case float64:
		n := int64(t)
		return &n
	case []any:
		if len(t) > 0 {
			return asInt(t[0])
		}
	}
	return nil
}

type SessionEndpoint struct {
	transport Relayer
}

func (e *SessionEndpoint) Authenticate(ctx context.Context, baseURL string, params AuthenticateParams) (*RelayResponse, error) {
	return e.transport.Relay(ctx, buildURL(baseURL, AuthenticatePath), NewRequest(params), "")
}

// Destroy ends the server-side session. Only transport errors are reported.
func (e *SessionEndpoint) Destroy(ctx context.Context, baseURL string, cookie string) error {
	_, err := e.transport.Relay(ctx, buildURL(baseURL, DestroyPath), NewRequest(map[string]any{}), cookie)
	return err
}
