package core

// Session is the single active login against the remote ERP.
type Session struct {
	SessionToken string `json:"sessionToken"`
	UserID       int64  `json:"userId"`
	DisplayName  string `json:"displayName"`
	LoginName    string `json:"loginName"`
	Database     string `json:"database"`
	BaseURL      string `json:"baseUrl"`
	IsAdmin      bool   `json:"isAdmin"`
	CompanyID    *int64 `json:"companyId,omitempty"`
}

// Cookie renders the session as the Cookie header value the ERP expects.
func (s *Session) Cookie() string {
	if s == nil || s.SessionToken == "" {
		return ""
	}
	return "session_id=" + s.SessionToken
}

// Credentials are held only for the duration of one authentication.
type Credentials struct {
	BaseURL   string `json:"baseUrl" binding:"required,url"`
	LoginName string `json:"login" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Database  string `json:"db" binding:"required"`
}

// Clear drops the password so it does not outlive the login attempt.
func (c *Credentials) Clear() {
	c.Password = ""
}

// LastLogin is the non-secret part of the credentials, kept for pre-fill.
type LastLogin struct {
	BaseURL   string `json:"baseUrl"`
	LoginName string `json:"login"`
	Database  string `json:"db"`
}
