package handlers

import (
	"errors"
	"net/http"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/session"
	"axiapac.com/punchsync/web/common"
	"github.com/gin-gonic/gin"
)

type SessionEndpoint struct {
	sessions session.Provider
}

func NewSessionEndpoint(sessions session.Provider) *SessionEndpoint {
	return &SessionEndpoint{sessions: sessions}
}

func authStatus(kind session.AuthErrorKind) int {
	switch kind {
	case session.Rejected:
		return http.StatusUnauthorized
	case session.Storage:
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func (ep *SessionEndpoint) Login(c *gin.Context) {
	var creds core.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	sess, err := ep.sessions.Authenticate(c.Request.Context(), &creds)
	if err != nil {
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			c.JSON(authStatus(authErr.Kind), common.NewKindErrorResponse(string(authErr.Kind), authErr.Message))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(sess))
}

func (ep *SessionEndpoint) Logout(c *gin.Context) {
	if err := ep.sessions.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

func (ep *SessionEndpoint) Current(c *gin.Context) {
	sess, err := ep.sessions.Current(c.Request.Context())
	if errors.Is(err, core.ErrNoSession) {
		c.JSON(http.StatusNotFound, common.NewErrorResponse("not logged in"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(sess))
}

func (ep *SessionEndpoint) LastLogin(c *gin.Context) {
	last, err := ep.sessions.LastLogin(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(last))
}
