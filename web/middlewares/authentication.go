package middlewares

import (
	"net/http"
	"strings"

	"axiapac.com/punchsync/security"
	"axiapac.com/punchsync/web/common"
	"github.com/gin-gonic/gin"
)

const (
	TokenCookie = "punchsync.token"
	IdentityKey = "identity"
)

// Authentication checks for a valid Bearer token, or the token cookie when
// there is no Authorization header.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie(TokenCookie)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing token"))
				return
			}

			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("malformed authorization header"))
				return
			}

			tokenStr = parts[1]
		}

		claims, err := security.ParseIdentityToken(tokenStr, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(IdentityKey, claims.Identity)
		c.Next()
	}
}
