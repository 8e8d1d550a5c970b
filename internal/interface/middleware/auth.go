package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/pkg/response"
)

// Auth resolves the session cookie through the identity provider. A request
// with no cookie, an expired session, or a withdrawn user is rejected before
// any handler runs. On success the Gin context carries userID, userName,
// userEmail and sessionToken.
func Auth(provider application.IdentityProvider, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing session token", nil)
			c.Abort()
			return
		}
		sess, user, err := provider.GetSession(c.Request.Context(), token)
		if err != nil {
			response.Error[any](c, http.StatusInternalServerError, "session lookup failed", nil)
			c.Abort()
			return
		}
		if sess == nil || user == nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid or expired session", nil)
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Set("userName", user.Name)
		c.Set("userEmail", user.Email)
		c.Set("sessionToken", sess.Token)
		c.Next()
	}
}
