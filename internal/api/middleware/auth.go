package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the context key for the authenticated user's id
const UserIDKey = "user_id"

// TokenVerifier checks an access token and returns its user id
type TokenVerifier interface {
	VerifyAccess(token string) (int64, error)
}

// BearerAuth validates "Authorization: Bearer <access>" and stores the user
// id in the context. Failures answer 401 the way simplejwt does.
func BearerAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Authorization header must contain two space-delimited values",
				"code":   "bad_authorization_header",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		userID, err := verifier.VerifyAccess(token)
		if token == "" || err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
