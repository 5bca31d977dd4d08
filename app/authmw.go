package app

import (
	"net/http"
	"strings"

	"devicepool/identity"

	"github.com/gin-gonic/gin"
)

// AuthRequired resolves the bearer token to a subject id and puts it
// in the request context as "userID".
func AuthRequired(v identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{
				"ok":    false,
				"error": H{"code": "UNAUTHORIZED", "message": "missing bearer token"},
			})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		userID, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{
				"ok":    false,
				"error": H{"code": "UNAUTHORIZED", "message": "invalid token"},
			})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}
