package webserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stake-plus/council-treasury/src/council/identity"
)

// principalKey holds the authenticated canonical principal in the gin
// context.
const principalKey = "addr"

func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "missing bearer token", "code": "Unauthorized"})
			return
		}
		principal, err := identity.ParseJWT(h[7:], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": err.Error(), "code": "Unauthorized"})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func principal(c *gin.Context) string { return c.GetString(principalKey) }
