package middleware

import (
	"net/http"
	"strings"

	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/security"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
	"github.com/gin-gonic/gin"
)

const sessionContextKey = "voterSession"

// VoterAuthMiddleware validates the bearer token minted at credential
// verification and attaches the voter session to the request context.
func VoterAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		session, err := security.ValidateVoterToken(strings.TrimPrefix(header, "Bearer "), config.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// SessionFromContext returns the authenticated voter session, if any.
func SessionFromContext(c *gin.Context) (*security.VoterSession, bool) {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	session, ok := value.(*security.VoterSession)
	return session, ok
}
