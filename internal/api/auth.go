package api

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	basicPrefix         = "Basic "
)

// VerifyAdmin checks an Authorization header against the admin password.
// Bearer carries the password itself; Basic carries it after the first colon.
// An empty configured password rejects every request.
func VerifyAdmin(header, password string) bool {
	if password == "" || header == "" {
		return false
	}

	var supplied string
	switch {
	case strings.HasPrefix(header, bearerPrefix):
		supplied = strings.TrimPrefix(header, bearerPrefix)
	case strings.HasPrefix(header, basicPrefix):
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, basicPrefix))
		if err != nil {
			return false
		}
		_, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			return false
		}
		supplied = pass
	default:
		return false
	}

	return subtle.ConstantTimeCompare([]byte(supplied), []byte(password)) == 1
}

// AdminAuth rejects requests without a valid admin credential
func AdminAuth(password string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !VerifyAdmin(c.GetHeader(authorizationHeader), password) {
			logger.Warn("Rejected admin request",
				zap.String("path", c.FullPath()),
				zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// sanitize strips contact details from text shown on public endpoints
func sanitize(text string) string {
	return core.SanitizeBody(text, 0)
}
