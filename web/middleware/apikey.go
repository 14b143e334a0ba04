package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhsanaei/xui-gateway/util/crypto"
	"github.com/mhsanaei/xui-gateway/web/entity"
)

const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests whose X-API-Key header does not match key.
// key may be a bcrypt hash. An empty key disables the check.
func APIKeyAuth(key string) gin.HandlerFunc {
	match := func(got string) bool {
		return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
	}
	if crypto.IsBcryptHash(key) {
		match = func(got string) bool { return crypto.CheckAPIKey(key, got) }
	}
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(APIKeyHeader)
		if got == "" || !match(got) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Detail: "Invalid or missing API key"})
			return
		}
		c.Next()
	}
}

// LocalOnly restricts a route to loopback clients.
func LocalOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.ClientIP() {
		case "127.0.0.1", "::1":
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, entity.ErrorResponse{Detail: "endpoint is only available locally"})
		}
	}
}
