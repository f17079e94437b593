package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GatewayAuth trusts identity headers set by an authenticating reverse
// proxy (X-Auth-Request-User, X-Auth-Request-Email, X-Auth-Request-Groups),
// the header set oauth2-proxy and friends emit after validating a session.
//
// When AUTH_MODE=gateway, the API trusts these headers unconditionally.
// This should ONLY be used behind a proxy with proper network isolation.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader("X-Auth-Request-User")
		email := c.GetHeader("X-Auth-Request-Email")

		if user == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-Auth-Request-User header from gateway",
			})
			c.Abort()
			return
		}

		// Set context values
		c.Set("user_id_str", user)
		c.Set("user_email", email)
		if groups := c.GetHeader("X-Auth-Request-Groups"); groups != "" {
			c.Set("user_groups", groups)
		}

		c.Next()
	}
}
