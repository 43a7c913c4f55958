package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"timetrack.app/timetrack/security"
	"timetrack.app/timetrack/web/common"
)

func parseJwt(tokenStr string, jwtSecret []byte) (*security.IdentityClaims, error) {
	var claims security.IdentityClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the signing method is HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// Authentication checks for a valid Bearer token (or the application cookie)
// and puts the worker identity into the request context.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie("timetrack.ApplicationCookie")
			if err != nil {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}

			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}

			tokenStr = parts[1]
		}

		claims, err := parseJwt(tokenStr, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set("identity", claims.Identity)
		c.Next()
	}
}

// RequireAdmin gates the reporting and approval surface. Must run after
// Authentication.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok || identity.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("admin role required"))
			return
		}
		c.Next()
	}
}

// GetIdentity pulls the authenticated worker identity set by Authentication.
func GetIdentity(c *gin.Context) (security.Identity, bool) {
	v, ok := c.Get("identity")
	if !ok {
		return security.Identity{}, false
	}
	identity, ok := v.(security.Identity)
	return identity, ok
}
