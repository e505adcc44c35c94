package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// gin context keys for the token's claims
const (
	subjectKey = "subject"
	adminKey   = "admin"
)

// AuthMiddleware handles JWT authentication. The token comes from the
// Authorization header ("Bearer <token>") or, for websocket clients that
// cannot set headers, the token query parameter.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, ok := claims["sub"].(string); ok && sub != "" {
				c.Set(subjectKey, sub)
			}
			if admin, ok := claims["admin"].(bool); ok {
				c.Set(adminKey, admin)
			}
		}
		c.Next()
	}
}

// subject returns the authenticated sub claim, if any
func subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

// ownsSession writes a 403 when an authenticated caller names a session
// other than its own. Without auth every session is open.
func ownsSession(c *gin.Context, sessionID string) bool {
	if sub := subject(c); sub != "" && sessionID != sub {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Session belongs to another user"})
		return false
	}
	return true
}

// requireAdmin lets through tokens with the admin claim. Without auth
// configured the route is open like the rest of the API.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.jwtSecret != "" && !c.GetBool(adminKey) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin token required"})
			return
		}
		c.Next()
	}
}
