package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/services"
)

const UserContextKey = "currentUser"

// Authenticate validates the bearer token and stores the authenticated user
// on the request context.
func Authenticate(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a bearer token"})
			return
		}

		user, serr := auth.ParseToken(c.Request.Context(), token)
		if serr != nil {
			c.AbortWithStatusJSON(serr.StatusCode, gin.H{"error": serr.Message})
			return
		}

		c.Set(UserContextKey, user)
		c.Next()
	}
}

// Authorize rejects requests whose authenticated user is not one of the
// given roles. Must run after Authenticate.
func Authorize(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !allowed[user.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside an
// authenticated route.
func CurrentUser(c *gin.Context) *models.User {
	if val, ok := c.Get(UserContextKey); ok {
		if user, ok := val.(*models.User); ok {
			return user
		}
	}
	return nil
}
