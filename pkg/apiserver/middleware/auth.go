package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fasehq/fase-server/pkg/auth"
	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/visibility"
)

const requesterKey = "requester"

// Auth validates the Bearer token and stores the resulting Requester in the
// gin context. Deactivated users are rejected even with a valid token.
func Auth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			abortUnauthorized(c, "missing authorization")
			return
		}
		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "invalid authorization")
			return
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abortUnauthorized(c, "empty token")
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		if model.UserStatus(claims.Status) == model.UserDeactivated {
			abortUnauthorized(c, "account deactivated")
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		companyID, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		role := model.Role(claims.Role)
		if !role.Valid() {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(requesterKey, visibility.Requester{
			UserID:    userID,
			Role:      role,
			CompanyID: companyID,
		})
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": message})
}

// Requester returns the identity stored by Auth. The bool is false only on
// routes outside the authenticated group.
func Requester(c *gin.Context) (visibility.Requester, bool) {
	value, ok := c.Get(requesterKey)
	if !ok {
		return visibility.Requester{}, false
	}
	requester, ok := value.(visibility.Requester)
	return requester, ok
}
