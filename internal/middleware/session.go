package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/response"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/service"
)

// CheckSingleDeviceSession rejects student tokens whose JTI no longer
// matches the active session slot: either the session was reset by an
// admin or the account logged in from another device. Admin tokens pass
// through untouched.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if claims.TokenType != service.TokenTypeStudent {
			c.Next()
			return
		}

		if err := authService.ValidateUserSession(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}
		c.Next()
	}
}
