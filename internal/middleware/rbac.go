package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voxquiz/voxquiz-backend/internal/response"
)

// RequirePermission checks that the host JWT contains the required permission
// code, e.g. "questions:write".
func RequirePermission(permissionCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, p := range claims.Permissions {
			if p == permissionCode {
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
	}
}
