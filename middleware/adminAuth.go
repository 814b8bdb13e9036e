package middleware

import (
	"net/http"
	"strings"

	"rallyrent/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWTAuthAdminMiddleware admits requests carrying a valid admin bearer token.
func JWTAuthAdminMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.AbortJSON(c, http.StatusUnauthorized, utils.CodeUnauthorized, "Missing or invalid Authorization header")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		subject, err := utils.ValidateAdminToken(secret, tokenString)
		if err != nil {
			zap.L().Warn("Rejected admin token", zap.String("ip", getClientIP(c)), zap.Error(err))
			utils.AbortJSON(c, http.StatusUnauthorized, utils.CodeUnauthorized, "Unauthorized admin access")
			return
		}

		c.Set(utils.ContextAdminKey, subject)
		c.Next()
	}
}
