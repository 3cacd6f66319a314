package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"storefront_payments/pkg/response"
	"storefront_payments/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware JWT认证中间件
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, response.ErrAuthFailed, "Authorization header is required")
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Abort(c, http.StatusUnauthorized, response.ErrAuthFailed, "Invalid authorization header format")
			return
		}

		claims, err := utils.ParseToken(secret, parts[1])
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			return
		}

		// 将 userID 和 role 存入上下文
		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// AdminMiddleware 管理员权限中间件
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, response.ErrNoPermission, "Unauthorized")
			return
		}

		if role != utils.RoleAdmin {
			response.Abort(c, http.StatusForbidden, response.ErrNoPermission, "Admin permission required")
			return
		}

		c.Next()
	}
}

// CallbackTokenMiddleware 校验网关回调携带的 x-callback-token
func CallbackTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("x-callback-token")
		// 未配置 token 时拒绝一切回调
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.Abort(c, http.StatusUnauthorized, response.ErrCallbackTokenInvalid, "invalid callback token")
			return
		}
		c.Next()
	}
}
