package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gin-gonic/gin"
)

// ClerkAuth Bearer 身份校验中间件
// 本服务信任外部认证流程签发的身份，这里只做验签和注入，
// token 的签发与公钥轮换完全由身份提供商负责
// 只挂在 /api 资源路由组上，欢迎/健康检查/文档端点保持公开
func ClerkAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			// 没有 Bearer 前缀的 Authorization 头一律拒绝
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a Bearer token"})
			return
		}

		// Clerk SDK 自动拉取公钥并验证签名与过期时间
		claims, err := jwt.Verify(c.Request.Context(), &jwt.VerifyParams{Token: token})
		if err != nil {
			log.Printf("[Auth] ❌ Token 验证失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// 注入身份提供商侧的用户 ID，供下游 Controller 使用
		c.Set(ContextKeyUserID, claims.Subject)
		c.Next()
	}
}
