package route

import (
	"log"
	"net/http"
	"time"

	"github.com/jsrice7391/redeemer-recovery/api/controller"
	"github.com/jsrice7391/redeemer-recovery/api/middleware"
	"github.com/jsrice7391/redeemer-recovery/docs"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由依赖注入结构
type Dependencies struct {
	UserController    *controller.UserController
	WebhookController *controller.WebhookController
	WSHandler         *controller.WSHandler
	AuthEnabled       bool // 配置了 CLERK_SECRET_KEY 才启用 Bearer 校验
}

// Setup 配置所有路由
func Setup(router *gin.Engine, deps *Dependencies) {
	router.Use(middleware.RequestID())

	// --- 公开路由 ---

	// 欢迎端点
	router.GET("/api", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to Redeemer Recovery API",
		})
	})

	// 健康检查
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "redeemer-recovery-api",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// OpenAPI 文档（内嵌 JSON，仅作说明用途）
	router.GET("/api/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", docs.OpenAPI)
	})

	// 身份提供商 Webhook（使用 Svix 签名验证，不使用 JWT）
	router.POST("/webhook/clerk", deps.WebhookController.HandleClerkWebhook)

	// --- WebSocket 路由 ---
	// 用户事件流，自行在 Handler 中验证 Token
	router.GET("/ws", deps.WSHandler.HandleWS)

	// --- API 路由 ---
	api := router.Group("/api")
	if deps.AuthEnabled {
		api.Use(middleware.ClerkAuth())
	} else {
		log.Println("[Router] ⚠️ 未配置 CLERK_SECRET_KEY，/api 路由未启用 Bearer 校验（仅限开发环境）")
	}
	{
		// 用户 CRUD
		api.GET("/users", deps.UserController.ListUsers)
		api.GET("/users/:id", deps.UserController.GetUser)
		api.POST("/users", deps.UserController.CreateUser)
		api.PUT("/users/:id", deps.UserController.UpdateUser)
		api.PATCH("/users/:id", deps.UserController.PatchUser)
		api.DELETE("/users/:id", deps.UserController.DeleteUser)

		// 身份绑定（get-or-create）
		api.POST("/provision", deps.UserController.ProvisionUser)
	}
}
