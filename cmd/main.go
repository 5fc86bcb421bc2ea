package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsrice7391/redeemer-recovery/api/controller"
	"github.com/jsrice7391/redeemer-recovery/api/route"
	"github.com/jsrice7391/redeemer-recovery/bootstrap"
	"github.com/jsrice7391/redeemer-recovery/internal/ws"
	"github.com/jsrice7391/redeemer-recovery/repository"
	"github.com/jsrice7391/redeemer-recovery/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("[Server] Redeemer Recovery API 启动中...")

	// 加载环境变量
	env := bootstrap.LoadEnv()

	// 初始化 Clerk（未配置密钥则进入开发模式，不做 Bearer 校验）
	authEnabled := bootstrap.InitClerk(env.ClerkSecretKey)

	// 连接数据库
	db := bootstrap.NewDatabase(env.DBDriver, env.DatabaseURL)

	// 依赖注入 - Repository 层
	userRepo := repository.NewUserRepository(db)

	// 用户事件广播中心
	hub := ws.NewHub()

	// 依赖注入 - UseCase 层
	userUseCase := usecase.NewUserUseCase(userRepo, hub)

	// 依赖注入 - Controller 层
	userController := controller.NewUserController(userUseCase)
	webhookController := controller.NewWebhookController(userUseCase, env.WebhookSecret)
	wsHandler := controller.NewWSHandler(hub, env.AllowedOrigins, authEnabled)

	// 启动 Hub 事件循环
	go hub.Run()

	// 配置 Gin 路由
	router := gin.Default()

	// CORS 配置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     env.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 设置路由
	route.Setup(router, &route.Dependencies{
		UserController:    userController,
		WebhookController: webhookController,
		WSHandler:         wsHandler,
		AuthEnabled:       authEnabled,
	})

	// 启动 HTTP 服务
	srv := &http.Server{
		Addr:    ":" + env.Port,
		Handler: router,
	}

	go func() {
		log.Printf("[Server] 服务已启动: http://localhost:%s", env.Port)
		log.Printf("[Server] API 端点:")
		log.Printf("   GET    /api                  - 欢迎信息")
		log.Printf("   GET    /api/health           - 健康检查")
		log.Printf("   GET    /api/openapi.json     - OpenAPI 文档")
		log.Printf("   GET    /api/users            - 用户列表（?email= 为单点查询）")
		log.Printf("   GET    /api/users/:id        - 获取用户")
		log.Printf("   POST   /api/users            - 创建用户")
		log.Printf("   PUT    /api/users/:id        - 部分更新用户")
		log.Printf("   PATCH  /api/users/:id        - Merge Patch 更新用户")
		log.Printf("   DELETE /api/users/:id        - 删除用户")
		log.Printf("   POST   /api/provision        - 身份绑定 get-or-create")
		log.Printf("   GET    /ws?token=xxx         - 用户事件流 WebSocket")
		log.Printf("   POST   /webhook/clerk        - 身份提供商 Webhook")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] 服务启动失败: %v", err)
		}
	}()

	// 优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] 收到停机信号，正在优雅关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[Server] 服务强制关闭: %v", err)
	}

	log.Println("[Server] 服务已安全停止")
}
