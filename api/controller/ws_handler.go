package controller

import (
	"log"
	"net/http"
	"strings"

	"github.com/jsrice7391/redeemer-recovery/internal/ws"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler 用户事件流 WebSocket 连接处理器
type WSHandler struct {
	hub         *ws.Hub
	upgrader    websocket.Upgrader
	authEnabled bool
}

// NewWSHandler 构造函数
// authEnabled 与 /api 路由组保持一致：配置了 Clerk 密钥才校验 token
func NewWSHandler(hub *ws.Hub, allowedOrigins []string, authEnabled bool) *WSHandler {
	return &WSHandler{
		hub:         hub,
		authEnabled: authEnabled,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 配置 CORS
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 开发环境允许所有
				if origin == "" || strings.HasPrefix(origin, "http://localhost") {
					return true
				}
				// 生产环境检查白名单
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				log.Printf("[WS] ⚠️ 拒绝来自 %s 的连接", origin)
				return false
			},
		},
	}
}

// HandleWS 处理 WebSocket 升级请求
// GET /ws?token=xxx
// 连接建立后持续下发 user.created / user.updated / user.deleted 事件
// ⚠️ WebSocket 不支持自定义 Header，token 从 URL 查询参数携带
func (h *WSHandler) HandleWS(c *gin.Context) {
	if h.authEnabled {
		token := c.Query("token")
		if token == "" {
			// 也尝试从 Sec-WebSocket-Protocol 获取（某些客户端实现）
			token = c.GetHeader("Sec-WebSocket-Protocol")
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth token"})
			return
		}

		// 验证 Clerk JWT
		if _, err := jwt.Verify(c.Request.Context(), &jwt.VerifyParams{Token: token}); err != nil {
			log.Printf("[WS] ❌ Token 验证失败: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	// 升级到 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] ❌ 升级失败: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
