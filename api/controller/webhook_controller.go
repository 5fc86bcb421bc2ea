package controller

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/jsrice7391/redeemer-recovery/usecase"

	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"
)

// WebhookController 处理身份提供商（Clerk）的 Webhook 回调
// 这是"首次登录即建档"的服务端路径：身份事件到达后按邮箱做 Provision
type WebhookController struct {
	userUseCase   *usecase.UserUseCase
	webhookSecret string
}

// NewWebhookController 构造函数
func NewWebhookController(userUseCase *usecase.UserUseCase, webhookSecret string) *WebhookController {
	return &WebhookController{
		userUseCase:   userUseCase,
		webhookSecret: webhookSecret,
	}
}

// ClerkWebhookPayload Clerk Webhook 事件结构
type ClerkWebhookPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ClerkUserData Clerk 用户数据结构
type ClerkUserData struct {
	ID             string `json:"id"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
}

// HandleClerkWebhook 处理 Clerk Webhook 回调
// POST /webhook/clerk
// 处理 user.created, user.updated, user.deleted 事件
func (wc *WebhookController) HandleClerkWebhook(c *gin.Context) {
	// 1. 读取请求体
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("[Webhook] ❌ 读取请求体失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read request body"})
		return
	}

	// 2. 验证 Webhook 签名（使用 Svix SDK）
	if wc.webhookSecret != "" {
		wh, err := svix.NewWebhook(wc.webhookSecret)
		if err != nil {
			log.Printf("[Webhook] ❌ 初始化 Webhook 验证器失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook misconfigured"})
			return
		}

		headers := http.Header{}
		headers.Set("svix-id", c.GetHeader("svix-id"))
		headers.Set("svix-timestamp", c.GetHeader("svix-timestamp"))
		headers.Set("svix-signature", c.GetHeader("svix-signature"))

		if err := wh.Verify(body, headers); err != nil {
			log.Printf("[Webhook] ❌ 签名验证失败: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			return
		}
	} else {
		log.Println("[Webhook] ⚠️ 未配置 CLERK_WEBHOOK_SECRET，跳过签名验证（仅限开发环境）")
	}

	// 3. 解析事件
	var payload ClerkWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[Webhook] ❌ 解析 Webhook 失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	log.Printf("[Webhook] 📥 收到事件: %s", payload.Type)

	// 4. 根据事件类型处理
	switch payload.Type {
	case "user.created":
		wc.handleUserCreated(payload.Data)
	case "user.updated":
		wc.handleUserUpdated(payload.Data)
	case "user.deleted":
		wc.handleUserDeleted(payload.Data)
	default:
		log.Printf("[Webhook] ℹ️ 忽略事件: %s", payload.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleUserCreated 处理用户创建事件：按邮箱 Provision
// 已存在的记录原样保留（Provision 的幂等语义）
func (wc *WebhookController) handleUserCreated(data json.RawMessage) {
	userData, email, name, ok := parseClerkUser(data)
	if !ok {
		return
	}

	user, created, err := wc.userUseCase.Provision(name, email, userData.ImageURL)
	if err != nil {
		log.Printf("[Webhook] ❌ 用户 Provision 失败: %v", err)
		return
	}

	if created {
		log.Printf("[Webhook] ✅ 首次登录建档: %d (%s)", user.ID, user.Email)
	} else {
		log.Printf("[Webhook] ℹ️ 用户已存在，跳过创建: %d (%s)", user.ID, user.Email)
	}
}

// handleUserUpdated 处理用户更新事件：刷新本地记录的 name/avatar
// 本地没有对应记录时退化为 Provision
func (wc *WebhookController) handleUserUpdated(data json.RawMessage) {
	userData, email, name, ok := parseClerkUser(data)
	if !ok {
		return
	}

	existing, err := wc.userUseCase.GetUserByEmail(email)
	if err != nil {
		log.Printf("[Webhook] ❌ 查询用户失败: %v", err)
		return
	}

	if existing == nil {
		if _, _, err := wc.userUseCase.Provision(name, email, userData.ImageURL); err != nil {
			log.Printf("[Webhook] ❌ 用户 Provision 失败: %v", err)
		}
		return
	}

	// 头像也一并刷新；身份声明没带头像时保持本地值不动
	var avatar *string
	if userData.ImageURL != "" {
		avatar = &userData.ImageURL
	}

	if _, err := wc.userUseCase.UpdateUser(existing.ID, &name, nil, avatar); err != nil {
		log.Printf("[Webhook] ❌ 用户同步更新失败: %v", err)
		return
	}
	log.Printf("[Webhook] ✅ 用户同步成功: %d (%s)", existing.ID, email)
}

// handleUserDeleted 处理用户删除事件：删除本地记录（如果存在）
func (wc *WebhookController) handleUserDeleted(data json.RawMessage) {
	userData, email, _, ok := parseClerkUser(data)
	if !ok {
		log.Printf("[Webhook] ℹ️ 删除事件缺少邮箱，跳过: %s", userData.ID)
		return
	}

	existing, err := wc.userUseCase.GetUserByEmail(email)
	if err != nil {
		log.Printf("[Webhook] ❌ 查询用户失败: %v", err)
		return
	}
	if existing == nil {
		log.Printf("[Webhook] ℹ️ 本地无记录，忽略删除事件: %s", email)
		return
	}

	if _, err := wc.userUseCase.DeleteUser(existing.ID); err != nil {
		log.Printf("[Webhook] ❌ 用户删除失败: %v", err)
		return
	}
	log.Printf("[Webhook] ✅ 用户已删除: %d (%s)", existing.ID, email)
}

// parseClerkUser 解析 Clerk 用户数据，提取邮箱（取第一个）并组合姓名
func parseClerkUser(data json.RawMessage) (ClerkUserData, string, string, bool) {
	var userData ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		log.Printf("[Webhook] ❌ 解析用户数据失败: %v", err)
		return userData, "", "", false
	}

	email := ""
	if len(userData.EmailAddresses) > 0 {
		email = userData.EmailAddresses[0].EmailAddress
	}
	if email == "" {
		log.Printf("[Webhook] ⚠️ 事件缺少邮箱地址，跳过: %s", userData.ID)
		return userData, "", "", false
	}

	// 组合姓名，身份声明没给名字时退回邮箱
	name := userData.FirstName
	if userData.LastName != "" {
		if name != "" {
			name += " "
		}
		name += userData.LastName
	}
	if name == "" {
		name = email
	}

	return userData, email, name, true
}
