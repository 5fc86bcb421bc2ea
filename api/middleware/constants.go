package middleware

// 中间件写入 gin.Context 的 key 统一在此定义，避免散落的字符串字面量

const (
	// ContextKeyUserID 已验证身份的提供商侧用户 ID（ClerkAuth 注入）
	ContextKeyUserID = "userID"

	// ContextKeyRequestID 本次请求的追踪 ID（RequestID 注入）
	ContextKeyRequestID = "requestID"
)
