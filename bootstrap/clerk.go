package bootstrap

import (
	"log"

	"github.com/clerk/clerk-sdk-go/v2"
)

// InitClerk 初始化 Clerk SDK
// secret 为空表示未接入身份提供商（开发模式），/api 路由不做 Bearer 校验
func InitClerk(secret string) bool {
	if secret == "" {
		log.Println("⚠️ 未配置 CLERK_SECRET_KEY，跳过 Clerk 初始化")
		return false
	}
	clerk.SetKey(secret)

	log.Println("✅ Clerk 初始化成功")
	return true
}
