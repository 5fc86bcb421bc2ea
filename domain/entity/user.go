package entity

import "time"

// User 业务用户表
// 由显式 API 调用创建，或由身份提供商首次登录时的 Provision 操作创建
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"` // 唯一约束由数据库强制，精确匹配
	AvatarURL string    `gorm:"size:500" json:"avatarUrl,omitempty"`        // 身份提供商的头像 URL
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"` // 每次变更刷新，空的部分更新也会刷新
}
