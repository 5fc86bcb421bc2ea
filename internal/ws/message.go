package ws

import (
	"encoding/json"
	"time"

	"github.com/jsrice7391/redeemer-recovery/domain/entity"
)

// ========== 事件消息定义 ==========
// Hub 向订阅者推送的用户变更事件，前端据此做列表实时刷新

// 事件类型常量
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// UserEvent 用户变更事件
type UserEvent struct {
	Type      string       `json:"type"`           // user.created / user.updated / user.deleted
	User      *entity.User `json:"user,omitempty"` // 删除事件只带 UserID
	UserID    uint         `json:"userId,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewUserEvent 构造携带完整用户数据的事件
func NewUserEvent(eventType string, user *entity.User) UserEvent {
	return UserEvent{
		Type:      eventType,
		User:      user,
		Timestamp: time.Now(),
	}
}

// NewUserDeletedEvent 构造删除事件（记录已不存在，只带 ID）
func NewUserDeletedEvent(userID uint) UserEvent {
	return UserEvent{
		Type:      EventUserDeleted,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// Marshal 序列化为下发给客户端的 JSON
func (e UserEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
