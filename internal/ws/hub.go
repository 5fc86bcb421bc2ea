package ws

import (
	"log"
	"sync"
)

// ========== 用户事件广播中心 ==========
// Hub 不处理任何业务逻辑，只管理订阅者的生死和事件扇出
// 没有房间概念：所有订阅者收到同一份用户变更事件流

// Hub 维护订阅者目录并负责事件扇出
type Hub struct {
	clients    map[*Client]bool
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub 创建 Hub 实例
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 64),
	}
}

// Run Hub 事件循环，需在独立 goroutine 中启动
func (h *Hub) Run() {
	log.Println("[Hub] 🚀 用户事件广播中心已启动")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("[Hub] ➕ 订阅者加入，当前 %d 个连接", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("[Hub] ➖ 订阅者离开，当前 %d 个连接", count)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 发送缓冲区已满，说明客户端读取过慢，直接放弃本条
					// 连接本身交给心跳超时去回收
					log.Printf("[Hub] ⚠️ 订阅者缓冲区已满，丢弃事件")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register 注册新订阅者
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销订阅者
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish 发布用户变更事件给所有订阅者
// 序列化失败只记日志，不影响主流程（事件流是尽力而为的通知通道）
func (h *Hub) Publish(event UserEvent) {
	payload, err := event.Marshal()
	if err != nil {
		log.Printf("[Hub] ❌ 事件序列化失败: %v", err)
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		log.Printf("[Hub] ⚠️ 广播队列已满，丢弃事件 %s", event.Type)
	}
}

// ClientCount 当前订阅者数量（测试与监控用）
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
