package models

import "encoding/json"

// 推送流消息类型
const (
	StreamHello = "hello" // 连接建立时发送一次
	StreamTick  = "tick"  // 周期性通知，触发全量刷新
)

// StreamMessage 后端推送流消息
type StreamMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
