package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType WebSocket 消息类型
const (
	MsgTypeInit           = "init"         // 初始化数据（全部区域 + 标记）
	MsgTypeRegion         = "region"       // 单个区域重建
	MsgTypeMarkers        = "markers"      // 地图标记位置
	MsgTypeMapImage       = "map_image"    // 地图背景地址变更
	MsgTypeLegacyPosition = "agv_position" // 旧版单车位置
	MsgTypeError          = "error"        // 错误消息
)

const writeWait = 10 * time.Second

// Message WebSocket 消息结构
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// InitData 初始化数据
type InitData struct {
	Regions  interface{} `json:"regions"`
	Markers  interface{} `json:"markers"`
	MapImage string      `json:"map_image"`
}

// Client WebSocket 客户端
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub WebSocket 连接管理中心
type Hub struct {
	logger     *zap.Logger
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// 初始数据提供者回调
	getInitData func() *InitData
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetInitDataProvider 设置初始数据提供者
func (h *Hub) SetInitDataProvider(provider func() *InitData) {
	h.getInitData = provider
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client connected",
				zap.String("client_id", client.id),
				zap.Int("total_clients", total))

			// 发送初始数据
			h.sendInitData(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client disconnected",
				zap.String("client_id", client.id),
				zap.Int("total_clients", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 慢消费者，关闭连接
					h.logger.Warn("Dropping slow WebSocket client", zap.String("client_id", client.id))
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// sendInitData 发送初始数据给新连接的客户端
func (h *Hub) sendInitData(client *Client) {
	if h.getInitData == nil {
		h.logger.Warn("No init data provider set")
		return
	}

	initData := h.getInitData()
	if initData == nil {
		h.logger.Warn("Init data provider returned nil")
		return
	}

	data, err := json.Marshal(Message{Type: MsgTypeInit, Data: initData})
	if err != nil {
		h.logger.Error("Failed to marshal init data", zap.Error(err))
		return
	}

	select {
	case client.send <- data:
		h.logger.Debug("Sent init data to client", zap.String("client_id", client.id))
	default:
		h.logger.Warn("Failed to send init data, client buffer full", zap.String("client_id", client.id))
	}
}

// Broadcast 广播消息给所有客户端
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// BroadcastMessage 广播结构化消息给所有客户端
func (h *Hub) BroadcastMessage(msgType string, data interface{}) {
	jsonData, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.String("type", msgType), zap.Error(err))
		return
	}

	h.Broadcast(jsonData)
}

// ClientCount 获取客户端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient 创建客户端
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// ID 客户端标识
func (c *Client) ID() string {
	return c.id
}

// Register 注册客户端
func (c *Client) Register() {
	c.hub.register <- c
}

// Unregister 注销客户端
func (c *Client) Unregister() {
	c.hub.unregister <- c
}

// ReadPump 读取消息（保持连接活跃）
func (c *Client) ReadPump() {
	defer func() {
		c.Unregister()
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		// 不处理客户端消息，仅保持连接
	}
}

// WritePump 发送消息
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
