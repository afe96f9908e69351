package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType 推送消息类型
type MessageType string

const EstimateMessage MessageType = "estimate"

// Message 推送给看板的消息
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	ID        string          `json:"id"`
}

type feedClient struct {
	conn     *websocket.Conn
	send     chan []byte
	clientID string
}

// Feed 估价实时推送中心
type Feed struct {
	clients    map[*feedClient]bool
	broadcast  chan []byte
	register   chan *feedClient
	unregister chan *feedClient
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
}

// NewFeed 创建推送中心，需要调用 Run 启动
func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Run 事件循环
func (f *Feed) Run() {
	defer f.logger.Info("feed stopped")

	for {
		select {
		case client := <-f.register:
			f.mu.Lock()
			f.clients[client] = true
			total := len(f.clients)
			f.mu.Unlock()
			f.logger.Debug("feed client connected", zap.String("client", client.clientID), zap.Int("total", total))

		case client := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.send)
			}
			f.mu.Unlock()
			f.logger.Debug("feed client disconnected", zap.String("client", client.clientID))

		case message := <-f.broadcast:
			f.mu.Lock()
			for client := range f.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(f.clients, client)
				}
			}
			f.mu.Unlock()

		case <-f.ctx.Done():
			f.mu.Lock()
			for client := range f.clients {
				close(client.send)
				delete(f.clients, client)
			}
			f.mu.Unlock()
			return
		}
	}
}

// Stop 停止推送中心并断开所有客户端
func (f *Feed) Stop() {
	f.cancel()
}

// Clients 当前连接数
func (f *Feed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Publish 广播一条消息，队列满时丢弃
func (f *Feed) Publish(kind MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		f.logger.Warn("feed payload not encodable", zap.Error(err))
		return
	}
	message, err := json.Marshal(Message{
		Type:      kind,
		Timestamp: time.Now().UTC(),
		Data:      data,
		ID:        uuid.NewString(),
	})
	if err != nil {
		f.logger.Warn("feed message not encodable", zap.Error(err))
		return
	}
	select {
	case f.broadcast <- message:
	default:
		f.logger.Warn("feed queue is full, dropping message")
	}
}

// HandleWebSocket 升级连接并注册客户端
func (f *Feed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{
		conn:     conn,
		send:     make(chan []byte, 64),
		clientID: uuid.NewString(),
	}
	select {
	case f.register <- client:
	case <-f.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(f)
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只用于感知断开，客户端消息被忽略
func (c *feedClient) readPump(f *Feed) {
	defer func() {
		select {
		case f.unregister <- c:
		case <-f.ctx.Done():
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Debug("feed client read error", zap.Error(err))
			}
			return
		}
	}
}
