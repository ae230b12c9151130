package websockets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Message types pushed to clients.
const (
	MessageSnapshot = "snapshot"
	MessageError    = "error"
)

// WebSocketMessage는 서버가 클라이언트에게 보내는 데이터 구조입니다.
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub는 모든 WebSocket 클라이언트를 관리하고 메시지를 브로드캐스트합니다.
// Only the Run goroutine touches the client set.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
	logger     *zap.SugaredLogger
}

// NewHub는 새로운 Hub 인스턴스를 생성하고 반환합니다.
func NewHub(logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run은 ctx가 끝날 때까지 클라이언트 연결과 메시지 전송을 처리합니다.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			h.drop(client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			h.logger.Infow("websocket client connected", "remote", client.remote, "clients", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Infow("websocket client disconnected", "remote", client.remote, "clients", len(h.clients))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 느린 클라이언트는 연결 해제
					h.drop(client)
					h.logger.Warnw("dropping slow websocket client", "remote", client.remote)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.count.Store(int64(len(h.clients)))
}

// Broadcast queues a message for every connected client. It returns an
// error when the message cannot be encoded or the hub has stopped.
func (h *Hub) Broadcast(msgType string, data any) error {
	message, err := json.Marshal(WebSocketMessage{Type: msgType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msgType, err)
	}
	select {
	case h.broadcast <- message:
		return nil
	case <-h.done:
		return fmt.Errorf("websocket hub stopped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}
