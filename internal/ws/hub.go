package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/models"
)

const broadcastBuffer = 256

// Hub управляет всеми WebSocket клиентами и рассылает им закоммиченные уведомления.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	log        *logrus.Entry
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// envelope - формат сообщения для клиента: "type" содержит тип уведомления, "data" - само уведомление.
type envelope struct {
	Type string              `json:"type"`
	Data models.Notification `json:"data"`
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, broadcastBuffer),
		done:       make(chan struct{}),
		log:        logger.WithComponent("ws"),
	}
}

// Run запускает главный цикл хаба. При отмене ctx все клиенты отключаются.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		}
	}
}

// Register добавляет клиента. false, если хаб уже остановлен.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish отправляет уведомления подключённым получателям.
// Не блокируется: при переполнении очереди уведомление остаётся только в БД.
func (h *Hub) Publish(ctx context.Context, notifications []models.Notification) {
	for _, n := range notifications {
		raw, err := json.Marshal(envelope{Type: n.Type, Data: n})
		if err != nil {
			h.log.WithError(err).Warn("не удалось сериализовать уведомление")
			continue
		}

		select {
		case h.broadcast <- message{userID: n.UserID, payload: raw}:
		case <-h.done:
			return
		case <-ctx.Done():
			return
		default:
			h.log.WithField("user_id", n.UserID).Warn("очередь рассылки переполнена, уведомление не доставлено")
		}
	}
}

// Connected возвращает число подключений пользователя.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

// dropLocked удаляет клиента и закрывает его очередь; writePump после этого завершается.
func (h *Hub) dropLocked(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// медленный клиент отключается
			h.dropLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			h.dropLocked(client)
		}
	}
}
