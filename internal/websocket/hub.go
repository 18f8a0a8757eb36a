package websocket

import (
	"log"
	"sync"
)

// Hub поддерживает набор активных клиентов и рассылает им сообщения.
// Одноузловой хаб: все соединения живут в одном процессе.
type Hub struct {
	// Зарегистрированные клиенты по соединению
	clients map[*Client]bool

	// Индекс соединений по ID пользователя (у пользователя может быть
	// несколько вкладок)
	userClients map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex

	done chan struct{}
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[uint]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan []byte, 256),
		done:        make(chan struct{}),
	}
}

// Run запускает основной цикл хаба. Блокирует до вызова Close.
func (h *Hub) Run() {
	log.Printf("[WebSocketHub] Хаб запущен")
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToAll(message)
		case <-h.done:
			h.closeAll()
			log.Printf("[WebSocketHub] Хаб остановлен")
			return
		}
	}
}

// Close останавливает хаб и закрывает все соединения
func (h *Hub) Close() {
	close(h.done)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.userClients[client.UserID] == nil {
		h.userClients[client.UserID] = make(map[*Client]bool)
	}
	h.userClients[client.UserID][client] = true
	log.Printf("[WebSocketHub] Клиент зарегистрирован: UserID=%d, ConnID=%s (всего: %d)", client.UserID, client.ConnectionID, len(h.clients))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if conns := h.userClients[client.UserID]; conns != nil {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userClients, client.UserID)
		}
	}
	close(client.send)
	log.Printf("[WebSocketHub] Клиент отключен: UserID=%d, ConnID=%s (всего: %d)", client.UserID, client.ConnectionID, len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.userClients = make(map[uint]map[*Client]bool)
}

func (h *Hub) broadcastToAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Буфер клиента переполнен - пропускаем, отключение
			// выполнит readPump по таймауту
			log.Printf("[WebSocketHub] Буфер переполнен, сообщение пропущено: UserID=%d, ConnID=%s", client.UserID, client.ConnectionID)
		}
	}
}

// SendToUser отправляет сообщение всем соединениям пользователя.
// Возвращает true, если хотя бы одно соединение приняло сообщение.
func (h *Hub) SendToUser(userID uint, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.userClients[userID]
	if len(conns) == 0 {
		return false
	}

	delivered := false
	for client := range conns {
		select {
		case client.send <- message:
			delivered = true
		default:
			log.Printf("[WebSocketHub] Буфер переполнен при отправке пользователю: UserID=%d, ConnID=%s", userID, client.ConnectionID)
		}
	}
	return delivered
}

// Broadcast ставит сообщение в очередь рассылки всем клиентам
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("[WebSocketHub] Очередь рассылки переполнена, сообщение отброшено")
	}
}

// ClientCount возвращает количество активных соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserConnected проверяет, есть ли у пользователя активное соединение
func (h *Hub) UserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}
