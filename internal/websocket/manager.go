package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Event представляет типизированное сообщение протокола
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Manager управляет обработкой сообщений и отправкой событий
type Manager struct {
	hub      *Hub
	handlers map[string]func(data json.RawMessage, client *Client) error
	mu       sync.RWMutex
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub *Hub) *Manager {
	return &Manager{
		hub:      hub,
		handlers: make(map[string]func(data json.RawMessage, client *Client) error),
	}
}

// RegisterHandler регистрирует обработчик для типа входящих сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[eventType] = handler
}

// HandleMessage разбирает входящее сообщение и вызывает зарегистрированный обработчик
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		m.SendErrorToClient(client, "invalid_message", "Некорректный формат сообщения")
		return nil // Не закрываем соединение из-за одного кривого сообщения
	}

	m.mu.RLock()
	handler, ok := m.handlers[event.Type]
	m.mu.RUnlock()

	if !ok {
		log.Printf("[WSManager] Нет обработчика для типа сообщения '%s' (UserID=%d)", event.Type, client.UserID)
		m.SendErrorToClient(client, "unknown_type", fmt.Sprintf("Неизвестный тип сообщения: %s", event.Type))
		return nil
	}

	if err := handler(event.Data, client); err != nil {
		log.Printf("[WSManager] Ошибка обработки '%s' для UserID=%d: %v", event.Type, client.UserID, err)
		m.SendErrorToClient(client, "handler_error", err.Error())
	}
	return nil
}

// SendErrorToClient отправляет сообщение об ошибке конкретному клиенту
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	payload, err := json.Marshal(Event{
		Type: "error",
		Data: map[string]string{"code": code, "message": message},
	})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

// BroadcastEvent отправляет событие всем подключенным клиентам
func (m *Manager) BroadcastEvent(eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("ошибка сериализации события %s: %w", eventType, err)
	}
	m.hub.Broadcast(payload)
	return nil
}

// SendEventToUser отправляет событие всем соединениям пользователя.
// Отсутствие соединения не является ошибкой: кандидат мог закрыть
// вкладку, состояние он получит из снапшота при переподключении.
func (m *Manager) SendEventToUser(userID uint, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("ошибка сериализации события %s: %w", eventType, err)
	}
	if !m.hub.SendToUser(userID, payload) {
		log.Printf("[WSManager] Нет активных соединений для UserID=%d, событие %s не доставлено", userID, eventType)
	}
	return nil
}

// GetMetrics возвращает базовые метрики хаба
func (m *Manager) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"active_connections": m.hub.ClientCount(),
	}
}
