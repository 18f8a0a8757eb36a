package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/closebase/assessment-api/internal/service/attemptmanager"
	"github.com/closebase/assessment-api/internal/websocket"
	"github.com/closebase/assessment-api/pkg/auth"
)

// Бюджет времени на обработку одного WS-события попытки
const wsEventTimeout = 5 * time.Second

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	wsHub          *websocket.Hub
	wsManager      *websocket.Manager
	attemptManager *attemptmanager.Manager
	jwtService     *auth.JWTService
	allowedOrigins []string
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	attemptManager *attemptmanager.Manager,
	jwtService *auth.JWTService,
	allowedOrigins []string,
) *WSHandler {
	handler := &WSHandler{
		wsHub:          wsHub,
		wsManager:      wsManager,
		attemptManager: attemptManager,
		jwtService:     jwtService,
		allowedOrigins: allowedOrigins,
	}

	// Регистрируем обработчики сообщений один раз при создании обработчика
	handler.registerMessageHandlers()

	return handler
}

func (h *WSHandler) upgrader() gorillaws.Upgrader {
	return gorillaws.Upgrader{
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Пустой Origin - не браузерный клиент (curl, нативное приложение)
			if origin == "" {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}

			log.Printf("[WSHandler] Отклонен неразрешенный origin: %s", origin)
			return false
		},
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение.
// Аутентификация: Bearer-заголовок или access-токен в query-параметре
// (браузерный WebSocket API не умеет выставлять заголовки).
func (h *WSHandler) HandleConnection(c *gin.Context) {
	token := ""
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication token", "error_type": "token_missing"})
		return
	}

	claims, err := h.jwtService.ParseToken(c.Request.Context(), token)
	if err != nil {
		log.Printf("[WSHandler] Невалидный токен при подключении: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Ошибка апгрейда соединения для UserID=%d: %v", claims.UserID, err)
		return
	}

	client := websocket.NewClient(h.wsHub, conn, claims.UserID)
	client.StartPumps(h.wsManager.HandleMessage)
	log.Printf("[WSHandler] Соединение установлено: UserID=%d", claims.UserID)
}

// attemptEventPayload - общий формат входящих событий попытки
type attemptEventPayload struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID uint   `json:"question_id,omitempty"`
	OptionID   string `json:"option_id,omitempty"`
	Text       string `json:"text,omitempty"`
}

// registerMessageHandlers привязывает события попытки к attemptmanager.
// Каждое успешно примененное событие подтверждается снапшотом состояния.
func (h *WSHandler) registerMessageHandlers() {
	h.wsManager.RegisterHandler("assessment:answer", func(data json.RawMessage, client *websocket.Client) error {
		payload, err := parseAttemptEvent(data)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), wsEventTimeout)
		defer cancel()
		snapshot, err := h.attemptManager.HandleAnswerSelected(ctx, payload.AttemptID, client.UserID, payload.QuestionID, payload.OptionID)
		if err != nil {
			return err
		}
		return h.wsManager.SendEventToUser(client.UserID, "assessment:state", snapshot)
	})

	h.wsManager.RegisterHandler("assessment:next", func(data json.RawMessage, client *websocket.Client) error {
		payload, err := parseAttemptEvent(data)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), wsEventTimeout)
		defer cancel()
		snapshot, err := h.attemptManager.HandleNextQuestion(ctx, payload.AttemptID, client.UserID)
		if err != nil {
			return err
		}
		return h.wsManager.SendEventToUser(client.UserID, "assessment:state", snapshot)
	})

	h.wsManager.RegisterHandler("assessment:scenario_text", func(data json.RawMessage, client *websocket.Client) error {
		payload, err := parseAttemptEvent(data)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), wsEventTimeout)
		defer cancel()
		snapshot, err := h.attemptManager.HandleScenarioChanged(ctx, payload.AttemptID, client.UserID, payload.Text)
		if err != nil {
			return err
		}
		return h.wsManager.SendEventToUser(client.UserID, "assessment:state", snapshot)
	})

	h.wsManager.RegisterHandler("assessment:focus_lost", func(data json.RawMessage, client *websocket.Client) error {
		payload, err := parseAttemptEvent(data)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), wsEventTimeout)
		defer cancel()
		_, err = h.attemptManager.HandleFocusLost(ctx, payload.AttemptID, client.UserID)
		return err
	})

	h.wsManager.RegisterHandler("assessment:paste", func(data json.RawMessage, client *websocket.Client) error {
		payload, err := parseAttemptEvent(data)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), wsEventTimeout)
		defer cancel()
		_, err = h.attemptManager.HandlePasteDetected(ctx, payload.AttemptID, client.UserID)
		return err
	})

	h.wsManager.RegisterHandler("assessment:submit", func(data json.RawMessage, client *websocket.Client) error {
		payload, err := parseAttemptEvent(data)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), wsEventTimeout)
		defer cancel()
		// Результат уходит кандидату событием assessment:result внутри менеджера
		_, err = h.attemptManager.SubmitScenario(ctx, payload.AttemptID, client.UserID)
		return err
	})

	h.wsManager.RegisterHandler("assessment:get_state", func(data json.RawMessage, client *websocket.Client) error {
		payload, err := parseAttemptEvent(data)
		if err != nil {
			return err
		}
		state, err := h.attemptManager.GetState(payload.AttemptID)
		if err != nil {
			return err
		}
		snapshot := state.Snapshot()
		if snapshot.UserID != client.UserID {
			return fmt.Errorf("attempt belongs to another user")
		}
		return h.wsManager.SendEventToUser(client.UserID, "assessment:state", snapshot)
	})
}

func parseAttemptEvent(data json.RawMessage) (*attemptEventPayload, error) {
	var payload attemptEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("некорректный формат события: %w", err)
	}
	if strings.TrimSpace(payload.AttemptID) == "" {
		return nil, fmt.Errorf("attempt_id is required")
	}
	return &payload, nil
}
