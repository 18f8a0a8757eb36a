package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/closebase/assessment-api/internal/handler/dto"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
	"github.com/closebase/assessment-api/internal/service/attemptmanager"
)

// AssessmentHandler обрабатывает запросы жизненного цикла попытки ассессмента
type AssessmentHandler struct {
	attemptManager *attemptmanager.Manager
}

// NewAssessmentHandler создает новый обработчик ассессмента
func NewAssessmentHandler(attemptManager *attemptmanager.Manager) *AssessmentHandler {
	return &AssessmentHandler{attemptManager: attemptManager}
}

// SelectAnswerRequest представляет запрос на выбор варианта ответа
type SelectAnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	OptionID   string `json:"option_id" binding:"required"`
}

// ScenarioTextRequest представляет черновик ответа на сценарий
type ScenarioTextRequest struct {
	Text string `json:"text" binding:"max=10000"`
}

// StartAttempt запускает новую попытку для текущего пользователя
// POST /api/assessment/attempts
func (h *AssessmentHandler) StartAttempt(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	state, err := h.attemptManager.StartAttempt(c.Request.Context(), userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAttemptStateResponse(state))
}

// GetAttemptState возвращает полное состояние попытки для восстановления
// экрана после переподключения
// GET /api/assessment/attempts/:attempt_id
func (h *AssessmentHandler) GetAttemptState(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID, ok := h.attemptIDParam(c)
	if !ok {
		return
	}

	state, err := h.attemptManager.GetState(attemptID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	if snapshot := state.Snapshot(); snapshot.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Attempt belongs to another user", "error_type": "forbidden"})
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptStateResponse(state))
}

// SelectAnswer фиксирует выбор варианта ответа на MC-вопрос
// POST /api/assessment/attempts/:attempt_id/answer
func (h *AssessmentHandler) SelectAnswer(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID, ok := h.attemptIDParam(c)
	if !ok {
		return
	}

	var req SelectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	snapshot, err := h.attemptManager.HandleAnswerSelected(c.Request.Context(), attemptID, userID, req.QuestionID, req.OptionID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// NextQuestion обрабатывает ручной переход к следующему вопросу
// POST /api/assessment/attempts/:attempt_id/next
func (h *AssessmentHandler) NextQuestion(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID, ok := h.attemptIDParam(c)
	if !ok {
		return
	}

	snapshot, err := h.attemptManager.HandleNextQuestion(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// UpdateScenarioText сохраняет черновик ответа на сценарий
// PUT /api/assessment/attempts/:attempt_id/scenario
func (h *AssessmentHandler) UpdateScenarioText(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID, ok := h.attemptIDParam(c)
	if !ok {
		return
	}

	var req ScenarioTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	snapshot, err := h.attemptManager.HandleScenarioChanged(c.Request.Context(), attemptID, userID, req.Text)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// SubmitAttempt обрабатывает явную отправку ассессмента кандидатом
// POST /api/assessment/attempts/:attempt_id/submit
func (h *AssessmentHandler) SubmitAttempt(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID, ok := h.attemptIDParam(c)
	if !ok {
		return
	}

	result, err := h.attemptManager.SubmitScenario(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	log.Printf("[AssessmentHandler] Попытка %s отправлена пользователем #%d (балл %.1f)", attemptID, userID, result.TotalScore)
	c.JSON(http.StatusOK, dto.NewResultResponse(result))
}

// ReportFocusLost фиксирует потерю фокуса страницы (телеметрия)
// POST /api/assessment/attempts/:attempt_id/events/focus-lost
func (h *AssessmentHandler) ReportFocusLost(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID, ok := h.attemptIDParam(c)
	if !ok {
		return
	}

	snapshot, err := h.attemptManager.HandleFocusLost(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"focus_changes": snapshot.FocusChanges})
}

// ReportPaste фиксирует вставку из буфера обмена (телеметрия)
// POST /api/assessment/attempts/:attempt_id/events/paste
func (h *AssessmentHandler) ReportPaste(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID, ok := h.attemptIDParam(c)
	if !ok {
		return
	}

	snapshot, err := h.attemptManager.HandlePasteDetected(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"paste_count": snapshot.PasteCount})
}

// attemptIDParam извлекает и проверяет идентификатор попытки из пути
func (h *AssessmentHandler) attemptIDParam(c *gin.Context) (string, bool) {
	attemptID := strings.TrimSpace(c.Param("attempt_id"))
	if attemptID == "" || len(attemptID) > 36 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attempt id", "error_type": "validation_error"})
		return "", false
	}
	return attemptID, true
}

// handleAttemptError обрабатывает ошибки от attemptmanager и отправляет соответствующий HTTP ответ
func (h *AssessmentHandler) handleAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Attempt not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_type": "validation_error"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Attempt belongs to another user", "error_type": "forbidden"})
	default:
		log.Printf("[AssessmentHandler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}
