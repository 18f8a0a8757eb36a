package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/closebase/assessment-api/internal/domain/entity"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
	"github.com/closebase/assessment-api/internal/service"
)

// CatalogHandler обрабатывает админские запросы к каталогу контента
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler создает новый обработчик каталога
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// QuestionRequest представляет запрос на создание/обновление MC-вопроса
type QuestionRequest struct {
	Text     string `json:"text" binding:"required,min=3,max=500"`
	Category string `json:"category" binding:"required"`
	Options  []struct {
		ID     string `json:"id" binding:"required,max=10"`
		Text   string `json:"text" binding:"required,max=300"`
		Points int    `json:"points" binding:"min=0"`
	} `json:"options" binding:"required,min=2,max=5"`
}

// ScenarioRequest представляет запрос на создание/обновление сценария
type ScenarioRequest struct {
	Title    string   `json:"title" binding:"required,min=3,max=100"`
	Prompt   string   `json:"prompt" binding:"required,min=10"`
	Keywords []string `json:"keywords" binding:"required,min=1"`
	MinWords int      `json:"min_words" binding:"required,min=1"`
	MaxWords int      `json:"max_words" binding:"required,min=1"`
}

func (r *QuestionRequest) toEntity() *entity.McQuestion {
	options := make(entity.OptionList, len(r.Options))
	for i, opt := range r.Options {
		options[i] = entity.AnswerOption{ID: opt.ID, Text: opt.Text, Points: opt.Points}
	}
	return &entity.McQuestion{
		Text:     r.Text,
		Category: r.Category,
		Options:  options,
	}
}

func (r *ScenarioRequest) toEntity() *entity.Scenario {
	return &entity.Scenario{
		Title:    r.Title,
		Prompt:   r.Prompt,
		Keywords: entity.StringArray(r.Keywords),
		MinWords: r.MinWords,
		MaxWords: r.MaxWords,
	}
}

// CreateQuestion добавляет MC-вопрос в пул
// POST /api/admin/catalog/questions
func (h *CatalogHandler) CreateQuestion(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := req.toEntity()
	if err := h.catalogService.CreateQuestion(question); err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// UpdateQuestion обновляет MC-вопрос
// PUT /api/admin/catalog/questions/:id
func (h *CatalogHandler) UpdateQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := req.toEntity()
	question.ID = questionID
	if err := h.catalogService.UpdateQuestion(question); err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion удаляет MC-вопрос из пула
// DELETE /api/admin/catalog/questions/:id
func (h *CatalogHandler) DeleteQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	if err := h.catalogService.DeleteQuestion(questionID); err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

// GetQuestion возвращает MC-вопрос по ID
// GET /api/admin/catalog/questions/:id
func (h *CatalogHandler) GetQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	question, err := h.catalogService.GetQuestion(questionID)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// ListQuestions возвращает весь пул MC-вопросов
// GET /api/admin/catalog/questions
func (h *CatalogHandler) ListQuestions(c *gin.Context) {
	questions, err := h.catalogService.ListQuestions()
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"questions": questions,
		"total":     len(questions),
	})
}

// CreateScenario добавляет сценарий в пул
// POST /api/admin/catalog/scenarios
func (h *CatalogHandler) CreateScenario(c *gin.Context) {
	var req ScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scenario := req.toEntity()
	if err := h.catalogService.CreateScenario(scenario); err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusCreated, scenario)
}

// UpdateScenario обновляет сценарий
// PUT /api/admin/catalog/scenarios/:id
func (h *CatalogHandler) UpdateScenario(c *gin.Context) {
	scenarioID := c.MustGet("scenarioID").(uint)

	var req ScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scenario := req.toEntity()
	scenario.ID = scenarioID
	if err := h.catalogService.UpdateScenario(scenario); err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, scenario)
}

// DeleteScenario удаляет сценарий из пула
// DELETE /api/admin/catalog/scenarios/:id
func (h *CatalogHandler) DeleteScenario(c *gin.Context) {
	scenarioID := c.MustGet("scenarioID").(uint)

	if err := h.catalogService.DeleteScenario(scenarioID); err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Scenario deleted successfully"})
}

// GetScenario возвращает сценарий по ID
// GET /api/admin/catalog/scenarios/:id
func (h *CatalogHandler) GetScenario(c *gin.Context) {
	scenarioID := c.MustGet("scenarioID").(uint)

	scenario, err := h.catalogService.GetScenario(scenarioID)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, scenario)
}

// ListScenarios возвращает весь пул сценариев
// GET /api/admin/catalog/scenarios
func (h *CatalogHandler) ListScenarios(c *gin.Context) {
	scenarios, err := h.catalogService.ListScenarios()
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scenarios": scenarios,
		"total":     len(scenarios),
	})
}

// GetCatalogHealth возвращает готовность каталога к запуску попыток
// GET /api/admin/catalog/health
func (h *CatalogHandler) GetCatalogHealth(c *gin.Context) {
	health, err := h.catalogService.CheckCatalogHealth()
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusOK, health)
}

// handleCatalogError обрабатывает ошибки сервиса каталога
func (h *CatalogHandler) handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("[CatalogHandler] Внутренняя ошибка: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
