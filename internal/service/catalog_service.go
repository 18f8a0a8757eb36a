package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// CatalogService предоставляет методы для управления каталогом контента:
// пулом MC-вопросов и пулом сценариев
type CatalogService struct {
	questionRepo      repository.QuestionRepository
	scenarioRepo      repository.ScenarioRepository
	minQuestionPool   int
	minScenarioPool   int
	maxOptionsPerItem int
}

// NewCatalogService создает новый сервис каталога
func NewCatalogService(
	questionRepo repository.QuestionRepository,
	scenarioRepo repository.ScenarioRepository,
	minQuestionPool int,
) (*CatalogService, error) {
	if questionRepo == nil {
		return nil, fmt.Errorf("QuestionRepository is required for CatalogService")
	}
	if scenarioRepo == nil {
		return nil, fmt.Errorf("ScenarioRepository is required for CatalogService")
	}
	if minQuestionPool <= 0 {
		minQuestionPool = 20
	}
	return &CatalogService{
		questionRepo:      questionRepo,
		scenarioRepo:      scenarioRepo,
		minQuestionPool:   minQuestionPool,
		minScenarioPool:   1,
		maxOptionsPerItem: 5,
	}, nil
}

// CreateQuestion валидирует и сохраняет новый MC-вопрос
func (s *CatalogService) CreateQuestion(question *entity.McQuestion) error {
	if err := s.validateQuestion(question); err != nil {
		return err
	}
	if err := s.questionRepo.Create(question); err != nil {
		return fmt.Errorf("ошибка создания вопроса: %w", err)
	}
	log.Printf("[CatalogService] Создан вопрос ID=%d (категория %s)", question.ID, question.Category)
	return nil
}

// UpdateQuestion валидирует и обновляет MC-вопрос
func (s *CatalogService) UpdateQuestion(question *entity.McQuestion) error {
	if question.ID == 0 {
		return fmt.Errorf("%w: question id is required", apperrors.ErrValidation)
	}
	if err := s.validateQuestion(question); err != nil {
		return err
	}
	if _, err := s.questionRepo.GetByID(question.ID); err != nil {
		return err
	}
	return s.questionRepo.Update(question)
}

// DeleteQuestion удаляет вопрос из пула.
// Защита от обеднения пула: удаление запрещено, если после него пул
// опустится ниже минимума для старта попытки.
func (s *CatalogService) DeleteQuestion(id uint) error {
	count, err := s.questionRepo.Count()
	if err != nil {
		return fmt.Errorf("ошибка подсчета вопросов: %w", err)
	}
	if count <= int64(s.minQuestionPool) {
		return fmt.Errorf("%w: deleting would shrink the question pool below %d", apperrors.ErrConflict, s.minQuestionPool)
	}
	return s.questionRepo.Delete(id)
}

// GetQuestion возвращает вопрос по ID
func (s *CatalogService) GetQuestion(id uint) (*entity.McQuestion, error) {
	return s.questionRepo.GetByID(id)
}

// ListQuestions возвращает весь пул вопросов
func (s *CatalogService) ListQuestions() ([]entity.McQuestion, error) {
	return s.questionRepo.GetAll()
}

// CreateScenario валидирует и сохраняет новый сценарий
func (s *CatalogService) CreateScenario(scenario *entity.Scenario) error {
	if err := s.validateScenario(scenario); err != nil {
		return err
	}
	if err := s.scenarioRepo.Create(scenario); err != nil {
		return fmt.Errorf("ошибка создания сценария: %w", err)
	}
	log.Printf("[CatalogService] Создан сценарий ID=%d (%s)", scenario.ID, scenario.Title)
	return nil
}

// UpdateScenario валидирует и обновляет сценарий
func (s *CatalogService) UpdateScenario(scenario *entity.Scenario) error {
	if scenario.ID == 0 {
		return fmt.Errorf("%w: scenario id is required", apperrors.ErrValidation)
	}
	if err := s.validateScenario(scenario); err != nil {
		return err
	}
	if _, err := s.scenarioRepo.GetByID(scenario.ID); err != nil {
		return err
	}
	return s.scenarioRepo.Update(scenario)
}

// DeleteScenario удаляет сценарий с защитой от опустошения пула
func (s *CatalogService) DeleteScenario(id uint) error {
	count, err := s.scenarioRepo.Count()
	if err != nil {
		return fmt.Errorf("ошибка подсчета сценариев: %w", err)
	}
	if count <= int64(s.minScenarioPool) {
		return fmt.Errorf("%w: deleting would leave the scenario pool empty", apperrors.ErrConflict)
	}
	return s.scenarioRepo.Delete(id)
}

// GetScenario возвращает сценарий по ID
func (s *CatalogService) GetScenario(id uint) (*entity.Scenario, error) {
	return s.scenarioRepo.GetByID(id)
}

// ListScenarios возвращает весь пул сценариев
func (s *CatalogService) ListScenarios() ([]entity.Scenario, error) {
	return s.scenarioRepo.GetAll()
}

// CatalogHealth описывает готовность каталога к запуску попыток
type CatalogHealth struct {
	QuestionCount      int64            `json:"question_count"`
	ScenarioCount      int64            `json:"scenario_count"`
	QuestionsByCategory map[string]int64 `json:"questions_by_category"`
	Ready              bool             `json:"ready"`
}

// CheckCatalogHealth проверяет, достаточно ли контента для запуска попытки
func (s *CatalogService) CheckCatalogHealth() (*CatalogHealth, error) {
	questionCount, err := s.questionRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета вопросов: %w", err)
	}
	scenarioCount, err := s.scenarioRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета сценариев: %w", err)
	}

	byCategory := make(map[string]int64)
	for _, category := range entity.AllCategories() {
		count, err := s.questionRepo.CountByCategory(category)
		if err != nil {
			return nil, fmt.Errorf("ошибка подсчета вопросов категории %s: %w", category, err)
		}
		byCategory[category] = count
	}

	return &CatalogHealth{
		QuestionCount:      questionCount,
		ScenarioCount:      scenarioCount,
		QuestionsByCategory: byCategory,
		Ready:              questionCount >= int64(s.minQuestionPool) && scenarioCount >= int64(s.minScenarioPool),
	}, nil
}

// validateQuestion проверяет корректность MC-вопроса
func (s *CatalogService) validateQuestion(question *entity.McQuestion) error {
	if question == nil {
		return fmt.Errorf("%w: question is required", apperrors.ErrValidation)
	}
	question.Text = strings.TrimSpace(question.Text)
	if question.Text == "" {
		return fmt.Errorf("%w: question text is required", apperrors.ErrValidation)
	}
	if !question.IsValidCategory() {
		return fmt.Errorf("%w: invalid category '%s'", apperrors.ErrValidation, question.Category)
	}
	if len(question.Options) < 2 || len(question.Options) > s.maxOptionsPerItem {
		return fmt.Errorf("%w: question must have between 2 and %d options", apperrors.ErrValidation, s.maxOptionsPerItem)
	}

	seen := make(map[string]bool, len(question.Options))
	hasPositive := false
	for _, opt := range question.Options {
		if strings.TrimSpace(opt.ID) == "" || strings.TrimSpace(opt.Text) == "" {
			return fmt.Errorf("%w: option id and text are required", apperrors.ErrValidation)
		}
		if seen[opt.ID] {
			return fmt.Errorf("%w: duplicate option id '%s'", apperrors.ErrValidation, opt.ID)
		}
		seen[opt.ID] = true
		if opt.Points < 0 {
			return fmt.Errorf("%w: option points cannot be negative", apperrors.ErrValidation)
		}
		if opt.Points > 0 {
			hasPositive = true
		}
	}
	// Вопрос, за который нельзя получить баллы, ломает нормирование part1
	if !hasPositive {
		return fmt.Errorf("%w: at least one option must award points", apperrors.ErrValidation)
	}
	return nil
}

// validateScenario проверяет корректность сценария
func (s *CatalogService) validateScenario(scenario *entity.Scenario) error {
	if scenario == nil {
		return fmt.Errorf("%w: scenario is required", apperrors.ErrValidation)
	}
	scenario.Title = strings.TrimSpace(scenario.Title)
	scenario.Prompt = strings.TrimSpace(scenario.Prompt)
	if scenario.Title == "" || scenario.Prompt == "" {
		return fmt.Errorf("%w: scenario title and prompt are required", apperrors.ErrValidation)
	}
	if scenario.MinWords <= 0 || scenario.MaxWords <= 0 || scenario.MinWords > scenario.MaxWords {
		return fmt.Errorf("%w: invalid word range [%d, %d]", apperrors.ErrValidation, scenario.MinWords, scenario.MaxWords)
	}
	for _, kw := range scenario.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: empty keyword", apperrors.ErrValidation)
		}
	}
	return nil
}
