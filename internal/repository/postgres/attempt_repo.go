package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create создает запись попытки
func (r *AttemptRepo) Create(attempt *entity.AssessmentAttempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		return fmt.Errorf("ошибка создания попытки: %w", err)
	}
	return nil
}

// GetByID возвращает попытку по идентификатору
func (r *AttemptRepo) GetByID(id string) (*entity.AssessmentAttempt, error) {
	var attempt entity.AssessmentAttempt
	err := r.db.Where("id = ?", id).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetActiveByUser возвращает незавершенную попытку пользователя
func (r *AttemptRepo) GetActiveByUser(userID uint) (*entity.AssessmentAttempt, error) {
	var attempt entity.AssessmentAttempt
	err := r.db.Where("user_id = ? AND status = ?", userID, entity.AttemptStatusInProgress).
		Order("created_at DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetAllInProgress возвращает все незавершенные попытки
func (r *AttemptRepo) GetAllInProgress() ([]entity.AssessmentAttempt, error) {
	var attempts []entity.AssessmentAttempt
	err := r.db.Where("status = ?", entity.AttemptStatusInProgress).
		Order("created_at").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// Update сохраняет все поля попытки
func (r *AttemptRepo) Update(attempt *entity.AssessmentAttempt) error {
	return r.db.Save(attempt).Error
}

// MarkSubmitted атомарно переводит попытку из in_progress в submitted.
// Условие по статусу в WHERE гарантирует, что переход выполнит ровно
// один из конкурирующих путей; остальные получают ErrAttemptNotInProgress.
func (r *AttemptRepo) MarkSubmitted(attemptID string) error {
	result := r.db.Model(&entity.AssessmentAttempt{}).
		Where("id = ? AND status = ?", attemptID, entity.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"status":       entity.AttemptStatusSubmitted,
			"submitted_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка перевода попытки %s в submitted: %w", attemptID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrAttemptNotInProgress
	}
	return nil
}

// SaveSelectedQuestions фиксирует выборку вопросов попытки
func (r *AttemptRepo) SaveSelectedQuestions(records []entity.AttemptQuestion) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Create(&records).Error
}

// GetSelectedQuestions возвращает журнал выборки в порядке показа
func (r *AttemptRepo) GetSelectedQuestions(attemptID string) ([]entity.AttemptQuestion, error) {
	var records []entity.AttemptQuestion
	err := r.db.Where("attempt_id = ?", attemptID).
		Order("question_order").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SaveAnswer сохраняет ответ на вопрос. Повторный выбор по тому же
// вопросу перезаписывает вариант и балл (upsert по attempt_id+question_id).
func (r *AttemptRepo) SaveAnswer(answer *entity.AttemptAnswer) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"option_id":  answer.OptionID,
			"points":     answer.Points,
			"updated_at": time.Now(),
		}),
	}).Create(answer).Error
	if err != nil {
		return fmt.Errorf("ошибка сохранения ответа на вопрос #%d: %w", answer.QuestionID, err)
	}
	return nil
}

// GetAnswers возвращает все сохраненные ответы попытки
func (r *AttemptRepo) GetAnswers(attemptID string) ([]entity.AttemptAnswer, error) {
	var answers []entity.AttemptAnswer
	err := r.db.Where("attempt_id = ?", attemptID).Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}
