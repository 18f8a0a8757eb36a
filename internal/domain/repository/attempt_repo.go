package repository

import (
	"github.com/closebase/assessment-api/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками
type AttemptRepository interface {
	Create(attempt *entity.AssessmentAttempt) error
	GetByID(id string) (*entity.AssessmentAttempt, error)
	// GetActiveByUser возвращает незавершенную попытку пользователя, если она есть
	GetActiveByUser(userID uint) (*entity.AssessmentAttempt, error)
	// GetAllInProgress возвращает все незавершенные попытки (для восстановления после рестарта)
	GetAllInProgress() ([]entity.AssessmentAttempt, error)
	Update(attempt *entity.AssessmentAttempt) error
	// MarkSubmitted атомарно переводит in_progress -> submitted.
	// Возвращает ErrAttemptNotInProgress, если попытка уже отправлена:
	// это гарантирует, что агрегация результата выполнится ровно один раз.
	MarkSubmitted(attemptID string) error

	// SaveSelectedQuestions фиксирует выборку вопросов попытки с порядком показа
	SaveSelectedQuestions(records []entity.AttemptQuestion) error
	// GetSelectedQuestions возвращает журнал выборки в порядке показа
	GetSelectedQuestions(attemptID string) ([]entity.AttemptQuestion, error)

	SaveAnswer(answer *entity.AttemptAnswer) error
	GetAnswers(attemptID string) ([]entity.AttemptAnswer, error)
}
