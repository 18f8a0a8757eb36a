package repository

import (
	"github.com/closebase/assessment-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с пулом MC-вопросов
type QuestionRepository interface {
	Create(question *entity.McQuestion) error
	CreateBatch(questions []entity.McQuestion) error
	GetByID(id uint) (*entity.McQuestion, error)
	GetByIDs(ids []uint) ([]entity.McQuestion, error)
	GetAll() ([]entity.McQuestion, error)
	Update(question *entity.McQuestion) error
	Delete(id uint) error
	Count() (int64, error)
	CountByCategory(category string) (int64, error)
}
