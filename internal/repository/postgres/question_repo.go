package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/closebase/assessment-api/internal/domain/entity"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий MC-вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// Create создает новый вопрос
func (r *QuestionRepo) Create(question *entity.McQuestion) error {
	return r.db.Create(question).Error
}

// CreateBatch создает пакет вопросов
func (r *QuestionRepo) CreateBatch(questions []entity.McQuestion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Устанавливаем кодировку UTF-8 внутри транзакции
		if err := tx.Exec("SET CLIENT_ENCODING TO 'UTF8'").Error; err != nil {
			return err
		}
		return tx.Create(&questions).Error
	})
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(id uint) (*entity.McQuestion, error) {
	var question entity.McQuestion
	err := r.db.First(&question, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// GetByIDs возвращает вопросы по списку идентификаторов
func (r *QuestionRepo) GetByIDs(ids []uint) ([]entity.McQuestion, error) {
	if len(ids) == 0 {
		return []entity.McQuestion{}, nil
	}
	var questions []entity.McQuestion
	err := r.db.Where("id IN ?", ids).Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// GetAll возвращает весь пул вопросов.
// Пул статичен и невелик (целевой размер - 60 вопросов),
// выборка случайного подмножества делается в памяти селектором.
func (r *QuestionRepo) GetAll() ([]entity.McQuestion, error) {
	var questions []entity.McQuestion
	err := r.db.Order("id").Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// Update обновляет информацию о вопросе
func (r *QuestionRepo) Update(question *entity.McQuestion) error {
	return r.db.Save(question).Error
}

// Delete удаляет вопрос
func (r *QuestionRepo) Delete(id uint) error {
	return r.db.Delete(&entity.McQuestion{}, id).Error
}

// Count возвращает размер пула вопросов
func (r *QuestionRepo) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entity.McQuestion{}).Count(&count).Error
	return count, err
}

// CountByCategory возвращает количество вопросов категории
func (r *QuestionRepo) CountByCategory(category string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.McQuestion{}).
		Where("category = ?", category).
		Count(&count).Error
	return count, err
}
