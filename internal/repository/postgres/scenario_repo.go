package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/closebase/assessment-api/internal/domain/entity"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
)

// ScenarioRepo реализует repository.ScenarioRepository
type ScenarioRepo struct {
	db *gorm.DB
}

// NewScenarioRepo создает новый репозиторий сценариев
func NewScenarioRepo(db *gorm.DB) *ScenarioRepo {
	return &ScenarioRepo{db: db}
}

// Create создает новый сценарий
func (r *ScenarioRepo) Create(scenario *entity.Scenario) error {
	return r.db.Create(scenario).Error
}

// CreateBatch создает пакет сценариев
func (r *ScenarioRepo) CreateBatch(scenarios []entity.Scenario) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SET CLIENT_ENCODING TO 'UTF8'").Error; err != nil {
			return err
		}
		return tx.Create(&scenarios).Error
	})
}

// GetByID возвращает сценарий по ID
func (r *ScenarioRepo) GetByID(id uint) (*entity.Scenario, error) {
	var scenario entity.Scenario
	err := r.db.First(&scenario, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &scenario, nil
}

// GetAll возвращает весь пул сценариев
func (r *ScenarioRepo) GetAll() ([]entity.Scenario, error) {
	var scenarios []entity.Scenario
	err := r.db.Order("id").Find(&scenarios).Error
	if err != nil {
		return nil, err
	}
	return scenarios, nil
}

// Update обновляет сценарий
func (r *ScenarioRepo) Update(scenario *entity.Scenario) error {
	return r.db.Save(scenario).Error
}

// Delete удаляет сценарий
func (r *ScenarioRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Scenario{}, id).Error
}

// Count возвращает размер пула сценариев
func (r *ScenarioRepo) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entity.Scenario{}).Count(&count).Error
	return count, err
}
