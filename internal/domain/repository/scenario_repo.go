package repository

import (
	"github.com/closebase/assessment-api/internal/domain/entity"
)

// ScenarioRepository определяет методы для работы с пулом сценариев
type ScenarioRepository interface {
	Create(scenario *entity.Scenario) error
	CreateBatch(scenarios []entity.Scenario) error
	GetByID(id uint) (*entity.Scenario, error)
	GetAll() ([]entity.Scenario, error)
	Update(scenario *entity.Scenario) error
	Delete(id uint) error
	Count() (int64, error)
}
