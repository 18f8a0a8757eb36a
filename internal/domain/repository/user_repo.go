package repository

import (
	"github.com/closebase/assessment-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	Update(user *entity.User) error
	UpdateProfile(userID uint, updates map[string]interface{}) error
	UpdatePassword(userID uint, newPassword string) error
	// UnlockBadge фиксирует прохождение ассессмента и уровень бейджа
	UnlockBadge(userID uint, badgeTier string) error
	IncrementAttemptsCount(userID uint) error
	List(limit, offset int) ([]entity.User, error)
}
