package entity

import (
	"time"
)

// InvalidToken представляет запись об инвалидированных токенах пользователя.
// Все access-токены, выпущенные до InvalidationTime, считаются недействительными.
type InvalidToken struct {
	UserID           uint      `gorm:"primaryKey" json:"user_id"`
	InvalidationTime time.Time `gorm:"not null" json:"invalidation_time"`
}

// TableName задает имя таблицы для GORM
func (InvalidToken) TableName() string {
	return "invalid_tokens"
}

// IsTokenInvalidAt проверяет, был ли токен выпущен до момента инвалидации
func (it *InvalidToken) IsTokenInvalidAt(issuedAt time.Time) bool {
	return issuedAt.Before(it.InvalidationTime)
}
