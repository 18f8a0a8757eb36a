package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray - пользовательский тип для работы с JSONB-массивами строк
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*s = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scenario представляет сценарий со свободным ответом (часть 2 ассессмента)
type Scenario struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Title     string      `gorm:"size:100;not null" json:"title"`
	Prompt    string      `gorm:"type:text;not null" json:"prompt"`
	Keywords  StringArray `gorm:"type:jsonb;not null" json:"keywords"`
	MinWords  int         `gorm:"not null;default:100" json:"min_words"`
	MaxWords  int         `gorm:"not null;default:150" json:"max_words"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Scenario) TableName() string {
	return "scenarios"
}

// InWordRange проверяет, попадает ли количество слов в допустимые границы
func (s *Scenario) InWordRange(wordCount int) bool {
	return wordCount >= s.MinWords && wordCount <= s.MaxWords
}

// KeywordCount возвращает количество ключевых слов сценария
func (s *Scenario) KeywordCount() int {
	return len(s.Keywords)
}
