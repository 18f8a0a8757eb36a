package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Фиксированные категории компетенций для вопросов.
// Процент по каждой категории попадает в итоговый результат.
const (
	CategoryEmpathie           = "empathie"
	CategoryAkquise            = "akquise"
	CategoryResilienz          = "resilienz"
	CategoryKonfliktmanagement = "konfliktmanagement"
)

// AllCategories возвращает фиксированный список категорий в стабильном порядке
func AllCategories() []string {
	return []string{
		CategoryEmpathie,
		CategoryAkquise,
		CategoryResilienz,
		CategoryKonfliktmanagement,
	}
}

// AnswerOption представляет один вариант ответа с весом в баллах
type AnswerOption struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Points int    `json:"points"`
}

// OptionList - пользовательский тип для хранения вариантов ответа в JSONB
type OptionList []AnswerOption

// Scan реализует интерфейс sql.Scanner для OptionList
// Используется GORM для чтения JSONB данных из базы
func (o *OptionList) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = OptionList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = OptionList{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для OptionList
func (o OptionList) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// McQuestion представляет вопрос с выбором варианта (часть 1 ассессмента)
type McQuestion struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Text      string     `gorm:"size:500;not null" json:"text"`
	Category  string     `gorm:"size:30;not null;index" json:"category"`
	Options   OptionList `gorm:"type:jsonb;not null" json:"options"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (McQuestion) TableName() string {
	return "mc_questions"
}

// OptionByID возвращает вариант ответа по его идентификатору
func (q *McQuestion) OptionByID(optionID string) (*AnswerOption, bool) {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return &q.Options[i], true
		}
	}
	return nil, false
}

// IsValidOption проверяет, существует ли вариант с таким идентификатором
func (q *McQuestion) IsValidOption(optionID string) bool {
	_, ok := q.OptionByID(optionID)
	return ok
}

// MaxPoints возвращает максимально достижимый балл за вопрос
// (балл лучшего варианта; используется для нормирования part1)
func (q *McQuestion) MaxPoints() int {
	max := 0
	for _, opt := range q.Options {
		if opt.Points > max {
			max = opt.Points
		}
	}
	return max
}

// OptionsCount возвращает количество вариантов ответа
func (q *McQuestion) OptionsCount() int {
	return len(q.Options)
}

// IsValidCategory проверяет, относится ли вопрос к одной из фиксированных категорий
func (q *McQuestion) IsValidCategory() bool {
	for _, c := range AllCategories() {
		if q.Category == c {
			return true
		}
	}
	return false
}
