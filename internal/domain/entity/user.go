package entity

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Роли пользователей
const (
	RoleCandidate = "candidate"
	RoleRecruiter = "recruiter"
	RoleAdmin     = "admin"
)

// User представляет пользователя платформы (кандидата или рекрутера)
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Email              string     `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password           string     `gorm:"size:100;not null" json:"-"`
	FirstName          string     `gorm:"size:100;not null;default:''" json:"first_name"`
	LastName           string     `gorm:"size:100;not null;default:''" json:"last_name"`
	Role               string     `gorm:"size:20;not null;default:'candidate';index" json:"role"`
	Language           string     `gorm:"size:5;not null;default:'de'" json:"language"` // "de" или "en"
	BadgeTier          string     `gorm:"size:10;not null;default:'none'" json:"badge_tier"`
	AssessmentPassedAt *time.Time `gorm:"type:timestamp" json:"assessment_passed_at,omitempty"`
	AttemptsCount      int64      `gorm:"not null;default:0" json:"attempts_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// IsAdmin проверяет административные права
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsRecruiter проверяет, имеет ли пользователь доступ к результатам кандидатов
func (u *User) IsRecruiter() bool {
	return u.Role == RoleRecruiter || u.Role == RoleAdmin
}

// HasPassedAssessment проверяет, разблокирован ли бейдж
func (u *User) HasPassedAssessment() bool {
	return u.AssessmentPassedAt != nil
}

// FullName возвращает отображаемое имя пользователя
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// BeforeSave хеширует пароль перед сохранением, только если он не является bcrypt-хешем
func (u *User) BeforeSave(tx *gorm.DB) error {
	// Хешируем пароль только если он:
	// 1. Не пустой
	// 2. Не является уже bcrypt-хешем (начинается с "$2a$", "$2b$" или "$2y$")
	if len(u.Password) > 0 && !strings.HasPrefix(u.Password, "$2a$") &&
		!strings.HasPrefix(u.Password, "$2b$") && !strings.HasPrefix(u.Password, "$2y$") {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[User.BeforeSave] Ошибка при хешировании пароля для email=%s: %v", u.Email, err)
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
