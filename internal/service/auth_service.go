package service

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
	"github.com/closebase/assessment-api/pkg/auth/manager"
)

// AuthService предоставляет методы для работы с аутентификацией и пользователями
type AuthService struct {
	userRepo     repository.UserRepository
	tokenManager *manager.TokenManager
}

// RegisterInput содержит все данные для регистрации
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Language  string // "de" или "en"

	// Метаданные
	IP        string
	UserAgent string
}

// NewAuthService создает новый сервис аутентификации и возвращает ошибку при проблемах
func NewAuthService(
	userRepo repository.UserRepository,
	tokenManager *manager.TokenManager,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if tokenManager == nil {
		return nil, fmt.Errorf("TokenManager is required for AuthService")
	}

	return &AuthService{
		userRepo:     userRepo,
		tokenManager: tokenManager,
	}, nil
}

// RegisterUser регистрирует нового кандидата
func (s *AuthService) RegisterUser(input RegisterInput) (*entity.User, error) {
	// Нормализуем
	input.Email = normalizeEmail(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Language = strings.TrimSpace(input.Language)

	if input.Email == "" {
		return nil, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", apperrors.ErrValidation)
	}
	if input.FirstName == "" || input.LastName == "" {
		return nil, fmt.Errorf("%w: first_name and last_name are required", apperrors.ErrValidation)
	}
	if input.Language == "" {
		input.Language = "de"
	}
	if input.Language != "de" && input.Language != "en" {
		return nil, fmt.Errorf("%w: invalid language '%s', allowed: de, en", apperrors.ErrValidation, input.Language)
	}

	// Проверяем, существует ли пользователь с таким email
	_, err := s.userRepo.GetByEmail(input.Email)
	if err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}

	user := &entity.User{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      entity.RoleCandidate,
		Language:  input.Language,
		BadgeTier: entity.BadgeTierNone,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[AuthService] Зарегистрирован новый кандидат ID=%d (%s)", user.ID, user.Email)
	return user, nil
}

// LoginUser аутентифицирует пользователя и возвращает пару токенов
func (s *AuthService) LoginUser(email, password, deviceID, ipAddress, userAgent string) (*manager.TokenResponse, error) {
	user, err := s.AuthenticateUser(email, password)
	if err != nil {
		// Ошибка уже залогирована в AuthenticateUser
		return nil, err
	}

	tokenResp, err := s.tokenManager.GenerateTokenPair(user.ID, deviceID, ipAddress, userAgent)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации токенов для пользователя ID=%d: %v", user.ID, err)
		return nil, fmt.Errorf("ошибка генерации токенов")
	}

	log.Printf("[AuthService] Пользователь ID=%d (%s) успешно вошел в систему", user.ID, user.Email)
	return tokenResp, nil
}

// RefreshTokens обновляет пару токенов, используя refresh токен
func (s *AuthService) RefreshTokens(refreshToken, deviceID, ipAddress, userAgent string) (*manager.TokenResponse, error) {
	tokenResp, err := s.tokenManager.RefreshTokens(refreshToken, deviceID, ipAddress, userAgent)
	if err != nil {
		var tokenErr *manager.TokenError
		if errors.As(err, &tokenErr) {
			log.Printf("[AuthService] Ошибка обновления токенов: %s - %s", tokenErr.Type, tokenErr.Message)
			return nil, err
		}
		log.Printf("[AuthService] Неизвестная ошибка обновления токенов: %v", err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при обновлении токенов: %w", err)
	}

	return tokenResp, nil
}

// LogoutUser отзывает указанный refresh токен
func (s *AuthService) LogoutUser(refreshToken string) error {
	err := s.tokenManager.RevokeRefreshToken(refreshToken)
	if err != nil {
		var tokenErr *manager.TokenError
		if errors.As(err, &tokenErr) && tokenErr.Type == manager.InvalidRefreshToken {
			// Токен уже недействителен, считаем логаут успешным
			return nil
		}
		log.Printf("[AuthService] Ошибка отзыва refresh токена: %v", err)
		return fmt.Errorf("ошибка при выходе из системы: %w", err)
	}
	return nil
}

// LogoutAllDevices отзывает все токены пользователя
func (s *AuthService) LogoutAllDevices(userID uint) error {
	if err := s.tokenManager.RevokeAllUserTokens(userID, "logout all devices"); err != nil {
		log.Printf("[AuthService] Ошибка при отзыве всех токенов пользователя ID=%d: %v", userID, err)
		return fmt.Errorf("ошибка при выходе со всех устройств: %w", err)
	}

	log.Printf("[AuthService] Все сессии для пользователя ID=%d завершены", userID)
	return nil
}

// GetUserByID возвращает пользователя по ID
func (s *AuthService) GetUserByID(userID uint) (*entity.User, error) {
	return s.userRepo.GetByID(userID)
}

// GetUserByEmail возвращает пользователя по Email
func (s *AuthService) GetUserByEmail(email string) (*entity.User, error) {
	return s.userRepo.GetByEmail(normalizeEmail(email))
}

// UpdateUserProfile обновляет профиль пользователя
func (s *AuthService) UpdateUserProfile(userID uint, firstName, lastName string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return fmt.Errorf("%w: first_name and last_name are required", apperrors.ErrValidation)
	}

	// Безопасное обновление профиля без изменения пароля
	updates := map[string]interface{}{
		"first_name": firstName,
		"last_name":  lastName,
	}

	return s.userRepo.UpdateProfile(userID, updates)
}

// UpdateUserLanguage обновляет язык интерфейса пользователя
func (s *AuthService) UpdateUserLanguage(userID uint, language string) error {
	// Валидация языка (de или en)
	if language != "de" && language != "en" {
		return fmt.Errorf("%w: invalid language '%s', allowed: de, en", apperrors.ErrValidation, language)
	}

	updates := map[string]interface{}{
		"language": language,
	}

	return s.userRepo.UpdateProfile(userID, updates)
}

// ChangePassword изменяет пароль пользователя и инвалидирует все токены
func (s *AuthService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}

	if !user.CheckPassword(oldPassword) {
		return fmt.Errorf("%w: incorrect old password", apperrors.ErrUnauthorized)
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", apperrors.ErrValidation)
	}

	// UserRepo.UpdatePassword выполняет хеширование и использует прямой SQL-запрос
	// для обхода хука BeforeSave и предотвращения двойного хеширования
	if err := s.userRepo.UpdatePassword(userID, newPassword); err != nil {
		return err
	}

	// Инвалидируем все токены пользователя
	return s.tokenManager.RevokeAllUserTokens(userID, "password changed")
}

// AuthenticateUser проверяет учетные данные пользователя без создания токенов
func (s *AuthService) AuthenticateUser(email, password string) (*entity.User, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		log.Printf("[AuthService] Пользователь с email %s не найден: %v", email, err)
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	if !user.CheckPassword(password) {
		log.Printf("[AuthService] Неверный пароль для пользователя с email %s", email)
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	return user, nil
}

// normalizeEmail приводит email к стандартному виду: trim пробелов + lowercase
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
