package manager

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
	apperrors "github.com/closebase/assessment-api/internal/pkg/errors"
	"github.com/closebase/assessment-api/pkg/auth"
)

// Константы для настройки токенов
const (
	// Время жизни refresh-токена (30 дней)
	RefreshTokenLifetime = 30 * 24 * time.Hour
	// Максимальное количество активных refresh-токенов на пользователя (по умолчанию)
	DefaultMaxRefreshTokensPerUser = 10
	// Имя cookie для refresh-токена
	RefreshTokenCookie = "refresh_token"
)

// TokenErrorType определяет тип ошибки токена
type TokenErrorType string

const (
	TokenGenerationFailed TokenErrorType = "TOKEN_GENERATION_FAILED"
	InvalidRefreshToken   TokenErrorType = "INVALID_REFRESH_TOKEN"
	ExpiredRefreshToken   TokenErrorType = "EXPIRED_REFRESH_TOKEN"
	UserNotFound          TokenErrorType = "USER_NOT_FOUND"
	DatabaseError         TokenErrorType = "DATABASE_ERROR"
)

// TokenError представляет ошибку при работе с токенами
type TokenError struct {
	Type    TokenErrorType
	Message string
	Err     error
}

// Error возвращает строковое представление ошибки
func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewTokenError создает новую ошибку токена
func NewTokenError(tokenType TokenErrorType, message string, err error) *TokenError {
	return &TokenError{
		Type:    tokenType,
		Message: message,
		Err:     err,
	}
}

// TokenResponse представляет ответ с токенами
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       uint   `json:"user_id"`
	RefreshToken string `json:"-"` // Выдается только через HttpOnly cookie
}

// TokenManager управляет выдачей и валидацией токенов
type TokenManager struct {
	jwtService              *auth.JWTService
	refreshTokenRepo        repository.RefreshTokenRepository
	userRepo                repository.UserRepository
	accessTokenExpiry       time.Duration
	refreshTokenExpiry      time.Duration
	maxRefreshTokensPerUser int
	// Настройки для cookie
	cookiePath     string
	cookieDomain   string
	cookieSecure   bool
	cookieHttpOnly bool
	cookieSameSite http.SameSite
}

// NewTokenManager создает новый менеджер токенов и возвращает ошибку при проблемах
func NewTokenManager(
	jwtService *auth.JWTService,
	refreshTokenRepo repository.RefreshTokenRepository,
	userRepo repository.UserRepository,
) (*TokenManager, error) {
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for TokenManager")
	}
	if refreshTokenRepo == nil {
		return nil, fmt.Errorf("RefreshTokenRepository is required for TokenManager")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for TokenManager")
	}

	return &TokenManager{
		jwtService:              jwtService,
		refreshTokenRepo:        refreshTokenRepo,
		userRepo:                userRepo,
		accessTokenExpiry:       30 * time.Minute,
		refreshTokenExpiry:      RefreshTokenLifetime,
		maxRefreshTokensPerUser: DefaultMaxRefreshTokensPerUser,
		cookiePath:              "/",
		cookieDomain:            "",
		cookieSecure:            true,
		cookieHttpOnly:          true,
		cookieSameSite:          http.SameSiteStrictMode,
	}, nil
}

// SetAccessTokenExpiry устанавливает время жизни access токена
func (m *TokenManager) SetAccessTokenExpiry(duration time.Duration) {
	if duration > 0 {
		m.accessTokenExpiry = duration
	}
}

// SetRefreshTokenExpiry устанавливает время жизни refresh токена
func (m *TokenManager) SetRefreshTokenExpiry(duration time.Duration) {
	if duration > 0 {
		m.refreshTokenExpiry = duration
	}
}

// SetProductionMode управляет флагом Secure на cookie
func (m *TokenManager) SetProductionMode(isProduction bool) {
	m.cookieSecure = isProduction
	log.Printf("[TokenManager] Production mode set to: %v, Cookie Secure set to: %v", isProduction, m.cookieSecure)
}

// SetMaxRefreshTokensPerUser устанавливает лимит активных refresh-токенов на пользователя
func (m *TokenManager) SetMaxRefreshTokensPerUser(limit int) {
	if limit > 0 {
		m.maxRefreshTokensPerUser = limit
	}
}

// GenerateTokenPair создает новую пару токенов (access и refresh)
func (m *TokenManager) GenerateTokenPair(userID uint, deviceID, ipAddress, userAgent string) (*TokenResponse, error) {
	user, err := m.userRepo.GetByID(userID)
	if err != nil {
		log.Printf("[TokenManager] Ошибка при получении пользователя ID=%d: %v", userID, err)
		return nil, NewTokenError(UserNotFound, "пользователь не найден", err)
	}

	accessToken, err := m.jwtService.GenerateToken(user)
	if err != nil {
		log.Printf("[TokenManager] Ошибка генерации access-токена для пользователя ID=%d: %v", userID, err)
		return nil, NewTokenError(TokenGenerationFailed, "ошибка генерации access токена", err)
	}

	refreshTokenString, err := m.generateRefreshToken(userID, deviceID, ipAddress, userAgent)
	if err != nil {
		log.Printf("[TokenManager] Ошибка генерации refresh-токена для пользователя ID=%d: %v", userID, err)
		return nil, NewTokenError(TokenGenerationFailed, "ошибка генерации refresh токена", err)
	}

	// Лимитируем количество активных refresh-токенов
	if err := m.limitUserSessions(userID); err != nil {
		log.Printf("[TokenManager] Ошибка при лимитировании сессий пользователя ID=%d: %v", userID, err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(m.accessTokenExpiry.Seconds()),
		UserID:       userID,
		RefreshToken: refreshTokenString,
	}, nil
}

// RefreshTokens обновляет пару токенов, используя refresh токен.
// Старый refresh токен отзывается - ротация на каждое обновление.
func (m *TokenManager) RefreshTokens(refreshToken, deviceID, ipAddress, userAgent string) (*TokenResponse, error) {
	tokenEntity, err := m.refreshTokenRepo.GetTokenByValue(hashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, NewTokenError(InvalidRefreshToken, "недействительный refresh токен", err)
		}
		if errors.Is(err, apperrors.ErrExpiredToken) {
			return nil, NewTokenError(ExpiredRefreshToken, "истекший refresh токен", err)
		}
		log.Printf("[TokenManager] Ошибка при получении refresh-токена: %v", err)
		return nil, NewTokenError(DatabaseError, "ошибка при проверке refresh токена", err)
	}

	if !tokenEntity.IsValid() {
		return nil, NewTokenError(InvalidRefreshToken, "refresh токен отозван", nil)
	}

	user, err := m.userRepo.GetByID(tokenEntity.UserID)
	if err != nil {
		log.Printf("[TokenManager] Ошибка при получении пользователя ID=%d для обновления токенов: %v", tokenEntity.UserID, err)
		return nil, NewTokenError(UserNotFound, "пользователь не найден", err)
	}

	// Отзываем старый refresh токен
	if err := m.refreshTokenRepo.RevokeToken(tokenEntity.TokenHash, "rotated"); err != nil {
		log.Printf("[TokenManager] Ошибка при отзыве старого refresh-токена (ID: %d): %v", tokenEntity.ID, err)
		// Не критично, продолжаем
	}

	newAccessToken, err := m.jwtService.GenerateToken(user)
	if err != nil {
		log.Printf("[TokenManager] Ошибка генерации нового access-токена для пользователя ID=%d: %v", user.ID, err)
		return nil, NewTokenError(TokenGenerationFailed, "ошибка генерации нового access токена", err)
	}

	newRefreshTokenString, err := m.generateRefreshToken(user.ID, deviceID, ipAddress, userAgent)
	if err != nil {
		log.Printf("[TokenManager] Ошибка генерации нового refresh-токена для пользователя ID=%d: %v", user.ID, err)
		return nil, NewTokenError(TokenGenerationFailed, "ошибка генерации нового refresh токена", err)
	}

	if err := m.limitUserSessions(user.ID); err != nil {
		log.Printf("[TokenManager] Ошибка при лимитировании сессий пользователя ID=%d после обновления: %v", user.ID, err)
	}

	log.Printf("[TokenManager] Обновлена пара токенов для пользователя ID=%d", user.ID)

	return &TokenResponse{
		AccessToken:  newAccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(m.accessTokenExpiry.Seconds()),
		UserID:       user.ID,
		RefreshToken: newRefreshTokenString,
	}, nil
}

// RevokeRefreshToken отзывает указанный refresh токен
func (m *TokenManager) RevokeRefreshToken(refreshToken string) error {
	if err := m.refreshTokenRepo.RevokeToken(hashRefreshToken(refreshToken), "logout"); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[TokenManager] Попытка отозвать несуществующий refresh токен")
			return NewTokenError(InvalidRefreshToken, "токен не найден", err)
		}
		log.Printf("[TokenManager] Ошибка при отзыве refresh-токена: %v", err)
		return NewTokenError(DatabaseError, "ошибка при отзыве токена", err)
	}
	return nil
}

// RevokeAllUserTokens отзывает все refresh-токены пользователя и инвалидирует JWT
func (m *TokenManager) RevokeAllUserTokens(userID uint, reason string) error {
	if err := m.refreshTokenRepo.RevokeAllForUser(userID, reason); err != nil {
		log.Printf("[TokenManager] Ошибка при отзыве всех refresh-токенов пользователя ID=%d: %v", userID, err)
		return NewTokenError(DatabaseError, "ошибка отзыва refresh токенов", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if jwtErr := m.jwtService.InvalidateTokensForUser(ctx, userID); jwtErr != nil {
		log.Printf("[TokenManager] Ошибка при инвалидации JWT токенов пользователя ID=%d: %v", userID, jwtErr)
		// Refresh токены уже отозваны, ошибку JWT не считаем критической
	}

	log.Printf("[TokenManager] Отозваны все токены пользователя ID=%d. Причина: %s", userID, reason)
	return nil
}

// CleanupExpiredTokens удаляет все истекшие и отозванные refresh-токены
func (m *TokenManager) CleanupExpiredTokens() error {
	count, err := m.refreshTokenRepo.CleanupExpiredTokens()
	if err != nil {
		log.Printf("[TokenManager] Ошибка при очистке истекших refresh-токенов: %v", err)
		return NewTokenError(DatabaseError, "ошибка очистки истекших токенов", err)
	}
	if count > 0 {
		log.Printf("[TokenManager] Выполнена очистка %d истекших токенов", count)
	}
	return nil
}

// SetRefreshTokenCookie устанавливает refresh-токен в HttpOnly куки
func (m *TokenManager) SetRefreshTokenCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refreshToken,
		Path:     m.cookiePath,
		Domain:   m.cookieDomain,
		HttpOnly: m.cookieHttpOnly,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
		MaxAge:   int(m.refreshTokenExpiry.Seconds()),
	})
}

// GetRefreshTokenFromCookie получает refresh-токен из куки
func (m *TokenManager) GetRefreshTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", NewTokenError(InvalidRefreshToken, "кука refresh_token не найдена", err)
		}
		return "", NewTokenError(InvalidRefreshToken, "ошибка чтения куки refresh_token", err)
	}
	return cookie.Value, nil
}

// ClearRefreshTokenCookie удаляет cookie с refresh-токеном
func (m *TokenManager) ClearRefreshTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    "",
		Path:     m.cookiePath,
		Domain:   m.cookieDomain,
		HttpOnly: m.cookieHttpOnly,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
		MaxAge:   -1,
	})
}

// Служебные функции

// generateRefreshToken генерирует новый refresh-токен и сохраняет его хеш в БД.
// Сырое значение токена в БД не пишется.
func (m *TokenManager) generateRefreshToken(userID uint, deviceID, ipAddress, userAgent string) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	tokenString := hex.EncodeToString(randomBytes)

	// Время истечения - "скользящее окно" от текущего момента
	expiresAt := time.Now().Add(m.refreshTokenExpiry)

	token := entity.NewRefreshToken(userID, hashRefreshToken(tokenString), deviceID, ipAddress, userAgent, expiresAt)
	if _, err := m.refreshTokenRepo.CreateToken(token); err != nil {
		return "", err
	}

	return tokenString, nil
}

// hashRefreshToken хеширует refresh токен с использованием SHA-256
func hashRefreshToken(token string) string {
	hasher := sha256.New()
	hasher.Write([]byte(token))
	return hex.EncodeToString(hasher.Sum(nil))
}

// limitUserSessions отзывает самые старые сессии сверх лимита
func (m *TokenManager) limitUserSessions(userID uint) error {
	count, err := m.refreshTokenRepo.CountActiveForUser(userID)
	if err != nil {
		return fmt.Errorf("ошибка подсчета токенов: %w", err)
	}

	if count > m.maxRefreshTokensPerUser {
		log.Printf("[TokenManager] Превышен лимит сессий для пользователя ID=%d (%d > %d). Отзыв старых.", userID, count, m.maxRefreshTokensPerUser)
		if err := m.refreshTokenRepo.RevokeOldestForUser(userID, m.maxRefreshTokensPerUser); err != nil {
			return fmt.Errorf("ошибка отзыва старых токенов: %w", err)
		}
	}
	return nil
}
