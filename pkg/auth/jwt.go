package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/closebase/assessment-api/internal/domain/entity"
	"github.com/closebase/assessment-api/internal/domain/repository"
)

// JWTCustomClaims содержит пользовательские поля для токена
type JWTCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService предоставляет методы для работы с JWT
type JWTService struct {
	secretKey     string
	expirationHrs int
	// Репозиторий для персистентного хранения инвалидированных токенов
	invalidTokenRepo repository.InvalidTokenRepository
	// Интервал для очистки устаревших записей инвалидации
	cleanupInterval time.Duration
	appCtx          context.Context
}

// NewJWTService создает новый сервис JWT и возвращает ошибку при проблемах
func NewJWTService(
	secretKey string,
	expirationHrs int,
	invalidTokenRepo repository.InvalidTokenRepository,
	cleanupInterval time.Duration,
	appCtx context.Context,
) (*JWTService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required for JWTService")
	}
	if invalidTokenRepo == nil {
		return nil, fmt.Errorf("InvalidTokenRepository is required for JWTService")
	}
	if appCtx == nil {
		return nil, fmt.Errorf("appCtx is required for JWTService")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 1 * time.Hour
	}

	service := &JWTService{
		secretKey:        secretKey,
		expirationHrs:    expirationHrs,
		invalidTokenRepo: invalidTokenRepo,
		cleanupInterval:  cleanupInterval,
		appCtx:           appCtx,
	}

	// Запускаем периодическую очистку устаревших записей инвалидации
	go service.runCleanupRoutine()

	return service, nil
}

// GenerateToken создает новый JWT токен для пользователя
func (s *JWTService) GenerateToken(user *entity.User) (string, error) {
	claims := &JWTCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * time.Duration(s.expirationHrs))),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "assessment-api",
			Subject:   fmt.Sprintf("%d", user.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		log.Printf("[JWT] Ошибка генерации токена для пользователя ID=%d: %v", user.ID, err)
		return "", err
	}
	return tokenString, nil
}

// ParseToken проверяет и расшифровывает JWT токен
func (s *JWTService) ParseToken(ctx context.Context, tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, errors.New("token is malformed")
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, errors.New("token is expired")
			case ve.Errors&jwt.ValidationErrorNotValidYet != 0:
				return nil, errors.New("token not valid yet")
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				log.Printf("[JWT] Неверная подпись токена для пользователя ID=%d", claims.UserID)
				return nil, errors.New("signature is invalid")
			default:
				return nil, errors.New("token validation failed")
			}
		}
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	// Проверка на инвалидацию: токены, выданные до момента инвалидации, недействительны
	if claims.UserID > 0 && claims.IssuedAt != nil {
		invalid, repoErr := s.invalidTokenRepo.IsTokenInvalid(ctx, claims.UserID, claims.IssuedAt.Time)
		if repoErr != nil {
			log.Printf("[JWT] Ошибка проверки инвалидации для пользователя ID=%d: %v", claims.UserID, repoErr)
			return nil, fmt.Errorf("failed to check token invalidation: %w", repoErr)
		}
		if invalid {
			log.Printf("[JWT] Токен инвалидирован для пользователя ID=%d, выдан в %v", claims.UserID, claims.IssuedAt.Time)
			return nil, errors.New("token has been invalidated")
		}
	}

	return claims, nil
}

// InvalidateTokensForUser делает все ранее выданные токены пользователя недействительными
func (s *JWTService) InvalidateTokensForUser(ctx context.Context, userID uint) error {
	now := time.Now()
	if err := s.invalidTokenRepo.AddInvalidToken(ctx, userID, now); err != nil {
		log.Printf("[JWT] Ошибка при добавлении записи инвалидации для пользователя ID=%d: %v", userID, err)
		return err
	}
	log.Printf("[JWT] Токены инвалидированы для пользователя ID=%d в %v", userID, now)
	return nil
}

// CleanupInvalidatedUsers удаляет устаревшие записи об инвалидированных токенах
func (s *JWTService) CleanupInvalidatedUsers(ctx context.Context) error {
	// Записи старше двойного срока жизни access-токена уже ни на что не влияют
	cutoffTime := time.Now().Add(-time.Hour * time.Duration(s.expirationHrs*2))
	return s.invalidTokenRepo.CleanupOldInvalidTokens(ctx, cutoffTime)
}

// runCleanupRoutine запускает горутину для периодической очистки
func (s *JWTService) runCleanupRoutine() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupInterval/2)
			if err := s.CleanupInvalidatedUsers(cleanupCtx); err != nil {
				log.Printf("[JWTService] Ошибка периодической очистки: %v", err)
			}
			cancel()
		case <-s.appCtx.Done():
			log.Printf("[JWTService] Очистка остановлена из-за отмены контекста приложения")
			return
		}
	}
}
