package repository

import "errors"

var (
	// ErrAttemptNotInProgress означает, что попытка уже отправлена (или не существует).
	ErrAttemptNotInProgress = errors.New("attempt is not in progress")
	// ErrActiveAttemptExists означает, что у пользователя уже есть незавершенная попытка.
	ErrActiveAttemptExists = errors.New("user already has an active attempt")
)
