package challenge

import (
	"context"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// Repository - хранилище прогресса челленджей.
type Repository interface {
	// Get возвращает прогресс или shared.ErrNotFound-ошибку.
	Get(ctx context.Context, ref shared.UserRef, challengeID string) (*Challenge, error)

	// GetForUpdate возвращает прогресс под блокировкой записи.
	GetForUpdate(ctx context.Context, ref shared.UserRef, challengeID string) (*Challenge, error)

	// Create сохраняет новый прогресс.
	Create(ctx context.Context, c *Challenge) error

	// Save перезаписывает существующий прогресс.
	Save(ctx context.Context, c *Challenge) error
}
