package leaderboard

import (
	"context"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// Repository читает записи рейтинга из основного хранилища.
type Repository interface {
	// Entries возвращает все записи тенанта без рангов.
	Entries(ctx context.Context, tenantID shared.TenantID) ([]Entry, error)
}

// Cache - быстрый кэш собранных рейтингов (Redis).
type Cache interface {
	// GetRanking возвращает кэшированный рейтинг или shared.ErrNotFound-ошибку.
	GetRanking(ctx context.Context, tenantID shared.TenantID, limit int) (*Ranking, error)

	// PutRanking сохраняет собранный рейтинг.
	PutRanking(ctx context.Context, ranking *Ranking) error

	// Invalidate сбрасывает кэш тенанта после изменения XP.
	Invalidate(ctx context.Context, tenantID shared.TenantID) error
}
