package redis

import (
	"context"
	"errors"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache implements leaderboard.Cache using the generic Redis Cache.
// Each tenant gets one key holding the full serialized ranking; limits are
// applied on read. Writes always replace the whole ranking, so a short TTL
// plus explicit invalidation after XP changes keeps entries fresh.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a new LeaderboardCache with the default TTL.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{
		cache: cache,
		ttl:   TTLLeaderboardCache,
	}
}

// NewLeaderboardCacheWithTTL creates a LeaderboardCache with a custom TTL.
func NewLeaderboardCacheWithTTL(cache *Cache, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		cache: cache,
		ttl:   ttl,
	}
}

// rankingBlob is the serialized form of a ranking. The domain types stay
// free of json tags; this envelope pins the wire shape instead.
type rankingBlob struct {
	TenantID    string      `json:"tenant_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Entries     []entryBlob `json:"entries"`
}

type entryBlob struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	XP          int     `json:"xp"`
	Level       int     `json:"level"`
	LevelName   string  `json:"level_name"`
	WinRate     float64 `json:"win_rate"`
	BadgeCount  int     `json:"badge_count"`
	Rank        int     `json:"rank"`
}

// GetRanking returns the cached ranking for a tenant, truncated to limit.
// A cached ranking is always the full tenant ranking, so truncation on
// read never hides entries a caller is entitled to.
func (l *LeaderboardCache) GetRanking(ctx context.Context, tenantID shared.TenantID, limit int) (*leaderboard.Ranking, error) {
	var blob rankingBlob
	err := l.cache.Get(ctx, RankingKey(string(tenantID)), &blob)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.WrapError("leaderboard", "GetRanking",
				shared.ErrNotFound, "ranking not in cache", err)
		}
		return nil, err
	}

	ranking := blobToRanking(blob)
	if limit > 0 && len(ranking.Entries) > limit {
		ranking.Entries = ranking.Entries[:limit]
	}

	return ranking, nil
}

// PutRanking stores a ranking under the tenant's key.
func (l *LeaderboardCache) PutRanking(ctx context.Context, ranking *leaderboard.Ranking) error {
	if ranking == nil {
		return ErrCacheNilValue
	}

	return l.cache.Set(ctx, RankingKey(string(ranking.TenantID)), rankingToBlob(ranking), l.ttl)
}

// Invalidate drops the tenant's cached ranking after an XP change.
func (l *LeaderboardCache) Invalidate(ctx context.Context, tenantID shared.TenantID) error {
	return l.cache.Delete(ctx, RankingKey(string(tenantID)))
}

// ─────────────────────────────────────────────────────────────────────────────
// Serialization helpers
// ─────────────────────────────────────────────────────────────────────────────

func rankingToBlob(ranking *leaderboard.Ranking) rankingBlob {
	blob := rankingBlob{
		TenantID:    string(ranking.TenantID),
		GeneratedAt: ranking.GeneratedAt,
		Entries:     make([]entryBlob, len(ranking.Entries)),
	}
	for i, e := range ranking.Entries {
		blob.Entries[i] = entryBlob{
			UserID:      string(e.UserID),
			DisplayName: e.DisplayName,
			XP:          e.XP.Int(),
			Level:       e.Level,
			LevelName:   e.LevelName,
			WinRate:     e.WinRate,
			BadgeCount:  e.BadgeCount,
			Rank:        e.Rank,
		}
	}
	return blob
}

func blobToRanking(blob rankingBlob) *leaderboard.Ranking {
	ranking := &leaderboard.Ranking{
		TenantID:    shared.TenantID(blob.TenantID),
		GeneratedAt: blob.GeneratedAt,
		Entries:     make([]leaderboard.Entry, len(blob.Entries)),
	}
	for i, e := range blob.Entries {
		ranking.Entries[i] = leaderboard.Entry{
			UserID:      shared.UserID(e.UserID),
			DisplayName: e.DisplayName,
			XP:          shared.XP(e.XP),
			Level:       e.Level,
			LevelName:   e.LevelName,
			WinRate:     e.WinRate,
			BadgeCount:  e.BadgeCount,
			Rank:        e.Rank,
		}
	}
	return ranking
}
