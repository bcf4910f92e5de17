package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts.
// Supports per-tenant targeting and consistent per-user bucketing, so a
// feature can be tried on one tenant before the whole fleet gets it.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // "tenant/user" -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Tenant targeting. Empty means all tenants.
	TargetTenants []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	TenantID string
	UserID   string
	IsAdmin  bool
}

func (c *FeatureContext) userKey() string {
	return c.TenantID + "/" + c.UserID
}

// Predefined feature flag names.
const (
	// === Progression Features ===
	FeatureProgressionStreaks    = "progression.streaks"     // Winning streak tracking
	FeatureProgressionTimeBadges = "progression.time_badges" // Time-of-day and weekend badges
	FeatureProgressionGrants     = "progression.grants"      // Manual XP grants

	// === Challenge Features ===
	FeatureChallengeEnabled = "challenge.enabled" // 30-day challenge tracker
	FeatureChallengeNotes   = "challenge.notes"   // Free-form notes on completed days

	// === Leaderboard Features ===
	FeatureLeaderboardCache    = "leaderboard.cache"     // Redis-backed ranking cache
	FeatureLeaderboardUserRank = "leaderboard.user_rank" // Individual rank lookups

	// === Experimental Features ===
	FeatureExperimentalSeasonalBadges = "experimental.seasonal_badges" // Rotating badge catalog
	FeatureExperimentalWebhooks       = "experimental.webhooks"        // Outbound event webhooks
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Progression features - core product, enabled by default
	ff.features[FeatureProgressionStreaks] = &Feature{
		Name:           FeatureProgressionStreaks,
		Description:    "Track winning streaks and award streak badges",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProgressionTimeBadges] = &Feature{
		Name:           FeatureProgressionTimeBadges,
		Description:    "Award badges for early, late and weekend trades",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureProgressionGrants] = &Feature{
		Name:           FeatureProgressionGrants,
		Description:    "Allow manual XP grants by operators",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Challenge features
	ff.features[FeatureChallengeEnabled] = &Feature{
		Name:           FeatureChallengeEnabled,
		Description:    "30-day challenge tracker",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureChallengeNotes] = &Feature{
		Name:           FeatureChallengeNotes,
		Description:    "Journal notes on completed challenge days",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Leaderboard features
	ff.features[FeatureLeaderboardCache] = &Feature{
		Name:           FeatureLeaderboardCache,
		Description:    "Serve rankings from the Redis cache",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardUserRank] = &Feature{
		Name:           FeatureLeaderboardUserRank,
		Description:    "Individual rank lookup endpoint",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalSeasonalBadges] = &Feature{
		Name:           FeatureExperimentalSeasonalBadges,
		Description:    "Rotating seasonal badge catalog",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureExperimentalWebhooks] = &Feature{
		Name:           FeatureExperimentalWebhooks,
		Description:    "Outbound webhooks for progression events",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_CHALLENGE_ENABLED=true
// Example: FEATURE_EXPERIMENTAL_SEASONAL_BADGES=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "challenge.enabled" -> "FEATURE_CHALLENGE_ENABLED"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user overrides first
	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.userKey()]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check tenant targeting
	if len(feature.TargetTenants) > 0 && ctx != nil && ctx.TenantID != "" {
		tenantMatch := false
		for _, t := range feature.TargetTenants {
			if t == ctx.TenantID {
				tenantMatch = true
				break
			}
		}
		if !tenantMatch {
			return false
		}
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return isInRollout(ctx.userKey(), featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func isInRollout(userKey, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userKey))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetUserOverride sets a feature override for a specific user.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetUserOverride(tenantID, userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	key := tenantID + "/" + userID
	if _, ok := ff.userOverrides[key]; !ok {
		ff.userOverrides[key] = make(map[string]bool)
	}
	ff.userOverrides[key][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(tenantID, userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, tenantID+"/"+userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// SetTargetTenants limits a feature to the given tenants.
// An empty list removes the restriction.
func (ff *FeatureFlags) SetTargetTenants(featureName string, tenants []string) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	feature.TargetTenants = tenants
	return nil
}

// SetTimeWindow sets the activation window for a feature.
// Either bound may be nil to leave that side open.
func (ff *FeatureFlags) SetTimeWindow(featureName string, from, until *time.Time) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	feature.EnabledFrom = from
	feature.EnabledUntil = until
	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
