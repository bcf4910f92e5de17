package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagCtx(tenantID, userID string) *FeatureContext {
	return &FeatureContext{TenantID: tenantID, UserID: userID}
}

func TestFeatureFlags_DefaultsEnabled(t *testing.T) {
	flags := LoadFeatureFlags()

	assert.True(t, flags.IsEnabled(FeatureProgressionStreaks, flagCtx("acme", "u-1")))
	assert.True(t, flags.IsEnabled(FeatureChallengeEnabled, flagCtx("acme", "u-1")))
	assert.True(t, flags.IsEnabled(FeatureLeaderboardCache, flagCtx("acme", "u-1")))
}

func TestFeatureFlags_ExperimentalOffByDefault(t *testing.T) {
	flags := LoadFeatureFlags()

	assert.False(t, flags.IsEnabled(FeatureExperimentalSeasonalBadges, flagCtx("acme", "u-1")))
	assert.False(t, flags.IsEnabled(FeatureExperimentalWebhooks, flagCtx("acme", "u-1")))
}

func TestFeatureFlags_UnknownFlagIsDisabled(t *testing.T) {
	flags := LoadFeatureFlags()

	assert.False(t, flags.IsEnabled("progression.nonexistent", flagCtx("acme", "u-1")))
}

func TestFeatureFlags_EnableDisable(t *testing.T) {
	flags := LoadFeatureFlags()

	require.NoError(t, flags.DisableFeature(FeatureChallengeNotes))
	assert.False(t, flags.IsEnabled(FeatureChallengeNotes, flagCtx("acme", "u-1")))

	require.NoError(t, flags.EnableFeature(FeatureChallengeNotes))
	assert.True(t, flags.IsEnabled(FeatureChallengeNotes, flagCtx("acme", "u-1")))
}

func TestFeatureFlags_UserOverrideWinsOverDisabled(t *testing.T) {
	flags := LoadFeatureFlags()

	require.NoError(t, flags.DisableFeature(FeatureExperimentalSeasonalBadges))
	flags.SetUserOverride("acme", "u-canary", FeatureExperimentalSeasonalBadges, true)

	assert.True(t, flags.IsEnabled(FeatureExperimentalSeasonalBadges, flagCtx("acme", "u-canary")))
	assert.False(t, flags.IsEnabled(FeatureExperimentalSeasonalBadges, flagCtx("acme", "u-other")))
	// Оверрайд привязан к паре тенант+пользователь, не только к ID.
	assert.False(t, flags.IsEnabled(FeatureExperimentalSeasonalBadges, flagCtx("globex", "u-canary")))
}

func TestFeatureFlags_ClearUserOverrides(t *testing.T) {
	flags := LoadFeatureFlags()
	require.NoError(t, flags.DisableFeature(FeatureChallengeNotes))

	flags.SetUserOverride("acme", "u-canary", FeatureChallengeNotes, true)
	require.True(t, flags.IsEnabled(FeatureChallengeNotes, flagCtx("acme", "u-canary")))

	flags.ClearUserOverrides("acme", "u-canary")
	assert.False(t, flags.IsEnabled(FeatureChallengeNotes, flagCtx("acme", "u-canary")))
}

func TestFeatureFlags_AdminBypass(t *testing.T) {
	flags := LoadFeatureFlags()
	require.NoError(t, flags.DisableFeature(FeatureProgressionGrants))

	admin := &FeatureContext{TenantID: "acme", UserID: "u-admin", IsAdmin: true}
	assert.True(t, flags.IsEnabled(FeatureProgressionGrants, admin))
}

func TestFeatureFlags_RolloutPercentBoundaries(t *testing.T) {
	flags := LoadFeatureFlags()

	require.NoError(t, flags.SetRolloutPercent(FeatureLeaderboardUserRank, 0))
	assert.False(t, flags.IsEnabled(FeatureLeaderboardUserRank, flagCtx("acme", "u-1")))

	require.NoError(t, flags.SetRolloutPercent(FeatureLeaderboardUserRank, 100))
	assert.True(t, flags.IsEnabled(FeatureLeaderboardUserRank, flagCtx("acme", "u-1")))

	err := flags.SetRolloutPercent(FeatureLeaderboardUserRank, 150)
	assert.ErrorIs(t, err, ErrInvalidRolloutPercent)

	err = flags.SetRolloutPercent("progression.nonexistent", 50)
	assert.ErrorIs(t, err, ErrFeatureNotFound)
}

func TestFeatureFlags_RolloutIsConsistentPerUser(t *testing.T) {
	flags := LoadFeatureFlags()
	require.NoError(t, flags.SetRolloutPercent(FeatureProgressionTimeBadges, 50))

	ctx := flagCtx("acme", "u-sticky")
	first := flags.IsEnabled(FeatureProgressionTimeBadges, ctx)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, flags.IsEnabled(FeatureProgressionTimeBadges, ctx))
	}
}

func TestFeatureFlags_TimeWindow(t *testing.T) {
	flags := LoadFeatureFlags()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	require.NoError(t, flags.SetTimeWindow(FeatureChallengeEnabled, &future, nil))
	assert.False(t, flags.IsEnabled(FeatureChallengeEnabled, flagCtx("acme", "u-1")))

	require.NoError(t, flags.SetTimeWindow(FeatureChallengeEnabled, &past, &future))
	assert.True(t, flags.IsEnabled(FeatureChallengeEnabled, flagCtx("acme", "u-1")))

	require.NoError(t, flags.SetTimeWindow(FeatureChallengeEnabled, nil, &past))
	assert.False(t, flags.IsEnabled(FeatureChallengeEnabled, flagCtx("acme", "u-1")))
}

func TestFeatureFlags_TenantTargeting(t *testing.T) {
	flags := LoadFeatureFlags()

	require.NoError(t, flags.SetTargetTenants(FeatureLeaderboardCache, []string{"acme"}))

	assert.True(t, flags.IsEnabled(FeatureLeaderboardCache, flagCtx("acme", "u-1")))
	assert.False(t, flags.IsEnabled(FeatureLeaderboardCache, flagCtx("globex", "u-1")))
}

func TestFeatureFlags_EnvironmentOverride(t *testing.T) {
	t.Setenv("FEATURE_CHALLENGE_NOTES", "false")
	t.Setenv("FEATURE_PROGRESSION_TIME_BADGES", "25")

	flags := LoadFeatureFlags()

	assert.False(t, flags.IsEnabled(FeatureChallengeNotes, flagCtx("acme", "u-1")))

	feature, ok := flags.GetAllFeatures()[FeatureProgressionTimeBadges]
	require.True(t, ok)
	assert.Equal(t, 25, feature.RolloutPercent)
	assert.True(t, feature.Enabled)
}
