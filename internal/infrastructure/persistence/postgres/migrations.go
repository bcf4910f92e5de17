// Package postgres implements the PostgreSQL persistence layer for the
// progression service.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PROGRESSION
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create progression tables
-- Version: 001

-- Per-user progression state, one row per (tenant, user).
-- Level is never stored: it is derived from xp by the level table.
CREATE TABLE IF NOT EXISTS progression_states (
    tenant_id VARCHAR(64) NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    display_name VARCHAR(100) NOT NULL DEFAULT '',
    xp INTEGER NOT NULL DEFAULT 0,
    total_trades INTEGER NOT NULL DEFAULT 0,
    winning_trades INTEGER NOT NULL DEFAULT 0,
    current_streak INTEGER NOT NULL DEFAULT 0,
    best_streak INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Earned badges in award order (JSONB array of {id, earned_at}).
    badges JSONB NOT NULL DEFAULT '[]'::jsonb,

    PRIMARY KEY (tenant_id, user_id),

    -- Constraints for data integrity
    CONSTRAINT valid_xp CHECK (xp >= 0),
    CONSTRAINT valid_trades CHECK (winning_trades >= 0 AND winning_trades <= total_trades),
    CONSTRAINT valid_streaks CHECK (current_streak >= 0 AND best_streak >= current_streak)
);

-- Composite index for per-tenant leaderboard queries
CREATE INDEX IF NOT EXISTS idx_progression_states_tenant_xp ON progression_states(tenant_id, xp DESC);

-- Append-only XP journal for auditing every grant.
CREATE TABLE IF NOT EXISTS xp_transactions (
    id UUID PRIMARY KEY,
    tenant_id VARCHAR(64) NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    amount INTEGER NOT NULL,
    reason VARCHAR(50) NOT NULL,
    badge_id VARCHAR(50) NOT NULL DEFAULT '',

    -- Audit context: challenge day number, operator of a manual grant.
    metadata JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT positive_amount CHECK (amount > 0)
);

CREATE INDEX IF NOT EXISTS idx_xp_transactions_user ON xp_transactions(tenant_id, user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_xp_transactions_reason ON xp_transactions(reason);
`

const migration001Down = `
DROP TABLE IF EXISTS xp_transactions;
DROP TABLE IF EXISTS progression_states;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE TRADE HISTORY
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create trade history
-- Version: 002

-- Ordered log of trade outcomes. Feeds recent-window badge predicates.
CREATE TABLE IF NOT EXISTS trade_history (
    id BIGSERIAL PRIMARY KEY,
    tenant_id VARCHAR(64) NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    outcome VARCHAR(20) NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_outcome CHECK (outcome IN ('win', 'loss', 'breakeven'))
);

CREATE INDEX IF NOT EXISTS idx_trade_history_user ON trade_history(tenant_id, user_id, id DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS trade_history;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create challenge tables
-- Version: 003

-- One row per started challenge per (tenant, user).
CREATE TABLE IF NOT EXISTS challenges (
    tenant_id VARCHAR(64) NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    challenge_id VARCHAR(64) NOT NULL,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (tenant_id, user_id, challenge_id)
);

-- Day records, one row per touched day. A row may hold only a note:
-- completed_at stays NULL until the day is actually completed.
CREATE TABLE IF NOT EXISTS challenge_days (
    tenant_id VARCHAR(64) NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    challenge_id VARCHAR(64) NOT NULL,
    day INTEGER NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE,
    notes TEXT NOT NULL DEFAULT '',

    PRIMARY KEY (tenant_id, user_id, challenge_id, day),

    CONSTRAINT valid_day CHECK (day >= 1 AND day <= 30),
    CONSTRAINT challenge_days_challenge_fk
        FOREIGN KEY (tenant_id, user_id, challenge_id)
        REFERENCES challenges(tenant_id, user_id, challenge_id)
        ON DELETE CASCADE
);
`

const migration003Down = `
DROP TABLE IF EXISTS challenge_days;
DROP TABLE IF EXISTS challenges;
`
