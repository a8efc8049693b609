// Package sqlite implements the persistence interfaces on SQLite, the
// durable shared backend. Document-valued profile fields (tasks,
// consequences, weekly plan) are stored as JSON columns so the wire shapes
// round-trip unchanged.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema.
func (db *DB) RunMigrations() error {
	migration := `
-- Profiles: one row per child, document fields as JSON
CREATE TABLE IF NOT EXISTS profiles (
    id TEXT PRIMARY KEY,
    family_id TEXT NOT NULL,
    name TEXT NOT NULL,
    balance INTEGER NOT NULL DEFAULT 0,
    weekly_goal_hours REAL NOT NULL DEFAULT 0,
    weekly_goal_progress REAL NOT NULL DEFAULT 0,
    tasks TEXT NOT NULL DEFAULT '[]',
    consequences TEXT NOT NULL DEFAULT '[]',
    weekly_plan TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_family_profiles ON profiles(family_id);

-- Transactions: the append-only ledger, partitioned per profile
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    family_id TEXT NOT NULL,
    profile_id TEXT NOT NULL,
    type TEXT NOT NULL CHECK(type IN (
        'task', 'task_reversal', 'initiative',
        'consequence', 'consequence_reversal', 'redemption', 'reset')),
    amount INTEGER NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    timestamp TIMESTAMP NOT NULL,
    task_id TEXT,
    consequence_type TEXT,
    target_session TEXT
);
CREATE INDEX IF NOT EXISTS idx_profile_transactions
    ON transactions(family_id, profile_id, timestamp);

-- Cycle markers: one row per family, the reset fencing token
CREATE TABLE IF NOT EXISTS cycles (
    family_id TEXT PRIMARY KEY,
    cycle_id TEXT NOT NULL,
    last_reset TIMESTAMP NOT NULL
);

-- API keys mapping bearer tokens to families
CREATE TABLE IF NOT EXISTS family_keys (
    key_hash TEXT PRIMARY KEY,
    family_id TEXT NOT NULL,
    description TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_family_keys ON family_keys(family_id);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
