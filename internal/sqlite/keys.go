package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dreyes/minutebank/internal/repository"
)

// KeyRepository maps hashed API keys to family ids. Only the SHA-256 of a
// key is ever stored.
type KeyRepository struct {
	db *DB
}

// NewKeyRepository creates a new KeyRepository
func NewKeyRepository(db *DB) *KeyRepository {
	return &KeyRepository{db: db}
}

// Put registers a key hash for a family
func (r *KeyRepository) Put(ctx context.Context, keyHash, familyID, description string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO family_keys (key_hash, family_id, description, created_at)
		 VALUES (?, ?, ?, ?)`,
		keyHash, familyID, description, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isBusy(err) {
			return repository.ErrUnavailable
		}
		return fmt.Errorf("failed to store key: %w", err)
	}
	return nil
}

// ResolveFamily looks up the family owning a key hash
func (r *KeyRepository) ResolveFamily(ctx context.Context, keyHash string) (string, error) {
	var familyID string
	err := r.db.QueryRowContext(ctx,
		`SELECT family_id FROM family_keys WHERE key_hash = ?`,
		keyHash).Scan(&familyID)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		if isBusy(err) {
			return "", repository.ErrUnavailable
		}
		return "", fmt.Errorf("failed to resolve key: %w", err)
	}
	return familyID, nil
}
