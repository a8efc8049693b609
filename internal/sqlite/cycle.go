package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/dreyes/minutebank/internal/repository"
)

// CycleRepository stores the per-family cycle marker. Advance is conditional
// on the caller's observed cycle id, which serializes concurrent resetters.
type CycleRepository struct {
	db *DB
}

// NewCycleRepository creates a new CycleRepository
func NewCycleRepository(db *DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// Get retrieves the family's cycle marker
func (r *CycleRepository) Get(ctx context.Context, familyID string) (*cycle.Marker, error) {
	var m cycle.Marker
	err := r.db.QueryRowContext(ctx,
		`SELECT cycle_id, last_reset FROM cycles WHERE family_id = ?`,
		familyID).Scan(&m.CycleID, &m.LastReset)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		if isBusy(err) {
			return nil, repository.ErrUnavailable
		}
		return nil, fmt.Errorf("failed to get cycle marker: %w", err)
	}
	return &m, nil
}

// Advance moves the marker from fromCycleID to toCycleID. It returns
// repository.ErrConflict when another writer moved the marker first, which
// the caller treats as losing the race rather than as a failure.
func (r *CycleRepository) Advance(ctx context.Context, familyID, fromCycleID, toCycleID string, at time.Time) error {
	if fromCycleID == "" {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO cycles (family_id, cycle_id, last_reset) VALUES (?, ?, ?)`,
			familyID, toCycleID, at)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			if isBusy(err) {
				return repository.ErrUnavailable
			}
			return fmt.Errorf("failed to create cycle marker: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE cycles SET cycle_id = ?, last_reset = ?
		 WHERE family_id = ? AND cycle_id = ?`,
		toCycleID, at, familyID, fromCycleID)
	if err != nil {
		if isBusy(err) {
			return repository.ErrUnavailable
		}
		return fmt.Errorf("failed to advance cycle marker: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrConflict
	}
	return nil
}
