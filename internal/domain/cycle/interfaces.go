package cycle

import (
	"context"
	"time"

	"github.com/dreyes/minutebank/internal/domain/profile"
)

// CycleRepository persists the per-family cycle marker. Advance is the
// fencing write: it moves the marker from fromCycleID to toCycleID only if
// no other writer advanced it first, returning repository.ErrConflict
// otherwise. fromCycleID is empty when no marker exists yet.
type CycleRepository interface {
	Get(ctx context.Context, familyID string) (*Marker, error)
	Advance(ctx context.Context, familyID, fromCycleID, toCycleID string, at time.Time) error
}

// ProfileStore is the slice of profile persistence the reset fan-out needs.
type ProfileStore interface {
	List(ctx context.Context, familyID string) ([]profile.Profile, error)
	Update(ctx context.Context, familyID string, p *profile.Profile) error
	SetBalance(ctx context.Context, familyID, id string, balance int) error
}

// Ledger records the weekly grant without re-triggering the balance
// increment path.
type Ledger interface {
	RecordGrant(ctx context.Context, familyID, profileID, description string, amount int, at time.Time) error
}
