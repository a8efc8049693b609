package profile

import (
	"context"
	"time"
)

// Repository provides profile persistence. Update writes every field except
// the cached balance, which only moves through SetBalance and the ledger's
// atomic increments.
type Repository interface {
	Create(ctx context.Context, familyID string, p *Profile) error
	Get(ctx context.Context, familyID, id string) (*Profile, error)
	List(ctx context.Context, familyID string) ([]Profile, error)
	Update(ctx context.Context, familyID string, p *Profile) error
	Delete(ctx context.Context, familyID, id string) error
}

// Ledger is the slice of the transaction ledger the profile store needs:
// recording the creation grant without re-triggering the balance increment,
// and cascading deletes.
type Ledger interface {
	RecordGrant(ctx context.Context, familyID, profileID, description string, amount int, at time.Time) error
	DeleteAllForProfile(ctx context.Context, familyID, profileID string) error
}
