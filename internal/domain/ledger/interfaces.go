package ledger

import (
	"context"

	"github.com/dreyes/minutebank/internal/domain/profile"
)

// TransactionRepository provides append-only transaction persistence, one
// partition per profile. ListByProfile returns entries newest first; a limit
// of 0 means unlimited.
type TransactionRepository interface {
	Append(ctx context.Context, familyID string, tx *Transaction) error
	ListByProfile(ctx context.Context, familyID, profileID string, limit int) ([]Transaction, error)
	DeleteByProfile(ctx context.Context, familyID, profileID string) error
}

// ProfileStore is the slice of profile persistence the ledger needs:
// lookups, the atomic balance increment, and the denormalized per-task
// completion flags.
type ProfileStore interface {
	Get(ctx context.Context, familyID, id string) (*profile.Profile, error)
	AdjustBalance(ctx context.Context, familyID, id string, delta int) (int, error)
	UpdateTasks(ctx context.Context, familyID, id string, tasks []profile.Task) error
}
