package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/repository"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

func TestProfileRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(NewTestDB(t))

	p := &profile.Profile{
		ID:              "p1",
		Name:            "Max",
		Balance:         60,
		WeeklyGoalHours: 5,
		Tasks:           []profile.Task{{ID: "reading", Name: "Reading", Points: 10}},
		Consequences: []profile.Consequence{
			{Type: "screen_misuse", Label: "Screen misuse", Amount: 15, Icon: "tv", Color: "#f00"},
		},
		WeeklyPlan: profile.WeeklyPlan{"saturday": 2}.Normalize(),
		CreatedAt:  testTime,
	}
	require.NoError(t, repo.Create(ctx, "fam1", p))

	got, err := repo.Get(ctx, "fam1", "p1")
	require.NoError(t, err)
	require.Equal(t, "Max", got.Name)
	require.Equal(t, 60, got.Balance)
	require.Equal(t, p.Tasks, got.Tasks)
	require.Equal(t, p.Consequences, got.Consequences)
	require.Equal(t, 2.0, got.WeeklyPlan["saturday"])

	// Families are isolated.
	_, err = repo.Get(ctx, "fam2", "p1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProfileRepository_UpdateLeavesBalanceAlone(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(NewTestDB(t))

	require.NoError(t, repo.Create(ctx, "fam1", &profile.Profile{
		ID: "p1", Name: "Max", Balance: 60, CreatedAt: testTime,
	}))

	require.NoError(t, repo.Update(ctx, "fam1", &profile.Profile{
		ID: "p1", Name: "Maximilian", Balance: 999,
	}))

	got, err := repo.Get(ctx, "fam1", "p1")
	require.NoError(t, err)
	require.Equal(t, "Maximilian", got.Name)
	require.Equal(t, 60, got.Balance)
}

func TestProfileRepository_AdjustBalance(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(NewTestDB(t))

	require.NoError(t, repo.Create(ctx, "fam1", &profile.Profile{
		ID: "p1", Balance: 60, CreatedAt: testTime,
	}))

	balance, err := repo.AdjustBalance(ctx, "fam1", "p1", -15)
	require.NoError(t, err)
	require.Equal(t, 45, balance)

	balance, err = repo.AdjustBalance(ctx, "fam1", "p1", 10)
	require.NoError(t, err)
	require.Equal(t, 55, balance)

	_, err = repo.AdjustBalance(ctx, "fam1", "ghost", 5)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProfileRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(NewTestDB(t))

	require.NoError(t, repo.Create(ctx, "fam1", &profile.Profile{
		ID: "p2", Name: "Mia", CreatedAt: testTime.Add(time.Hour),
	}))
	require.NoError(t, repo.Create(ctx, "fam1", &profile.Profile{
		ID: "p1", Name: "Max", CreatedAt: testTime,
	}))

	profiles, err := repo.List(ctx, "fam1")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	// Creation order, not insert order.
	require.Equal(t, "p1", profiles[0].ID)
	require.Equal(t, "p2", profiles[1].ID)
}

func TestTransactionRepository_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	repo := NewTransactionRepository(db)

	session := "saturday"
	entries := []*ledger.Transaction{
		{ID: "a", ProfileID: "p1", Type: ledger.TypeReset, Amount: 60, Timestamp: testTime},
		{ID: "b", ProfileID: "p1", Type: ledger.TypeTask, Amount: 10, TaskID: "reading",
			Timestamp: testTime.Add(time.Hour)},
		// Same timestamp as b: insert order breaks the tie, newest first.
		{ID: "c", ProfileID: "p1", Type: ledger.TypeConsequence, Amount: -15,
			ConsequenceType: "screen_misuse", TargetSession: &session,
			Timestamp: testTime.Add(time.Hour)},
	}
	for _, tx := range entries {
		require.NoError(t, repo.Append(ctx, "fam1", tx))
	}

	txs, err := repo.ListByProfile(ctx, "fam1", "p1", 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	require.Equal(t, "c", txs[0].ID)
	require.Equal(t, "b", txs[1].ID)
	require.Equal(t, "a", txs[2].ID)

	// Optional columns round-trip.
	require.Equal(t, "screen_misuse", txs[0].ConsequenceType)
	require.NotNil(t, txs[0].TargetSession)
	require.Equal(t, "saturday", *txs[0].TargetSession)
	require.Equal(t, "reading", txs[1].TaskID)
	require.Nil(t, txs[1].TargetSession)

	limited, err := repo.ListByProfile(ctx, "fam1", "p1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "c", limited[0].ID)
}

func TestTransactionRepository_DeleteByProfile(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(NewTestDB(t))

	require.NoError(t, repo.Append(ctx, "fam1", &ledger.Transaction{
		ID: "a", ProfileID: "p1", Type: ledger.TypeReset, Amount: 60, Timestamp: testTime,
	}))
	require.NoError(t, repo.Append(ctx, "fam1", &ledger.Transaction{
		ID: "b", ProfileID: "p2", Type: ledger.TypeReset, Amount: 60, Timestamp: testTime,
	}))

	require.NoError(t, repo.DeleteByProfile(ctx, "fam1", "p1"))

	txs, err := repo.ListByProfile(ctx, "fam1", "p1", 0)
	require.NoError(t, err)
	require.Empty(t, txs)

	txs, err = repo.ListByProfile(ctx, "fam1", "p2", 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
}

func TestCycleRepository_AdvanceFencing(t *testing.T) {
	ctx := context.Background()
	repo := NewCycleRepository(NewTestDB(t))

	_, err := repo.Get(ctx, "fam1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Advance(ctx, "fam1", "", "2025-W10", testTime))
	err = repo.Advance(ctx, "fam1", "", "2025-W10", testTime)
	require.ErrorIs(t, err, repository.ErrConflict)

	marker, err := repo.Get(ctx, "fam1")
	require.NoError(t, err)
	require.Equal(t, "2025-W10", marker.CycleID)

	next := testTime.AddDate(0, 0, 7)
	require.NoError(t, repo.Advance(ctx, "fam1", "2025-W10", "2025-W11", next))
	err = repo.Advance(ctx, "fam1", "2025-W10", "2025-W11", next)
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestKeyRepository_Resolve(t *testing.T) {
	ctx := context.Background()
	repo := NewKeyRepository(NewTestDB(t))

	require.NoError(t, repo.Put(ctx, "hash1", "fam1", "tablet"))

	familyID, err := repo.ResolveFamily(ctx, "hash1")
	require.NoError(t, err)
	require.Equal(t, "fam1", familyID)

	_, err = repo.ResolveFamily(ctx, "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.Put(ctx, "hash1", "fam2", "")
	require.ErrorIs(t, err, repository.ErrConflict)
}
