package cycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/live"
	"github.com/dreyes/minutebank/internal/repository"
	"github.com/dreyes/minutebank/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(cycles *mocks.CycleRepository, profiles *mocks.ProfileStore, ledger *mocks.Ledger, now time.Time) *cycle.Scheduler {
	cal := cycle.NewCalendar(time.UTC, time.Friday)
	return cycle.NewScheduler(cycles, profiles, ledger, live.NewHub(), cal, nil,
		cycle.WithClock(func() time.Time { return now }))
}

func TestScheduler_FirstReset(t *testing.T) {
	ctx := context.Background()
	now := friday.Add(9 * time.Hour)
	weekID := "2025-W10"

	cycles := &mocks.CycleRepository{}
	profiles := &mocks.ProfileStore{}
	ledger := &mocks.Ledger{}

	cycles.On("Get", ctx, "fam1").Return(nil, repository.ErrNotFound)
	cycles.On("Advance", ctx, "fam1", "", weekID, now).Return(nil)

	profiles.On("List", ctx, "fam1").Return([]profile.Profile{{
		ID:                 "p1",
		Name:               "Max",
		Balance:            12,
		WeeklyGoalProgress: 3.5,
		Tasks:              []profile.Task{{ID: "reading", Points: 10, CompletedToday: true}},
	}}, nil)
	profiles.On("Update", ctx, "fam1", mock.MatchedBy(func(p *profile.Profile) bool {
		return p.WeeklyGoalProgress == 0 && !p.Tasks[0].CompletedToday
	})).Return(nil)
	profiles.On("SetBalance", ctx, "fam1", "p1", profile.InitialBalance).Return(nil)
	ledger.On("RecordGrant", ctx, "fam1", "p1", "Week start - weekly grant",
		profile.InitialBalance, now).Return(nil)

	s := newTestScheduler(cycles, profiles, ledger, now)
	done, err := s.CheckAndReset(ctx, "fam1")
	require.NoError(t, err)
	require.True(t, done)

	cycles.AssertExpectations(t)
	profiles.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestScheduler_CurrentCycleIsNoop(t *testing.T) {
	ctx := context.Background()
	now := friday.Add(48 * time.Hour) // Sunday, same cycle

	cycles := &mocks.CycleRepository{}
	profiles := &mocks.ProfileStore{}
	ledger := &mocks.Ledger{}

	cycles.On("Get", ctx, "fam1").Return(&cycle.Marker{
		CycleID:   "2025-W10",
		LastReset: friday,
	}, nil)

	s := newTestScheduler(cycles, profiles, ledger, now)
	done, err := s.CheckAndReset(ctx, "fam1")
	require.NoError(t, err)
	require.False(t, done)

	cycles.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything)
	profiles.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestScheduler_LosingTheFenceIsNotAnError(t *testing.T) {
	ctx := context.Background()
	now := friday.AddDate(0, 0, 7) // first instant of the next cycle

	cycles := &mocks.CycleRepository{}
	profiles := &mocks.ProfileStore{}
	ledger := &mocks.Ledger{}

	cycles.On("Get", ctx, "fam1").Return(&cycle.Marker{
		CycleID:   "2025-W10",
		LastReset: friday,
	}, nil)
	cycles.On("Advance", ctx, "fam1", "2025-W10", "2025-W11", now).
		Return(repository.ErrConflict)

	s := newTestScheduler(cycles, profiles, ledger, now)
	done, err := s.CheckAndReset(ctx, "fam1")
	require.NoError(t, err)
	require.False(t, done)

	// The loser must not touch any profile.
	profiles.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "RecordGrant", mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_ForceResetRunsOnCurrentCycle(t *testing.T) {
	ctx := context.Background()
	now := friday.Add(9 * time.Hour)

	cycles := &mocks.CycleRepository{}
	profiles := &mocks.ProfileStore{}
	ledger := &mocks.Ledger{}

	cycles.On("Get", ctx, "fam1").Return(&cycle.Marker{
		CycleID:   "2025-W10",
		LastReset: friday,
	}, nil)
	profiles.On("List", ctx, "fam1").Return([]profile.Profile{{ID: "p1"}}, nil)
	profiles.On("Update", ctx, "fam1", mock.Anything).Return(nil)
	profiles.On("SetBalance", ctx, "fam1", "p1", profile.InitialBalance).Return(nil)
	ledger.On("RecordGrant", ctx, "fam1", "p1", "Week start - weekly grant",
		profile.InitialBalance, now).Return(nil)

	s := newTestScheduler(cycles, profiles, ledger, now)
	require.NoError(t, s.ForceReset(ctx, "fam1"))

	// The marker was already current, so no advance happened.
	cycles.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything)
	ledger.AssertExpectations(t)
}
