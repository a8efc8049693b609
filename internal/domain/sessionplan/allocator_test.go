package sessionplan_test

import (
	"testing"
	"time"

	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/domain/sessionplan"
	"github.com/stretchr/testify/require"
)

// 2025-03-07 is a Friday, the cycle anchor.
var friday = time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)

var cal = cycle.NewCalendar(time.UTC, time.Friday)

func strptr(s string) *string { return &s }

func TestPlan_NoWeeklyPlan(t *testing.T) {
	p := &profile.Profile{ID: "p1"}
	require.Nil(t, sessionplan.Plan(p, nil, friday, cal))

	p.WeeklyPlan = profile.WeeklyPlan{"saturday": 0}
	require.Nil(t, sessionplan.Plan(p, nil, friday, cal))
}

func TestPlan_PlannedDaysOnly(t *testing.T) {
	p := &profile.Profile{
		ID:         "p1",
		WeeklyPlan: profile.WeeklyPlan{"saturday": 2, "sunday": 1.5},
	}

	stats := sessionplan.Plan(p, nil, friday, cal)
	require.Len(t, stats, 2)

	// Days come out in cycle order: saturday before sunday.
	require.Equal(t, "saturday", stats[0].Day)
	require.Equal(t, 120, stats[0].PlannedMinutes)
	require.Equal(t, 0, stats[0].PenaltyMinutes)
	require.Equal(t, 120, stats[0].AvailableMinutes)

	require.Equal(t, "sunday", stats[1].Day)
	require.Equal(t, 90, stats[1].PlannedMinutes)
	require.Equal(t, 90, stats[1].AvailableMinutes)
}

func TestPlan_PenaltiesReduceTargetedDay(t *testing.T) {
	p := &profile.Profile{
		ID:         "p1",
		WeeklyPlan: profile.WeeklyPlan{"saturday": 2, "sunday": 1},
	}
	txs := []ledger.Transaction{
		{Type: ledger.TypeConsequence, Amount: -30,
			TargetSession: strptr("saturday"), Timestamp: friday.Add(2 * time.Hour)},
	}

	stats := sessionplan.Plan(p, txs, friday.Add(3*time.Hour), cal)
	require.Equal(t, 30, stats[0].PenaltyMinutes)
	require.Equal(t, 90, stats[0].AvailableMinutes)
	// Untargeted days are unaffected.
	require.Equal(t, 60, stats[1].AvailableMinutes)
}

func TestPlan_ReallocationMovesThePenalty(t *testing.T) {
	p := &profile.Profile{
		ID:         "p1",
		WeeklyPlan: profile.WeeklyPlan{"saturday": 2, "sunday": 1.5},
	}
	// Penalty applied to saturday, then moved to sunday: reversal plus
	// re-apply. Saturday recovers in full; sunday takes the hit.
	txs := []ledger.Transaction{
		{Type: ledger.TypeConsequence, Amount: -30,
			TargetSession: strptr("sunday"), Timestamp: friday.Add(3 * time.Hour)},
		{Type: ledger.TypeConsequenceReversal, Amount: 30,
			TargetSession: strptr("saturday"), Timestamp: friday.Add(2 * time.Hour)},
		{Type: ledger.TypeConsequence, Amount: -30,
			TargetSession: strptr("saturday"), Timestamp: friday.Add(time.Hour)},
	}

	stats := sessionplan.Plan(p, txs, friday.Add(4*time.Hour), cal)
	require.Equal(t, 120, stats[0].AvailableMinutes)
	require.Equal(t, 0, stats[0].PenaltyMinutes)
	require.Equal(t, 60, stats[1].AvailableMinutes)
	require.Equal(t, 30, stats[1].PenaltyMinutes)
}

func TestPlan_AvailableClampsAtZero(t *testing.T) {
	p := &profile.Profile{
		ID:         "p1",
		WeeklyPlan: profile.WeeklyPlan{"saturday": 0.5},
	}
	txs := []ledger.Transaction{
		{Type: ledger.TypeConsequence, Amount: -45,
			TargetSession: strptr("saturday"), Timestamp: friday.Add(time.Hour)},
	}

	stats := sessionplan.Plan(p, txs, friday.Add(2*time.Hour), cal)
	require.Equal(t, 30, stats[0].PlannedMinutes)
	require.Equal(t, 45, stats[0].PenaltyMinutes)
	require.Equal(t, 0, stats[0].AvailableMinutes)
}

func TestPlan_LastCyclePenaltiesExpire(t *testing.T) {
	p := &profile.Profile{
		ID:         "p1",
		WeeklyPlan: profile.WeeklyPlan{"saturday": 2},
	}
	txs := []ledger.Transaction{
		{Type: ledger.TypeConsequence, Amount: -30,
			TargetSession: strptr("saturday"), Timestamp: friday.AddDate(0, 0, -7)},
	}

	stats := sessionplan.Plan(p, txs, friday.Add(time.Hour), cal)
	require.Equal(t, 120, stats[0].AvailableMinutes)
	require.Equal(t, 0, stats[0].PenaltyMinutes)
}

func TestPlan_GeneralConsequencesDoNotTouchSessions(t *testing.T) {
	p := &profile.Profile{
		ID:         "p1",
		WeeklyPlan: profile.WeeklyPlan{"saturday": 2},
	}
	txs := []ledger.Transaction{
		{Type: ledger.TypeConsequence, Amount: -30, Timestamp: friday.Add(time.Hour)},
	}

	stats := sessionplan.Plan(p, txs, friday.Add(2*time.Hour), cal)
	require.Equal(t, 120, stats[0].AvailableMinutes)
}
