// Package sessionplan apportions a profile's weekly time budget across its
// planned days and reconciles penalties targeted at specific sessions.
package sessionplan

import (
	"time"

	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/domain/profile"
)

// SessionStat is the allocation for one planned day.
type SessionStat struct {
	Day              string `json:"day"`
	PlannedMinutes   int    `json:"plannedMinutes"`
	PenaltyMinutes   int    `json:"penaltyMinutes"`
	AvailableMinutes int    `json:"availableMinutes"`
}

// Plan computes the per-day allocation for the current cycle:
// available = max(0, planned + net penalties targeting that day this week).
// Days appear in cycle order and only when the plan gives them hours. A nil
// result means the profile has no session allocation and only the aggregate
// balance applies.
func Plan(p *profile.Profile, txs []ledger.Transaction, now time.Time, cal cycle.Calendar) []SessionStat {
	if p.WeeklyPlan.IsZero() {
		return nil
	}

	var stats []SessionStat
	for _, day := range profile.DayKeys {
		hours := p.WeeklyPlan[day]
		if hours <= 0 {
			continue
		}
		planned := int(hours * 60)
		penalties := netPenalties(txs, day, now, cal)

		available := planned + penalties
		if available < 0 {
			available = 0
		}
		stats = append(stats, SessionStat{
			Day:              day,
			PlannedMinutes:   planned,
			PenaltyMinutes:   -penalties,
			AvailableMinutes: available,
		})
	}
	return stats
}

// netPenalties sums consequence and consequence_reversal amounts targeting
// the given day within the current cycle. The sum is at most zero whenever
// every reversal matches an earlier apply.
func netPenalties(txs []ledger.Transaction, day string, now time.Time, cal cycle.Calendar) int {
	var sum int
	for _, tx := range txs {
		if tx.Type != ledger.TypeConsequence && tx.Type != ledger.TypeConsequenceReversal {
			continue
		}
		if tx.TargetSession == nil || *tx.TargetSession != day {
			continue
		}
		if !cal.SameWeek(tx.Timestamp, now) {
			continue
		}
		sum += tx.Amount
	}
	return sum
}
