package ledger

import (
	"time"

	"github.com/dreyes/minutebank/internal/domain/cycle"
)

// The projector derives state from transaction windows. Two deliberate
// conventions coexist: completion and applied-state are net event counts
// (a reversal cancels one apply regardless of amounts), while balances and
// session availability are net amounts.

// NetAmount returns the signed sum of the given entries.
func NetAmount(txs []Transaction) int {
	var sum int
	for _, tx := range txs {
		sum += tx.Amount
	}
	return sum
}

// BalanceDelta returns the increment a transaction applies to the owning
// profile's cached balance.
func BalanceDelta(tx Transaction) int {
	return tx.Amount
}

// IsTaskCompletedOn reports whether the task counts as completed on the
// calendar day of `day`: the net event count of task entries minus
// task_reversal entries for that (task, day) is positive.
func IsTaskCompletedOn(txs []Transaction, taskID string, day time.Time, cal cycle.Calendar) bool {
	var net int
	for _, tx := range txs {
		if tx.TaskID != taskID || !cal.SameDay(tx.Timestamp, day) {
			continue
		}
		switch tx.Type {
		case TypeTask:
			net++
		case TypeTaskReversal:
			net--
		}
	}
	return net > 0
}

// AppliedConsequenceSession resolves whether a consequence type is active on
// the calendar day of `day`, and against which session. The net event count
// of consequence entries minus reversals decides active/inactive; when
// active, the targeted session is taken from the most recent
// consequence-typed entry (last write wins across repeated apply/undo
// cycles), falling back to SessionGeneral for unscoped entries.
//
// txs must be ordered newest first, the ledger's query order.
func AppliedConsequenceSession(txs []Transaction, consequenceType string, day time.Time, cal cycle.Calendar) (session string, applied bool) {
	var net int
	var latest *Transaction
	for i := range txs {
		tx := &txs[i]
		if tx.ConsequenceType != consequenceType || !cal.SameDay(tx.Timestamp, day) {
			continue
		}
		switch tx.Type {
		case TypeConsequence:
			net++
			if latest == nil {
				latest = tx
			}
		case TypeConsequenceReversal:
			net--
		}
	}
	if net <= 0 || latest == nil {
		return "", false
	}
	return latest.Session(), true
}

// latestConsequence returns the most recent active-side consequence entry of
// the given type on the day, or nil. Used to size and target reversals so
// they exactly cancel the entry they undo.
func latestConsequence(txs []Transaction, consequenceType string, day time.Time, cal cycle.Calendar) *Transaction {
	for i := range txs {
		tx := &txs[i]
		if tx.Type == TypeConsequence && tx.ConsequenceType == consequenceType && cal.SameDay(tx.Timestamp, day) {
			return tx
		}
	}
	return nil
}
