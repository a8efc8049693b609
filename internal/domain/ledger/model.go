package ledger

import "time"

// InitiativePoints is the fixed minute reward for a recorded initiative.
const InitiativePoints = 5

// SessionGeneral is the session a consequence targets when it is not scoped
// to a specific planned day.
const SessionGeneral = "general"

// Type is the closed set of ledger entry kinds. The projector matches on it
// exhaustively; unknown types are rejected at append time.
type Type string

const (
	TypeTask                Type = "task"
	TypeTaskReversal        Type = "task_reversal"
	TypeInitiative          Type = "initiative"
	TypeConsequence         Type = "consequence"
	TypeConsequenceReversal Type = "consequence_reversal"
	TypeRedemption          Type = "redemption"
	TypeReset               Type = "reset"
)

// Known reports whether t is one of the defined transaction types.
func (t Type) Known() bool {
	switch t {
	case TypeTask, TypeTaskReversal, TypeInitiative, TypeConsequence,
		TypeConsequenceReversal, TypeRedemption, TypeReset:
		return true
	}
	return false
}

// Transaction is a single immutable ledger entry. Corrections are expressed
// as new reversal entries, never as edits of history. Ordering by timestamp
// is authoritative; ids only need to be unique.
//
// TargetSession is nil for consequences that are not scoped to a planned day.
type Transaction struct {
	ID              string    `json:"id"`
	ProfileID       string    `json:"profileId"`
	Type            Type      `json:"type"`
	Amount          int       `json:"amount"`
	Description     string    `json:"description"`
	Timestamp       time.Time `json:"timestamp"`
	TaskID          string    `json:"taskId,omitempty"`
	ConsequenceType string    `json:"consequenceType,omitempty"`
	TargetSession   *string   `json:"targetSession,omitempty"`
}

// Session returns the session this entry targets, with the general fallback
// for unscoped entries.
func (tx Transaction) Session() string {
	if tx.TargetSession == nil || *tx.TargetSession == "" {
		return SessionGeneral
	}
	return *tx.TargetSession
}

// WeeklyStats aggregates a profile's activity within the current cycle.
type WeeklyStats struct {
	TotalEarned    int `json:"totalEarned"`
	TotalLost      int `json:"totalLost"`
	TasksCompleted int `json:"tasksCompleted"`
	Consequences   int `json:"consequences"`
	Redemptions    int `json:"redemptions"`
}

// ReconcileResult compares the incrementally maintained balance against a
// full replay of the ledger.
type ReconcileResult struct {
	ProfileID       string `json:"profileId"`
	CachedBalance   int    `json:"cachedBalance"`
	ReplayedBalance int    `json:"replayedBalance"`
	Drift           int    `json:"drift"`
}
