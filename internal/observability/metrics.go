// Package observability exposes the Prometheus metrics of the ledger core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsAppended counts ledger appends by transaction type.
	TransactionsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minutebank_transactions_appended_total",
		Help: "Ledger transactions appended, by type.",
	}, []string{"type"})

	// CycleResets counts performed weekly cycle resets.
	CycleResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minutebank_cycle_resets_total",
		Help: "Weekly cycle resets performed.",
	})

	// RedemptionsRejected counts redemptions refused by the balance guard.
	RedemptionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minutebank_redemptions_rejected_total",
		Help: "Redemptions rejected for insufficient balance.",
	})
)
