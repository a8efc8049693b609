// Package ledger implements the append-only minute ledger: every task,
// penalty, redemption, and weekly grant is a signed immutable entry, and all
// derived state (balances, per-day completion, applied penalties) is a
// projection over windows of those entries.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/live"
	"github.com/dreyes/minutebank/internal/observability"
	"github.com/dreyes/minutebank/internal/repository"
	"github.com/google/uuid"
)

// Service owns transaction appends, derived-state queries, and the live
// subscription feed for a family's ledger.
type Service struct {
	txs      TransactionRepository
	profiles ProfileStore
	hub      *live.Hub
	cal      cycle.Calendar
	clock    func() time.Time
	logger   *slog.Logger
}

// NewService creates a new ledger service.
func NewService(
	txs TransactionRepository,
	profiles ProfileStore,
	hub *live.Hub,
	cal cycle.Calendar,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		txs:      txs,
		profiles: profiles,
		hub:      hub,
		cal:      cal,
		clock:    time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append validates, persists, and returns a transaction, assigning id and
// timestamp when absent. Business rules are the caller's job; only a missing
// profile id or an unknown type is rejected here. Unless SkipBalanceUpdate
// is given, the owning profile's cached balance is atomically incremented by
// the transaction amount.
func (s *Service) Append(ctx context.Context, familyID string, tx Transaction, opts ...AppendOption) (*Transaction, error) {
	var cfg appendConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if strings.TrimSpace(tx.ProfileID) == "" {
		return nil, fmt.Errorf("%w: profile id is required", ErrInvalidInput)
	}
	if !tx.Type.Known() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, tx.Type)
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = s.clock()
	}

	if err := s.txs.Append(ctx, familyID, &tx); err != nil {
		return nil, fmt.Errorf("appending transaction: %w", err)
	}
	observability.TransactionsAppended.WithLabelValues(string(tx.Type)).Inc()

	if !cfg.skipBalance {
		balance, err := s.profiles.AdjustBalance(ctx, familyID, tx.ProfileID, BalanceDelta(tx))
		if err != nil {
			return nil, fmt.Errorf("updating balance: %w", err)
		}
		s.logger.Debug("transaction appended",
			"family", familyID, "profile", tx.ProfileID,
			"type", tx.Type, "amount", tx.Amount, "balance", balance)
	}

	s.hub.Notify(
		live.TransactionsKey(familyID, tx.ProfileID),
		live.ProfileKey(familyID, tx.ProfileID),
		live.ProfilesKey(familyID),
	)
	return &tx, nil
}

// RecordGrant appends a reset-type transaction documenting a grant whose
// amount was already written to the profile's balance directly.
func (s *Service) RecordGrant(ctx context.Context, familyID, profileID, description string, amount int, at time.Time) error {
	_, err := s.Append(ctx, familyID, Transaction{
		ProfileID:   profileID,
		Type:        TypeReset,
		Amount:      amount,
		Description: description,
		Timestamp:   at,
	}, SkipBalanceUpdate())
	return err
}

// ListByProfile returns a profile's transactions newest first. A limit of 0
// means unlimited.
func (s *Service) ListByProfile(ctx context.Context, familyID, profileID string, limit int) ([]Transaction, error) {
	txs, err := s.txs.ListByProfile(ctx, familyID, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txs, nil
}

// Subscribe delivers the current transaction snapshot for a profile
// immediately and again after every append or delete affecting it.
// Snapshots are delivered in order; the consumer must treat each as a full
// replacement. The returned cancel function stops deliveries synchronously.
func (s *Service) Subscribe(ctx context.Context, familyID, profileID string, limit int, fn func([]Transaction)) (cancel func()) {
	return s.hub.Subscribe(live.TransactionsKey(familyID, profileID), func() {
		txs, err := s.txs.ListByProfile(ctx, familyID, profileID, limit)
		if err != nil && errors.Is(err, repository.ErrUnavailable) {
			// One-shot fallback so the consumer is never left without data.
			txs, err = s.txs.ListByProfile(ctx, familyID, profileID, limit)
		}
		if err != nil {
			s.logger.Warn("transaction snapshot failed",
				"family", familyID, "profile", profileID, "error", err)
			return
		}
		fn(txs)
	})
}

// DeleteAllForProfile removes every transaction of a profile. Used only as
// the cascade of profile deletion.
func (s *Service) DeleteAllForProfile(ctx context.Context, familyID, profileID string) error {
	if err := s.txs.DeleteByProfile(ctx, familyID, profileID); err != nil {
		return fmt.Errorf("deleting transactions: %w", err)
	}
	s.hub.Notify(live.TransactionsKey(familyID, profileID))
	return nil
}

// ToggleTask flips a task's completion for today. An uncompleted task earns
// its points with a task entry; a completed one is undone with a
// task_reversal of the opposite amount, so the pair nets to zero. The
// denormalized completedToday flag on the profile is kept in step.
func (s *Service) ToggleTask(ctx context.Context, familyID, profileID, taskID string) (*Transaction, error) {
	p, err := s.getProfile(ctx, familyID, profileID)
	if err != nil {
		return nil, err
	}
	task := p.FindTask(taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	txs, err := s.txs.ListByProfile(ctx, familyID, profileID, 0)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	now := s.clock()
	completed := IsTaskCompletedOn(txs, taskID, now, s.cal)

	task.CompletedToday = !completed
	if err := s.profiles.UpdateTasks(ctx, familyID, profileID, p.Tasks); err != nil {
		return nil, fmt.Errorf("updating task flags: %w", err)
	}

	entry := Transaction{
		ProfileID:   profileID,
		Type:        TypeTask,
		Amount:      task.Points,
		Description: fmt.Sprintf("Task completed: %s", task.Name),
		TaskID:      taskID,
	}
	if completed {
		entry.Type = TypeTaskReversal
		entry.Amount = -task.Points
		entry.Description = fmt.Sprintf("Task undone: %s", task.Name)
	}
	return s.Append(ctx, familyID, entry)
}

// AddInitiative rewards a self-started effort with a fixed grant.
func (s *Service) AddInitiative(ctx context.Context, familyID, profileID, description string) (*Transaction, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: initiative description is required", ErrInvalidInput)
	}
	if _, err := s.getProfile(ctx, familyID, profileID); err != nil {
		return nil, err
	}
	return s.Append(ctx, familyID, Transaction{
		ProfileID:   profileID,
		Type:        TypeInitiative,
		Amount:      InitiativePoints,
		Description: fmt.Sprintf("Initiative: %s", description),
	})
}

// ToggleConsequenceRequest describes a consequence apply/undo. Amount may be
// 0 to use the amount configured on the profile for the type. A nil or empty
// TargetSession means the general, unscoped session.
type ToggleConsequenceRequest struct {
	ConsequenceType string
	Amount          int
	Description     string
	TargetSession   *string
}

// ToggleConsequence applies or undoes a consequence for today.
//
// Three cases, all expressed as new ledger entries, never edits:
//   - inactive: one consequence entry targeting the requested session
//   - active on the requested session: one consequence_reversal undoing it
//   - active on a different session: a consequence_reversal undoing the old
//     session followed by a consequence targeting the new one, so the net
//     balance effect of the move is zero
func (s *Service) ToggleConsequence(ctx context.Context, familyID, profileID string, req ToggleConsequenceRequest) ([]Transaction, error) {
	if strings.TrimSpace(req.ConsequenceType) == "" {
		return nil, fmt.Errorf("%w: consequence type is required", ErrInvalidInput)
	}
	target := SessionGeneral
	if req.TargetSession != nil && *req.TargetSession != "" {
		target = *req.TargetSession
		if !profile.IsDayKey(target) {
			return nil, fmt.Errorf("%w: unknown session %q", ErrInvalidInput, target)
		}
	}

	p, err := s.getProfile(ctx, familyID, profileID)
	if err != nil {
		return nil, err
	}

	amount := req.Amount
	description := req.Description
	if configured := p.FindConsequence(req.ConsequenceType); configured != nil {
		if amount <= 0 {
			amount = configured.Amount
		}
		if description == "" {
			description = configured.Label
		}
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrConsequenceNotFound, req.ConsequenceType)
	}

	txs, err := s.txs.ListByProfile(ctx, familyID, profileID, 0)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	now := s.clock()
	active, applied := AppliedConsequenceSession(txs, req.ConsequenceType, now, s.cal)

	var appended []Transaction
	if applied {
		original := latestConsequence(txs, req.ConsequenceType, now, s.cal)
		reversal := Transaction{
			ProfileID:       profileID,
			Type:            TypeConsequenceReversal,
			Amount:          amount,
			Description:     fmt.Sprintf("Consequence reverted: %s", description),
			ConsequenceType: req.ConsequenceType,
		}
		if original != nil {
			// Carry the opposite amount and the same session so the
			// reversal exactly cancels the entry it undoes.
			reversal.Amount = -original.Amount
			reversal.TargetSession = original.TargetSession
		}
		stored, err := s.Append(ctx, familyID, reversal)
		if err != nil {
			return nil, err
		}
		appended = append(appended, *stored)

		if active == target {
			return appended, nil
		}
	}

	entry := Transaction{
		ProfileID:       profileID,
		Type:            TypeConsequence,
		Amount:          -amount,
		Description:     fmt.Sprintf("Consequence: %s", description),
		ConsequenceType: req.ConsequenceType,
	}
	if target != SessionGeneral {
		entry.TargetSession = &target
	}
	stored, err := s.Append(ctx, familyID, entry)
	if err != nil {
		return nil, err
	}
	return append(appended, *stored), nil
}

// Redeem exchanges minutes from the balance for screen time. It rejects with
// ErrInsufficientBalance, appending nothing, when privileges are suspended
// (balance at or below zero) or the balance doesn't cover the request.
func (s *Service) Redeem(ctx context.Context, familyID, profileID string, minutes int) (*Transaction, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: redemption minutes must be positive", ErrInvalidInput)
	}
	p, err := s.getProfile(ctx, familyID, profileID)
	if err != nil {
		return nil, err
	}
	if p.Balance <= 0 {
		observability.RedemptionsRejected.Inc()
		return nil, fmt.Errorf("%w: privileges suspended", ErrInsufficientBalance)
	}
	if p.Balance < minutes {
		observability.RedemptionsRejected.Inc()
		return nil, fmt.Errorf("%w: available %d Min", ErrInsufficientBalance, p.Balance)
	}
	return s.Append(ctx, familyID, Transaction{
		ProfileID:   profileID,
		Type:        TypeRedemption,
		Amount:      -minutes,
		Description: fmt.Sprintf("Redeemed: %d Min", minutes),
	})
}

// Stats aggregates a profile's activity within the current cycle.
func (s *Service) Stats(ctx context.Context, familyID, profileID string) (*WeeklyStats, error) {
	if _, err := s.getProfile(ctx, familyID, profileID); err != nil {
		return nil, err
	}
	txs, err := s.txs.ListByProfile(ctx, familyID, profileID, 0)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	now := s.clock()
	var stats WeeklyStats
	for _, tx := range txs {
		if !s.cal.SameWeek(tx.Timestamp, now) {
			continue
		}
		if tx.Amount > 0 {
			stats.TotalEarned += tx.Amount
			if tx.Type == TypeTask {
				stats.TasksCompleted++
			}
		} else {
			stats.TotalLost += -tx.Amount
			if tx.Type == TypeConsequence {
				stats.Consequences++
			}
			if tx.Type == TypeRedemption {
				stats.Redemptions++
			}
		}
	}
	return &stats, nil
}

// Reconcile replays the full ledger and compares the result with the cached
// balance. A reset entry re-anchors the replayed balance to its amount (the
// weekly reset discards any leftover balance); everything after it
// accumulates. Drift must be zero at all times.
func (s *Service) Reconcile(ctx context.Context, familyID, profileID string) (*ReconcileResult, error) {
	p, err := s.getProfile(ctx, familyID, profileID)
	if err != nil {
		return nil, err
	}
	txs, err := s.txs.ListByProfile(ctx, familyID, profileID, 0)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	var replayed int
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if tx.Type == TypeReset {
			replayed = tx.Amount
		} else {
			replayed += tx.Amount
		}
	}

	result := &ReconcileResult{
		ProfileID:       profileID,
		CachedBalance:   p.Balance,
		ReplayedBalance: replayed,
		Drift:           p.Balance - replayed,
	}
	if result.Drift != 0 {
		s.logger.Warn("balance drift detected",
			"family", familyID, "profile", profileID,
			"cached", result.CachedBalance, "replayed", result.ReplayedBalance)
	}
	return result, nil
}

func (s *Service) getProfile(ctx context.Context, familyID, profileID string) (*profile.Profile, error) {
	p, err := s.profiles.Get(ctx, familyID, profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
		}
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return p, nil
}
