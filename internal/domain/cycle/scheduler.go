package cycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/live"
	"github.com/dreyes/minutebank/internal/observability"
	"github.com/dreyes/minutebank/internal/repository"
)

// Scheduler detects cycle rollover and performs the weekly reset for every
// profile of a family, at most once per cycle even with multiple devices
// checking concurrently: the conditional marker advance is the fence, and
// only the writer that wins it runs the per-profile fan-out.
type Scheduler struct {
	cycles   CycleRepository
	profiles ProfileStore
	ledger   Ledger
	hub      *live.Hub
	cal      Calendar
	clock    func() time.Time
	logger   *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock overrides the scheduler's time source. Used in tests.
func WithClock(clock func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.clock = clock }
}

// NewScheduler creates a new reset scheduler.
func NewScheduler(
	cycles CycleRepository,
	profiles ProfileStore,
	ledger Ledger,
	hub *live.Hub,
	cal Calendar,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Scheduler{
		cycles:   cycles,
		profiles: profiles,
		ledger:   ledger,
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

// CheckAndReset compares the current cycle with the family's marker and
// performs the weekly reset when a new cycle has started. It reports whether
// this caller performed the reset; losing the fencing race to a concurrent
// checker is not an error.
func (s *Scheduler) CheckAndReset(ctx context.Context, familyID string) (bool, error) {
	now := s.clock()
	current := s.cal.WeekID(now)

	var last string
	marker, err := s.cycles.Get(ctx, familyID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return false, fmt.Errorf("loading cycle marker: %w", err)
		}
	} else {
		last = marker.CycleID
	}
	if last == current {
		return false, nil
	}

	if err := s.cycles.Advance(ctx, familyID, last, current, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Debug("cycle already advanced by another writer",
				"family", familyID, "cycle", current)
			return false, nil
		}
		return false, fmt.Errorf("advancing cycle marker: %w", err)
	}

	if err := s.resetProfiles(ctx, familyID, now); err != nil {
		// The marker already advanced, so a retry cannot double-grant;
		// un-reset profiles are repaired with `minutebank reset --force`.
		return true, err
	}

	observability.CycleResets.Inc()
	s.logger.Info("weekly reset performed", "family", familyID, "cycle", current)
	return true, nil
}

// ForceReset runs the per-profile fan-out unconditionally, advancing the
// marker when it is stale. Operator repair path for a fan-out interrupted
// mid-cycle; it can double-grant if the cycle was already reset.
func (s *Scheduler) ForceReset(ctx context.Context, familyID string) error {
	now := s.clock()
	current := s.cal.WeekID(now)

	var last string
	if marker, err := s.cycles.Get(ctx, familyID); err == nil {
		last = marker.CycleID
	}
	if last != current {
		if err := s.cycles.Advance(ctx, familyID, last, current, now); err != nil &&
			!errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("advancing cycle marker: %w", err)
		}
	}
	if err := s.resetProfiles(ctx, familyID, now); err != nil {
		return err
	}
	observability.CycleResets.Inc()
	s.logger.Info("forced reset performed", "family", familyID, "cycle", current)
	return nil
}

func (s *Scheduler) resetProfiles(ctx context.Context, familyID string, now time.Time) error {
	profiles, err := s.profiles.List(ctx, familyID)
	if err != nil {
		return fmt.Errorf("listing profiles: %w", err)
	}

	for i := range profiles {
		p := &profiles[i]
		if err := s.resetProfile(ctx, familyID, p, now); err != nil {
			return fmt.Errorf("resetting profile %s: %w", p.ID, err)
		}
		s.hub.Notify(live.ProfileKey(familyID, p.ID))
	}
	s.hub.Notify(live.ProfilesKey(familyID))
	return nil
}

func (s *Scheduler) resetProfile(ctx context.Context, familyID string, p *profile.Profile, now time.Time) error {
	p.WeeklyGoalProgress = 0
	for i := range p.Tasks {
		p.Tasks[i].CompletedToday = false
	}
	if err := s.profiles.Update(ctx, familyID, p); err != nil {
		return fmt.Errorf("clearing weekly state: %w", err)
	}
	if err := s.profiles.SetBalance(ctx, familyID, p.ID, profile.InitialBalance); err != nil {
		return fmt.Errorf("setting balance: %w", err)
	}
	return s.ledger.RecordGrant(ctx, familyID, p.ID,
		"Week start - weekly grant", profile.InitialBalance, now)
}
