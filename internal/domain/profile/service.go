// Package profile implements CRUD over child profiles: tasks, penalties,
// the weekly session plan, and the cached minute balance.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dreyes/minutebank/internal/live"
	"github.com/dreyes/minutebank/internal/repository"
	"github.com/google/uuid"
)

// DefaultTask is added to every created profile.
var DefaultTask = Task{
	ID:     "breathing",
	Name:   "Mindful breathing",
	Points: 5,
}

// Service handles profile operations.
type Service struct {
	repo   Repository
	ledger Ledger
	hub    *live.Hub
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service's time source. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// NewService creates a new profile service.
func NewService(repo Repository, ledger Ledger, hub *live.Hub, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{repo: repo, ledger: ledger, hub: hub, clock: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Draft describes a profile to create.
type Draft struct {
	Name            string        `json:"name"`
	WeeklyGoalHours float64       `json:"weeklyGoalHours"`
	Tasks           []Task        `json:"tasks"`
	Consequences    []Consequence `json:"consequences"`
	WeeklyPlan      WeeklyPlan    `json:"weeklyPlan"`
}

// Create stores a new profile with the initial balance and records the
// creation grant. The balance is written directly and the grant transaction
// skips the increment path, so the grant is not counted twice.
func (s *Service) Create(ctx context.Context, familyID string, draft Draft) (*Profile, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	for _, task := range draft.Tasks {
		if task.Points <= 0 {
			return nil, fmt.Errorf("%w: task points must be positive", ErrInvalidInput)
		}
	}

	now := s.clock()
	tasks := make([]Task, 0, len(draft.Tasks)+1)
	for i, task := range draft.Tasks {
		if task.ID == "" {
			task.ID = fmt.Sprintf("task_%d", i)
		}
		task.CompletedToday = false
		tasks = append(tasks, task)
	}
	tasks = append(tasks, DefaultTask)

	p := &Profile{
		ID:              uuid.NewString(),
		Name:            draft.Name,
		Balance:         InitialBalance,
		WeeklyGoalHours: draft.WeeklyGoalHours,
		Tasks:           tasks,
		Consequences:    draft.Consequences,
		WeeklyPlan:      draft.WeeklyPlan.Normalize(),
		CreatedAt:       now,
	}

	if err := s.repo.Create(ctx, familyID, p); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	if err := s.ledger.RecordGrant(ctx, familyID, p.ID, "Profile created - initial grant", InitialBalance, now); err != nil {
		return nil, fmt.Errorf("recording initial grant: %w", err)
	}

	s.hub.Notify(live.ProfileKey(familyID, p.ID), live.ProfilesKey(familyID))
	s.logger.Info("profile created", "family", familyID, "profile", p.ID, "name", p.Name)
	return p, nil
}

// Get returns a profile by id.
func (s *Service) Get(ctx context.Context, familyID, id string) (*Profile, error) {
	p, err := s.repo.Get(ctx, familyID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return p, nil
}

// List returns every profile of a family.
func (s *Service) List(ctx context.Context, familyID string) ([]Profile, error) {
	profiles, err := s.repo.List(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	return profiles, nil
}

// UpdateRequest carries the fields to change. Nil fields are left untouched;
// tasks, consequences, and the weekly plan are replaced wholesale when
// present, never deep-merged.
type UpdateRequest struct {
	Name               *string        `json:"name"`
	WeeklyGoalHours    *float64       `json:"weeklyGoalHours"`
	WeeklyGoalProgress *float64       `json:"weeklyGoalProgress"`
	Tasks              *[]Task        `json:"tasks"`
	Consequences       *[]Consequence `json:"consequences"`
	WeeklyPlan         *WeeklyPlan    `json:"weeklyPlan"`
}

// Update shallow-merges the request into the stored profile.
func (s *Service) Update(ctx context.Context, familyID, id string, req UpdateRequest) (*Profile, error) {
	p, err := s.Get(ctx, familyID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		p.Name = *req.Name
	}
	if req.WeeklyGoalHours != nil {
		p.WeeklyGoalHours = *req.WeeklyGoalHours
	}
	if req.WeeklyGoalProgress != nil {
		p.WeeklyGoalProgress = *req.WeeklyGoalProgress
	}
	if req.Tasks != nil {
		p.Tasks = *req.Tasks
	}
	if req.Consequences != nil {
		p.Consequences = *req.Consequences
	}
	if req.WeeklyPlan != nil {
		p.WeeklyPlan = req.WeeklyPlan.Normalize()
	}

	if err := s.repo.Update(ctx, familyID, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.hub.Notify(live.ProfileKey(familyID, id), live.ProfilesKey(familyID))
	return p, nil
}

// Delete removes a profile and cascades to its entire transaction history.
func (s *Service) Delete(ctx context.Context, familyID, id string) error {
	if _, err := s.Get(ctx, familyID, id); err != nil {
		return err
	}
	if err := s.ledger.DeleteAllForProfile(ctx, familyID, id); err != nil {
		return fmt.Errorf("cascading transaction delete: %w", err)
	}
	if err := s.repo.Delete(ctx, familyID, id); err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	s.hub.Notify(live.ProfileKey(familyID, id), live.ProfilesKey(familyID))
	s.logger.Info("profile deleted", "family", familyID, "profile", id)
	return nil
}

// Subscribe delivers the profile immediately and again on every change. A
// deleted or missing profile is delivered as nil. The returned cancel
// function stops deliveries synchronously.
func (s *Service) Subscribe(ctx context.Context, familyID, id string, fn func(*Profile)) (cancel func()) {
	return s.hub.Subscribe(live.ProfileKey(familyID, id), func() {
		p, err := s.repo.Get(ctx, familyID, id)
		if err != nil && errors.Is(err, repository.ErrUnavailable) {
			p, err = s.repo.Get(ctx, familyID, id)
		}
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				fn(nil)
				return
			}
			s.logger.Warn("profile snapshot failed", "family", familyID, "profile", id, "error", err)
			return
		}
		fn(p)
	})
}

// SubscribeAll delivers the family's full profile list immediately and again
// on every profile change.
func (s *Service) SubscribeAll(ctx context.Context, familyID string, fn func([]Profile)) (cancel func()) {
	return s.hub.Subscribe(live.ProfilesKey(familyID), func() {
		profiles, err := s.repo.List(ctx, familyID)
		if err != nil && errors.Is(err, repository.ErrUnavailable) {
			profiles, err = s.repo.List(ctx, familyID)
		}
		if err != nil {
			s.logger.Warn("profile list snapshot failed", "family", familyID, "error", err)
			return
		}
		fn(profiles)
	})
}
