package mocks

import (
	"context"
	"time"

	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/stretchr/testify/mock"
)

// ProfileStore is a mock for the profile persistence union consumed by the
// profile, ledger, and cycle packages.
type ProfileStore struct {
	mock.Mock
}

func (m *ProfileStore) Create(ctx context.Context, familyID string, p *profile.Profile) error {
	args := m.Called(ctx, familyID, p)
	return args.Error(0)
}

func (m *ProfileStore) Get(ctx context.Context, familyID, id string) (*profile.Profile, error) {
	args := m.Called(ctx, familyID, id)
	if p, ok := args.Get(0).(*profile.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProfileStore) List(ctx context.Context, familyID string) ([]profile.Profile, error) {
	args := m.Called(ctx, familyID)
	if list, ok := args.Get(0).([]profile.Profile); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProfileStore) Update(ctx context.Context, familyID string, p *profile.Profile) error {
	args := m.Called(ctx, familyID, p)
	return args.Error(0)
}

func (m *ProfileStore) UpdateTasks(ctx context.Context, familyID, id string, tasks []profile.Task) error {
	args := m.Called(ctx, familyID, id, tasks)
	return args.Error(0)
}

func (m *ProfileStore) SetBalance(ctx context.Context, familyID, id string, balance int) error {
	args := m.Called(ctx, familyID, id, balance)
	return args.Error(0)
}

func (m *ProfileStore) AdjustBalance(ctx context.Context, familyID, id string, delta int) (int, error) {
	args := m.Called(ctx, familyID, id, delta)
	return args.Int(0), args.Error(1)
}

func (m *ProfileStore) Delete(ctx context.Context, familyID, id string) error {
	args := m.Called(ctx, familyID, id)
	return args.Error(0)
}

// TransactionRepository is a mock for ledger.TransactionRepository.
type TransactionRepository struct {
	mock.Mock
}

func (m *TransactionRepository) Append(ctx context.Context, familyID string, tx *ledger.Transaction) error {
	args := m.Called(ctx, familyID, tx)
	return args.Error(0)
}

func (m *TransactionRepository) ListByProfile(ctx context.Context, familyID, profileID string, limit int) ([]ledger.Transaction, error) {
	args := m.Called(ctx, familyID, profileID, limit)
	if list, ok := args.Get(0).([]ledger.Transaction); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TransactionRepository) DeleteByProfile(ctx context.Context, familyID, profileID string) error {
	args := m.Called(ctx, familyID, profileID)
	return args.Error(0)
}

// CycleRepository is a mock for cycle.CycleRepository.
type CycleRepository struct {
	mock.Mock
}

func (m *CycleRepository) Get(ctx context.Context, familyID string) (*cycle.Marker, error) {
	args := m.Called(ctx, familyID)
	if marker, ok := args.Get(0).(*cycle.Marker); ok {
		return marker, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CycleRepository) Advance(ctx context.Context, familyID, fromCycleID, toCycleID string, at time.Time) error {
	args := m.Called(ctx, familyID, fromCycleID, toCycleID, at)
	return args.Error(0)
}

// Ledger is a mock for the narrow ledger interfaces consumed by the profile
// and cycle packages.
type Ledger struct {
	mock.Mock
}

func (m *Ledger) RecordGrant(ctx context.Context, familyID, profileID, description string, amount int, at time.Time) error {
	args := m.Called(ctx, familyID, profileID, description, amount, at)
	return args.Error(0)
}

func (m *Ledger) DeleteAllForProfile(ctx context.Context, familyID, profileID string) error {
	args := m.Called(ctx, familyID, profileID)
	return args.Error(0)
}
