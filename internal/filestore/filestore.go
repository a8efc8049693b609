// Package filestore implements the persistence interfaces on a single JSON
// snapshot file. It backs the offline single-device mode, where no server or
// API keys are involved and every family lives under the id "local".
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/repository"
)

type snapshot struct {
	Version   int                     `json:"version"`
	Families  map[string]*familyData  `json:"families"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

type familyData struct {
	Profiles     []profile.Profile    `json:"profiles"`
	Transactions []ledger.Transaction `json:"transactions"`
	Cycle        *cycle.Marker        `json:"cycle,omitempty"`
}

// Store is a snapshot-backed file store. Every mutation rewrites the whole
// file, which is fine at family scale: a handful of profiles and a
// week-bounded transaction log.
type Store struct {
	mu   sync.RWMutex
	file *os.File
	snap *snapshot
}

// Open opens or creates the snapshot file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	s := &Store{file: f}
	if err := s.load(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying file.
func (s *Store) Close() error { return s.file.Close() }

func (s *Store) load() error {
	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		now := time.Now()
		s.snap = &snapshot{
			Version:   1,
			Families:  map[string]*familyData{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.flushLocked()
	}
	dec := json.NewDecoder(s.file)
	var snap snapshot
	if err := dec.Decode(&snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Families == nil {
		snap.Families = map[string]*familyData{}
	}
	s.snap = &snap
	return nil
}

func (s *Store) flushLocked() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	enc := json.NewEncoder(s.file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.snap); err != nil {
		return err
	}
	// truncate in case new content is shorter
	pos, _ := s.file.Seek(0, io.SeekCurrent)
	if err := s.file.Truncate(pos); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *Store) withWrite(ctx context.Context, fn func(*snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := fn(s.snap); err != nil {
		return err
	}
	s.snap.UpdatedAt = time.Now()
	return s.flushLocked()
}

func (s *Store) withRead(fn func(*snapshot) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.snap)
}

func (snap *snapshot) family(familyID string) *familyData {
	fam, ok := snap.Families[familyID]
	if !ok {
		fam = &familyData{}
		snap.Families[familyID] = fam
	}
	return fam
}

func (fam *familyData) findProfile(id string) int {
	for i := range fam.Profiles {
		if fam.Profiles[i].ID == id {
			return i
		}
	}
	return -1
}

// --- profile store ---

// Create inserts a new profile.
func (s *Store) Create(ctx context.Context, familyID string, p *profile.Profile) error {
	return s.withWrite(ctx, func(snap *snapshot) error {
		fam := snap.family(familyID)
		if fam.findProfile(p.ID) >= 0 {
			return fmt.Errorf("profile %s already exists: %w", p.ID, repository.ErrInvalidInput)
		}
		fam.Profiles = append(fam.Profiles, *p)
		return nil
	})
}

// Get retrieves a profile by id.
func (s *Store) Get(ctx context.Context, familyID, id string) (*profile.Profile, error) {
	var out *profile.Profile
	_ = s.withRead(func(snap *snapshot) error {
		if fam, ok := snap.Families[familyID]; ok {
			if i := fam.findProfile(id); i >= 0 {
				out = cloneProfile(&fam.Profiles[i])
			}
		}
		return nil
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

// List returns the family's profiles in creation order.
func (s *Store) List(ctx context.Context, familyID string) ([]profile.Profile, error) {
	var out []profile.Profile
	_ = s.withRead(func(snap *snapshot) error {
		if fam, ok := snap.Families[familyID]; ok {
			for i := range fam.Profiles {
				out = append(out, *cloneProfile(&fam.Profiles[i]))
			}
		}
		return nil
	})
	return out, nil
}

// Update writes every profile field except the cached balance.
func (s *Store) Update(ctx context.Context, familyID string, p *profile.Profile) error {
	return s.withWrite(ctx, func(snap *snapshot) error {
		fam := snap.family(familyID)
		i := fam.findProfile(p.ID)
		if i < 0 {
			return repository.ErrNotFound
		}
		balance := fam.Profiles[i].Balance
		created := fam.Profiles[i].CreatedAt
		next := *cloneProfile(p)
		next.Balance = balance
		next.CreatedAt = created
		fam.Profiles[i] = next
		return nil
	})
}

// UpdateTasks replaces the profile's task list wholesale.
func (s *Store) UpdateTasks(ctx context.Context, familyID, id string, tasks []profile.Task) error {
	return s.withWrite(ctx, func(snap *snapshot) error {
		fam := snap.family(familyID)
		i := fam.findProfile(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		fam.Profiles[i].Tasks = append([]profile.Task(nil), tasks...)
		return nil
	})
}

// SetBalance overwrites the cached balance.
func (s *Store) SetBalance(ctx context.Context, familyID, id string, balance int) error {
	return s.withWrite(ctx, func(snap *snapshot) error {
		fam := snap.family(familyID)
		i := fam.findProfile(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		fam.Profiles[i].Balance = balance
		return nil
	})
}

// AdjustBalance increments the cached balance and returns the new value.
func (s *Store) AdjustBalance(ctx context.Context, familyID, id string, delta int) (int, error) {
	var balance int
	err := s.withWrite(ctx, func(snap *snapshot) error {
		fam := snap.family(familyID)
		i := fam.findProfile(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		fam.Profiles[i].Balance += delta
		balance = fam.Profiles[i].Balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Delete removes a profile.
func (s *Store) Delete(ctx context.Context, familyID, id string) error {
	return s.withWrite(ctx, func(snap *snapshot) error {
		fam := snap.family(familyID)
		i := fam.findProfile(id)
		if i < 0 {
			return repository.ErrNotFound
		}
		fam.Profiles = append(fam.Profiles[:i], fam.Profiles[i+1:]...)
		return nil
	})
}

// --- transaction repository ---

// Append records a ledger entry.
func (s *Store) Append(ctx context.Context, familyID string, tx *ledger.Transaction) error {
	return s.withWrite(ctx, func(snap *snapshot) error {
		fam := snap.family(familyID)
		for i := range fam.Transactions {
			if fam.Transactions[i].ID == tx.ID {
				return fmt.Errorf("transaction %s already exists: %w", tx.ID, repository.ErrConflict)
			}
		}
		fam.Transactions = append(fam.Transactions, *cloneTransaction(tx))
		return nil
	})
}

// ListByProfile returns a profile's entries newest first. Entries sharing a
// timestamp keep reverse append order. A limit of 0 returns the full log.
func (s *Store) ListByProfile(ctx context.Context, familyID, profileID string, limit int) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	_ = s.withRead(func(snap *snapshot) error {
		fam, ok := snap.Families[familyID]
		if !ok {
			return nil
		}
		for i := len(fam.Transactions) - 1; i >= 0; i-- {
			tx := &fam.Transactions[i]
			if tx.ProfileID != profileID {
				continue
			}
			out = append(out, *cloneTransaction(tx))
		}
		return nil
	})
	// Append order usually tracks timestamps, but entries written by another
	// device can land out of order after a sync, so re-sort descending.
	stableSortDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteByProfile removes the profile's full log.
func (s *Store) DeleteByProfile(ctx context.Context, familyID, profileID string) error {
	return s.withWrite(ctx, func(snap *snapshot) error {
		fam := snap.family(familyID)
		kept := fam.Transactions[:0]
		for i := range fam.Transactions {
			if fam.Transactions[i].ProfileID != profileID {
				kept = append(kept, fam.Transactions[i])
			}
		}
		fam.Transactions = kept
		return nil
	})
}

// --- cycle repository ---

// CycleStore is the cycle-marker view of a Store. It is a separate type only
// because the marker lookup and the profile lookup would otherwise collide
// on the method name Get.
type CycleStore struct {
	s *Store
}

// Cycles returns the store's cycle-marker view.
func (s *Store) Cycles() *CycleStore { return &CycleStore{s: s} }

// Get retrieves the family's cycle marker.
func (c *CycleStore) Get(ctx context.Context, familyID string) (*cycle.Marker, error) {
	var out *cycle.Marker
	_ = c.s.withRead(func(snap *snapshot) error {
		if fam, ok := snap.Families[familyID]; ok && fam.Cycle != nil {
			m := *fam.Cycle
			out = &m
		}
		return nil
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

// Advance conditionally moves the cycle marker, returning
// repository.ErrConflict when the stored marker no longer matches
// fromCycleID.
func (c *CycleStore) Advance(ctx context.Context, familyID, fromCycleID, toCycleID string, at time.Time) error {
	return c.s.withWrite(ctx, func(snap *snapshot) error {
		fam := snap.family(familyID)
		var current string
		if fam.Cycle != nil {
			current = fam.Cycle.CycleID
		}
		if current != fromCycleID {
			return repository.ErrConflict
		}
		fam.Cycle = &cycle.Marker{CycleID: toCycleID, LastReset: at}
		return nil
	})
}

func cloneProfile(p *profile.Profile) *profile.Profile {
	out := *p
	out.Tasks = append([]profile.Task(nil), p.Tasks...)
	out.Consequences = append([]profile.Consequence(nil), p.Consequences...)
	out.WeeklyPlan = p.WeeklyPlan.Normalize()
	return &out
}

func cloneTransaction(tx *ledger.Transaction) *ledger.Transaction {
	out := *tx
	if tx.TargetSession != nil {
		session := *tx.TargetSession
		out.TargetSession = &session
	}
	return &out
}

func stableSortDesc(txs []ledger.Transaction) {
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0 && txs[j].Timestamp.After(txs[j-1].Timestamp); j-- {
			txs[j], txs[j-1] = txs[j-1], txs[j]
		}
	}
}
