package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dreyes/minutebank/internal/api"
	"github.com/dreyes/minutebank/internal/config"
	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/filestore"
	"github.com/dreyes/minutebank/internal/live"
	"github.com/dreyes/minutebank/internal/sqlite"
)

// stores bundles the persistence interfaces of whichever driver the config
// selects. The same concrete repository backs several narrow interfaces.
type stores struct {
	profileRepo   profile.Repository
	ledgerStore   ledger.ProfileStore
	cycleProfiles cycle.ProfileStore
	txs           ledger.TransactionRepository
	cycles        cycle.CycleRepository
	keys          api.KeyStore // nil for the file driver
	close         func() error
}

func openStores(cfg config.Config) (*stores, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("preparing database path: %w", err)
			}
		}
		db, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, err
		}
		profiles := sqlite.NewProfileRepository(db)
		return &stores{
			profileRepo:   profiles,
			ledgerStore:   profiles,
			cycleProfiles: profiles,
			txs:           sqlite.NewTransactionRepository(db),
			cycles:        sqlite.NewCycleRepository(db),
			keys:          sqlite.NewKeyRepository(db),
			close:         db.Close,
		}, nil

	case "file":
		store, err := filestore.Open(cfg.Storage.FilePath)
		if err != nil {
			return nil, err
		}
		return &stores{
			profileRepo:   store,
			ledgerStore:   store,
			cycleProfiles: store,
			txs:           store,
			cycles:        store.Cycles(),
			close:         store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// services is the assembled domain layer.
type services struct {
	hub       *live.Hub
	cal       cycle.Calendar
	profiles  *profile.Service
	ledger    *ledger.Service
	scheduler *cycle.Scheduler
}

func buildServices(cfg config.Config, st *stores, logger *slog.Logger) (*services, error) {
	anchor, err := cfg.WeekAnchor()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cal := cycle.NewCalendar(loc, anchor)
	hub := live.NewHub()

	ledgerSvc := ledger.NewService(st.txs, st.ledgerStore, hub, cal, logger)
	profileSvc := profile.NewService(st.profileRepo, ledgerSvc, hub, logger)
	scheduler := cycle.NewScheduler(st.cycles, st.cycleProfiles, ledgerSvc, hub, cal, logger)

	return &services{
		hub:       hub,
		cal:       cal,
		profiles:  profileSvc,
		ledger:    ledgerSvc,
		scheduler: scheduler,
	}, nil
}
