package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dreyes/minutebank/internal/api"
	"github.com/dreyes/minutebank/internal/sqlite"
)

func newKeygenCmd() *cobra.Command {
	var familyID string
	var description string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate and register an API key for a family",
		Long: `keygen creates a random API key, stores its SHA-256 hash for the given
family, and prints the plaintext key once. The plaintext is not recoverable
afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "sqlite" {
				return fmt.Errorf("keygen requires the sqlite driver; the file driver runs unauthenticated")
			}

			db, err := sqlite.New(cfg.Storage.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.RunMigrations(); err != nil {
				return err
			}

			raw := make([]byte, 32)
			if _, err := rand.Read(raw); err != nil {
				return fmt.Errorf("generating key: %w", err)
			}
			key := "mbk_" + hex.EncodeToString(raw)

			keys := sqlite.NewKeyRepository(db)
			if err := keys.Put(context.Background(), api.HashKey(key), familyID, description); err != nil {
				return fmt.Errorf("storing key: %w", err)
			}

			fmt.Printf("family: %s\nkey: %s\n", familyID, key)
			fmt.Println("store this key now; only its hash is kept")
			return nil
		},
	}

	cmd.Flags().StringVar(&familyID, "family", "", "family the key belongs to")
	cmd.Flags().StringVar(&description, "description", "", "note stored with the key")
	_ = cmd.MarkFlagRequired("family")
	return cmd
}
