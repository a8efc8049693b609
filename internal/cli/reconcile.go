package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	var familyID string
	var profileID string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay ledgers and report balance drift",
		Long: `reconcile replays each profile's full transaction log and compares the
result with the cached balance. The two must always agree; any drift points
at a bug or at storage corruption.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			st, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			svcs, err := buildServices(cfg, st, logger)
			if err != nil {
				return err
			}

			ctx := context.Background()
			ids := []string{profileID}
			if profileID == "" {
				profiles, err := svcs.profiles.List(ctx, familyID)
				if err != nil {
					return err
				}
				ids = ids[:0]
				for _, p := range profiles {
					ids = append(ids, p.ID)
				}
			}

			var drifted bool
			for _, id := range ids {
				result, err := svcs.ledger.Reconcile(ctx, familyID, id)
				if err != nil {
					return fmt.Errorf("reconciling %s: %w", id, err)
				}
				status := "ok"
				if result.Drift != 0 {
					status = fmt.Sprintf("DRIFT %+d", result.Drift)
					drifted = true
				}
				fmt.Printf("%s  cached=%d replayed=%d  %s\n",
					result.ProfileID, result.CachedBalance, result.ReplayedBalance, status)
			}
			if drifted {
				return fmt.Errorf("balance drift detected")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&familyID, "family", "local", "family to reconcile")
	cmd.Flags().StringVar(&profileID, "profile", "", "reconcile a single profile")
	return cmd
}
