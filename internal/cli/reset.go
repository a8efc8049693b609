package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var familyID string
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Run the weekly cycle rollover",
		Long: `reset checks whether a new weekly cycle has started and, if so, resets
every profile of the family: balance back to the weekly grant, goal progress
and daily task flags cleared, and a reset entry appended to each ledger.

With --force the per-profile reset runs even when the cycle marker is
current. Use it to repair a rollover that was interrupted mid-way; on an
already-reset cycle it grants the weekly balance a second time.`,
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
			if force {
				if err := svcs.scheduler.ForceReset(ctx, familyID); err != nil {
					return err
				}
				fmt.Println("forced reset performed")
				return nil
			}

			done, err := svcs.scheduler.CheckAndReset(ctx, familyID)
			if err != nil {
				return err
			}
			if done {
				fmt.Println("weekly reset performed")
			} else {
				fmt.Println("cycle already current, nothing to do")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&familyID, "family", "local", "family to reset")
	cmd.Flags().BoolVar(&force, "force", false, "reset even if the cycle marker is current")
	return cmd
}
