package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rl1809/stock-sync/pkg/api"
)

type watchOptions struct {
	*rootOptions
	Locations []string
	Items     []string
}

func newWatchCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &watchOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live stock updates",
		Long: `Subscribe to the server's live feed and print every stock update,
transaction and low-stock alert for the chosen locations or items until
interrupted. The stream is best-effort: after a disconnect, catch up
with 'terminal history' before trusting local state again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Locations, "location", nil, "location IDs to watch")
	cmd.Flags().StringSliceVar(&opts.Items, "item", nil, "item IDs to watch")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *watchOptions) error {
	if len(opts.Locations) == 0 && len(opts.Items) == 0 {
		return errors.New("watch needs at least one --location or --item")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("watching locations=%v items=%v (ctrl-c to stop)\n", opts.Locations, opts.Items)

	err := opts.client().Watch(ctx, opts.Locations, opts.Items,
		func(update *api.WSStockUpdate, tx *api.WSTransaction, alert *api.WSStockAlert) {
			switch {
			case update != nil:
				cmd.Printf("stock  %s@%s = %s (version %d, seq %d)\n",
					update.ItemID, update.LocationID, update.Quantity, update.Version, update.Sequence)
			case tx != nil:
				cmd.Printf("tx     %s %s %s@%s by %s -> %s\n",
					tx.Kind, tx.Amount, tx.ItemID, tx.LocationID, tx.OriginUserID, tx.ResultingQuantity)
			case alert != nil:
				cmd.Printf("ALERT  %s@%s down to %s (reorder at %s)\n",
					alert.ItemID, alert.LocationID, alert.Quantity, alert.ReorderPoint)
			}
		})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
