package main

import (
	"github.com/spf13/cobra"
)

func newStockCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stock <location> [item]",
		Short: "Show current stock at a location",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := rootOpts.client()
			if len(args) == 2 {
				rec, err := c.Stock(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				cmd.Printf("%s@%s = %s (version %d, updated %s)\n",
					rec.ItemID, rec.LocationID, rec.Quantity, rec.Version,
					rec.UpdatedAt.Format("2006-01-02 15:04:05"))
				return nil
			}

			recs, err := c.StockByLocation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				cmd.Printf("no stock recorded at %s\n", args[0])
				return nil
			}
			for _, rec := range recs {
				cmd.Printf("%-24s %12s  (version %d)\n", rec.ItemID, rec.Quantity.String(), rec.Version)
			}
			return nil
		},
	}
}

type historyOptions struct {
	*rootOptions
	Since int64
	Limit int
}

func newHistoryCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &historyOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <location> <item>",
		Short: "Show committed transactions for one item at one location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := opts.client().History(cmd.Context(), args[0], args[1], opts.Since, opts.Limit)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				cmd.Println("no transactions past the given sequence")
				return nil
			}
			for _, tx := range txs {
				cmd.Printf("seq %-6d %-9s %10s  -> %10s  %s %s %s\n",
					tx.Seq, tx.Kind, tx.Amount, tx.ResultingQuantity,
					tx.ServerTime.Format("2006-01-02 15:04:05"), tx.OriginUserID, tx.Reason)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only transactions with sequence greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of transactions (server default when 0)")

	return cmd
}

func newAlertsCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts <location>",
		Short: "List items at or under their reorder point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := rootOpts.client().Alerts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				cmd.Printf("no low stock at %s\n", args[0])
				return nil
			}
			for _, a := range alerts {
				cmd.Printf("%-24s %s left (reorder at %s)\n", a.ItemID, a.Quantity, a.ReorderPoint)
			}
			return nil
		},
	}
}
