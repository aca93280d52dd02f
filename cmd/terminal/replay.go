package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rl1809/stock-sync/pkg/api"
)

func newReplayCommand(rootOpts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Send buffered adjustments to the server",
		Long: `Send every adjustment in the local outbox to the server, in the
order they were recorded. The server applies each one through the same
path as an online submission, so entries it has already seen come back
as duplicates instead of being applied twice.

Settled entries (committed, duplicate, or rejected by a business rule)
are removed from the outbox; entries that failed transiently stay
buffered for the next replay.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, rootOpts)
		},
	}
	return cmd
}

func runReplay(cmd *cobra.Command, opts *rootOptions) error {
	outbox, err := opts.outbox()
	if err != nil {
		return err
	}
	defer outbox.Close()

	pending, err := outbox.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("outbox is empty, nothing to replay")
		return nil
	}

	clientID, err := outbox.ClientID()
	if err != nil {
		return err
	}
	watermark, err := outbox.Watermark()
	if err != nil {
		return err
	}

	req := api.ReplayRequest{
		ClientID:                clientID,
		LastKnownServerSequence: watermark,
	}
	for _, entry := range pending {
		req.Adjustments = append(req.Adjustments, entry.Adjustment)
	}

	resp, err := opts.client().Replay(cmd.Context(), req)
	if err != nil {
		return err
	}

	var settled []uint64
	for _, entry := range resp.Entries {
		if entry.Index < 0 || entry.Index >= len(pending) {
			continue
		}
		key := pending[entry.Index].Key
		adj := pending[entry.Index].Adjustment

		switch entry.Outcome {
		case "committed":
			cmd.Printf("committed  %s %s %s@%s -> %s (seq %d)\n",
				adj.Kind, adj.Amount, adj.ItemID, adj.LocationID,
				entry.Transaction.ResultingQuantity, entry.Transaction.Seq)
			settled = append(settled, key)
		case "duplicate":
			cmd.Printf("duplicate  %s %s %s@%s (already seq %d)\n",
				adj.Kind, adj.Amount, adj.ItemID, adj.LocationID, entry.Transaction.Seq)
			settled = append(settled, key)
		case "rejected":
			if transientReason(entry.Reason) {
				cmd.Printf("deferred   %s %s %s@%s: %s (will retry)\n",
					adj.Kind, adj.Amount, adj.ItemID, adj.LocationID, entry.Reason)
				continue
			}
			cmd.Printf("rejected   %s %s %s@%s: %s\n",
				adj.Kind, adj.Amount, adj.ItemID, adj.LocationID, entry.Reason)
			settled = append(settled, key)
		}
	}

	if err := outbox.Ack(settled); err != nil {
		return err
	}

	// adopt the server's state: print the authoritative records and
	// advance the watermark past the history it returned
	maxSeq := watermark
	for _, key := range resp.Keys {
		if key.Stock != nil {
			cmd.Printf("server state %s@%s: %s (version %d)\n",
				key.ItemID, key.LocationID, key.Stock.Quantity, key.Stock.Version)
		}
		for _, tx := range key.History {
			if tx.Seq > maxSeq {
				maxSeq = tx.Seq
			}
		}
	}
	if maxSeq > watermark {
		if err := outbox.SetWatermark(maxSeq); err != nil {
			return err
		}
	}

	remaining, _ := outbox.Len()
	cmd.Printf("replayed %d, %d still pending\n", len(settled), remaining)
	return nil
}

// transientReason reports whether a rejection is worth retrying on the
// next replay instead of being dropped.
func transientReason(reason string) bool {
	return strings.Contains(reason, "concurrent modification") ||
		strings.Contains(reason, "canceled")
}
