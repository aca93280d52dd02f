package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rl1809/stock-sync/internal/client"
	"github.com/rl1809/stock-sync/pkg/api"
)

type adjustOptions struct {
	*rootOptions
	Item     string
	Location string
	Kind     string
	Amount   string
	Reason   string
	Notes    string
	Offline  bool
	Buffer   bool
}

func newAdjustCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &adjustOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Submit one stock adjustment",
		Long: `Submit one stock adjustment to the server.

With --offline the adjustment is recorded in the local outbox instead of
being sent; with --buffer a submission that fails because the server is
unreachable falls back to the outbox. Buffered adjustments are sent with
'terminal replay'. The idempotency key is generated here, once, so a
replayed or retried adjustment is never applied twice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdjust(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Item, "item", "", "item ID (required)")
	cmd.Flags().StringVar(&opts.Location, "location", "", "location ID (required)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "ADD, SUBTRACT or SET (required)")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "quantity (required)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "audit reason (sale, receive, waste, transfer, count, adjustment)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form note")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "record in the outbox without contacting the server")
	cmd.Flags().BoolVar(&opts.Buffer, "buffer", false, "fall back to the outbox when the server is unreachable")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runAdjust(cmd *cobra.Command, opts *adjustOptions) error {
	amount, err := decimal.NewFromString(opts.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", opts.Amount, err)
	}

	outbox, err := opts.outbox()
	if err != nil {
		return err
	}
	defer outbox.Close()

	clientID, err := outbox.ClientID()
	if err != nil {
		return err
	}

	req := api.AdjustmentRequest{
		ItemID:         opts.Item,
		LocationID:     opts.Location,
		Kind:           opts.Kind,
		Amount:         amount,
		Reason:         opts.Reason,
		IdempotencyKey: uuid.NewString(),
		ClientID:       clientID,
		ClientTime:     time.Now().UTC(),
		Notes:          opts.Notes,
	}

	if opts.Offline {
		if _, err := outbox.Enqueue(req); err != nil {
			return err
		}
		n, _ := outbox.Len()
		cmd.Printf("buffered offline (%d pending)\n", n)
		return nil
	}

	resp, err := opts.client().SubmitAdjustment(cmd.Context(), req)
	if err != nil {
		if opts.Buffer && isUnreachable(err) {
			if _, qerr := outbox.Enqueue(req); qerr != nil {
				return fmt.Errorf("submit failed (%v) and buffering failed: %w", err, qerr)
			}
			n, _ := outbox.Len()
			cmd.Printf("server unreachable, buffered for replay (%d pending)\n", n)
			return nil
		}
		return err
	}

	cmd.Printf("%s: %s %s at %s now %s (version %d, seq %d)\n",
		resp.Status, opts.Kind, opts.Amount, opts.Location,
		resp.ResultingQuantity, resp.ResultingVersion, resp.Sequence)
	return nil
}

// isUnreachable distinguishes "could not reach the server" from a
// server-side rejection, which must not be buffered for replay.
func isUnreachable(err error) bool {
	var apiErr *client.APIError
	return !errors.As(err, &apiErr)
}
