// Command terminal is the bar/storage/mobile stock terminal: it submits
// adjustments online, buffers them in a local outbox while offline,
// replays the buffer after reconnecting, and streams live updates.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rl1809/stock-sync/internal/client"
)

// rootOptions holds the global flags shared by every command.
type rootOptions struct {
	Server string
	Token  string
	DBPath string
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.Server, o.Token)
}

func (o *rootOptions) outbox() (*client.Outbox, error) {
	return client.OpenOutbox(o.DBPath)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "terminal",
		Short:         "Stock terminal for the synchronization server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("STOCKSYNC_SERVER", "http://localhost:8080"), "server base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("STOCKSYNC_TOKEN"), "bearer token (defaults to $STOCKSYNC_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "stock-terminal.db", "path to the local outbox database")

	cmd.AddCommand(newAdjustCommand(opts))
	cmd.AddCommand(newReplayCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newStockCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newAlertsCommand(opts))
	cmd.AddCommand(newTokenCommand())

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
