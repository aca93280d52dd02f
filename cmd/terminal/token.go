package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/stock-sync/internal/auth"
)

type tokenOptions struct {
	Secret string
	User   string
	Role   string
	TTL    time.Duration
}

// newTokenCommand mints a development token. Real deployments get their
// tokens from the authentication service; this exists for local setups
// and tests that share the server's HMAC secret.
func newTokenCommand() *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.Mint([]byte(opts.Secret), opts.User, opts.Role, opts.TTL)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Secret, "secret", "dev-secret-change-me", "server JWT secret")
	cmd.Flags().StringVar(&opts.User, "user", "dev", "user ID to embed")
	cmd.Flags().StringVar(&opts.Role, "role", auth.RoleStaff, "role to embed (staff, manager, viewer)")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 12*time.Hour, "token lifetime")

	return cmd
}
