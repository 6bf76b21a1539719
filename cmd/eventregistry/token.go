package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"eventregistry/config"
	"eventregistry/internal/adapters/auth"
)

// newTokenCmd issues bearer tokens for operators and local testing; end-user
// authentication happens in an external identity provider.
func newTokenCmd() *cobra.Command {
	var (
		email  string
		roles  []string
		expiry time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a signed access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(args[0], email, roles, expiry)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role claims (informational; authorization reads user_roles)")
	cmd.Flags().DurationVar(&expiry, "expiry", 24*time.Hour, "token lifetime")
	return cmd
}
