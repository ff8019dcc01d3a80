package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/saasbilling/pkg/config"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
)

// newTokenCmd mints caller tokens for local development against --memory.
func newTokenCmd() *cobra.Command {
	var (
		caller identity.Caller
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for a development caller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg identity.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			token, err := identity.NewVerifier(cfg).Sign(caller, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&caller.UID, "uid", "", "caller uid")
	f.StringVar(&caller.Email, "email", "", "caller email")
	f.BoolVar(&caller.EmailVerified, "verified", true, "mark the email as verified")
	f.StringVar(&caller.Name, "name", "", "display name")
	f.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
