package main

import (
	"fmt"
	"strings"
	"time"

	"mindmap-backend/infrastructure/di"

	"github.com/spf13/cobra"
)

func (a *app) tokenCommand() *cobra.Command {
	var (
		email  string
		roles  string
		expiry time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token for the owner",
		Long: `Sign a bearer token the API accepts for --owner, using JWT_SECRET or the
development secret outside production.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireOwner(); err != nil {
				return err
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			generator, err := di.ProvideJWTGenerator(cfg, expiry)
			if err != nil {
				return err
			}
			var roleList []string
			for _, r := range strings.Split(roles, ",") {
				if r = strings.TrimSpace(r); r != "" {
					roleList = append(roleList, r)
				}
			}
			token, err := generator.GenerateToken(a.owner, email, roleList)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&roles, "roles", "user", "comma separated roles")
	cmd.Flags().DurationVar(&expiry, "expiry", 24*time.Hour, "token lifetime")
	return cmd
}
