package main

import (
	"fmt"
	"time"

	"github.com/areduca/classbuilder/internal/auth"
	"github.com/areduca/classbuilder/internal/config"
	"github.com/spf13/cobra"
)

var (
	tokenOwner string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an owner with the configured auth.secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		authCfg := config.GetAuthConfig()
		token, err := auth.Issue(authCfg.Secret, authCfg.Issuer, tokenOwner, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOwner, "owner", "", "owner id carried as the token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("owner")
}
