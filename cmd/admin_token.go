package cmd

import (
	"errors"
	"fmt"
	"time"

	"rallyrent/config"
	"rallyrent/utils"

	"github.com/spf13/cobra"
)

func newAdminTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	c := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint a bearer token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set to mint admin tokens")
			}
			token, err := utils.GenerateAdminToken([]byte(cfg.JWTSecret), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	c.Flags().StringVar(&subject, "subject", "", "Operator identity recorded on admin actions (required)")
	c.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	_ = c.MarkFlagRequired("subject")
	return c
}
