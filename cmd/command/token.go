package command

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"salon_queue/internal/auth"
	"salon_queue/internal/config"
)

type TokenCommand struct {
	Logger *logrus.Logger
}

func (cmd TokenCommand) Command(_ context.Context, cfg *config.Config) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	c := &cobra.Command{
		Use:   "token",
		Short: "issue an access token for a staff dashboard or kiosk",
		RunE: func(c *cobra.Command, _ []string) error {
			token, err := auth.GenerateToken([]byte(cfg.Auth.AccessSecret), userID, role, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.OutOrStdout(), token)
			return err
		},
	}
	c.Flags().StringVar(&userID, "user", "", "subject of the token")
	c.Flags().StringVar(&role, "role", auth.RoleAdmin, "role claim")
	c.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = c.MarkFlagRequired("user")
	return c
}
