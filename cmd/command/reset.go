package command

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"salon_queue/internal/config"
)

type ResetCommand struct {
	Logger *logrus.Logger
}

func (cmd ResetCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	var yes bool
	c := &cobra.Command{
		Use:   "reset",
		Short: "close out every waiting entry and set the serving counter to 0 (no undo)",
		RunE: func(_ *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset cannot be undone; pass --yes to confirm")
			}
			return cmd.main(cfg, ctx)
		},
	}
	c.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return c
}

func (cmd ResetCommand) main(cfg *config.Config, ctx context.Context) error {
	rt, err := buildRuntime(ctx, cfg, cmd.Logger)
	if err != nil {
		return errors.Wrap(err, "reset : failed to build runtime")
	}
	defer rt.Close(cmd.Logger)

	res, err := rt.engine.Reset(ctx)
	if err != nil {
		return err
	}
	cmd.Logger.WithContext(ctx).WithFields(logrus.Fields{
		"deactivated": res.Deactivated,
		"reset_at":    res.ResetAt,
	}).Info("reset : queue reset")
	return nil
}
