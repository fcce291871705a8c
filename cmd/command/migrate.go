package command

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"salon_queue/internal/config"
	"salon_queue/internal/storage"
)

type MigrateCommand struct {
	Logger *logrus.Logger
}

func (cmd MigrateCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create the queue tables and seed the settings row",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.main(cfg, ctx)
		},
	}
}

func (cmd MigrateCommand) main(cfg *config.Config, ctx context.Context) error {
	if cfg.StoreDriver != config.DriverPostgres {
		return errors.Errorf("migrate : nothing to migrate for STORE_DRIVER=%s", cfg.StoreDriver)
	}

	db, err := storage.ConnectDatabase(cfg.Postgres, cmd.Logger)
	if err != nil {
		return errors.Wrap(err, "migrate : failed to connect to postgresql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "migrate : postgres handle")
	}
	defer sqlDB.Close()

	if err := storage.Migrate(db.WithContext(ctx)); err != nil {
		return err
	}
	cmd.Logger.WithContext(ctx).Info("migrate : done")
	return nil
}
