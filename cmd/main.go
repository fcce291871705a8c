package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"salon_queue/cmd/command"
	_ "salon_queue/docs"
	"salon_queue/internal/config"
)

// @Title						Salon walk-in queue API
// @Description				Walk-in queue for the salon dashboard and customer app
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithContext(ctx).Fatal(err)
	}

	logger.SetLevel(cfg.Level())
	if cfg.AppEnv == config.ProductionEnv {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	root := &cobra.Command{Short: "Salon walk-in queue service"}
	root.AddCommand(
		command.Server{Logger: logger}.Command(ctx, cfg),
		command.MigrateCommand{Logger: logger}.Command(ctx, cfg),
		command.ResetCommand{Logger: logger}.Command(ctx, cfg),
		command.TokenCommand{Logger: logger}.Command(ctx, cfg),
	)

	if err := root.Execute(); err != nil {
		logger.WithContext(ctx).Fatalf("failed to execute root command: \n%v", err)
	}
}
