package command

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"salon_queue/internal/auth"
	"salon_queue/internal/config"
	"salon_queue/internal/handlers"
	"salon_queue/internal/tasks"
	"salon_queue/internal/ws"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Logger *logrus.Logger
}

func (cmd Server) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "run the queue API, dashboard websocket and scheduled reset",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.main(cfg, ctx)
		},
	}
}

func (cmd Server) main(cfg *config.Config, ctx context.Context) error {
	if cfg.Auth.AccessSecret == "" {
		return errors.New("server : JWT_ACCESS_SECRET is required")
	}

	rt, err := buildRuntime(ctx, cfg, cmd.Logger)
	if err != nil {
		return errors.Wrap(err, "server : failed to build runtime")
	}
	defer rt.Close(cmd.Logger)

	scheduler, err := tasks.InitScheduler(ctx, cfg.Queue.AutoResetCron, rt.engine, cmd.Logger)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	hub := ws.NewHub(cmd.Logger)
	relay := ws.NewRelay(rt.feed, rt.engine, hub, cfg.Queue.PollInterval, cmd.Logger)

	if cfg.AppEnv == config.ProductionEnv {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(cmd.Logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		ExposeHeaders:   []string{"Content-Length"},
	}))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	handlers.Routes(r,
		handlers.NewQueueHandler(rt.engine, cmd.Logger),
		relay.ServeWS,
		auth.AuthMiddleware([]byte(cfg.Auth.AccessSecret)),
		auth.AdminOnly(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return serve(gctx, fmt.Sprintf(":%d", cfg.HTTP.Port), r, cmd.Logger) })

	if err := g.Wait(); err != nil {
		return err
	}
	cmd.Logger.Info("server : stopped")
	return nil
}

func serve(ctx context.Context, address string, handler http.Handler, logger *logrus.Logger) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Infof("rest server starting at: %s", address)
	srvError := make(chan error, 1)
	go func() {
		srvError <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("rest server is shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-srvError:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server : listen")
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}
