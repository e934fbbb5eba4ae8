package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/guessgame/internal/config"
	"github.com/mcoot/guessgame/internal/factory"
	"github.com/mcoot/guessgame/internal/server"
	"github.com/mcoot/guessgame/internal/telemetry"
	"github.com/mcoot/guessgame/internal/web"
	"github.com/mcoot/guessgame/internal/web/middleware"
)

const (
	serviceName   = "guessgame"
	pruneInterval = time.Minute
)

func newServeCmd() *cobra.Command {
	var (
		port        int
		storageType string
		staticDir   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web frontend",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := config.Load(cfg.EnvFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				appCfg.Port = port
			}
			if cmd.Flags().Changed("storage") {
				appCfg.StorageType = storageType
				if err := appCfg.Validate(); err != nil {
					return err
				}
			}
			return runServe(cmd.Context(), appCfg, staticDir)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Listen port (env: GUESSGAME_PORT)")
	cmd.Flags().StringVar(&storageType, "storage", factory.StorageTypeMemory, "Storage backend: memory, redis (env: STORAGE_TYPE)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "Serve files under /static/ from this directory")

	return cmd
}

func runServe(ctx context.Context, appCfg config.Config, staticDir string) error {
	logger := appCfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, appCfg.OTelEndpoint, appCfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	factoryCfg, err := appCfg.Factory(logger)
	if err != nil {
		return err
	}
	app, err := factory.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() { _ = app.Close() }()

	router := web.NewRouter(web.RouterConfig{
		Logger:          logger,
		IdentityManager: app.IdentityManager,
		GameController:  app.GameController,
		Random:          app.Random,
		Session: middleware.SessionOptions{
			Secure: appCfg.SecureCookies,
			MaxAge: int(appCfg.SessionIdle.Seconds()),
		},
		StaticDir: staticDir,
	})

	serverCfg := server.DefaultConfig()
	serverCfg.Addr = appCfg.Addr()
	if appCfg.CallTimeout+15*time.Second > serverCfg.WriteTimeout {
		serverCfg.WriteTimeout = appCfg.CallTimeout + 15*time.Second
	}
	srv := server.New(router, serverCfg, logger)

	go app.Sessions.RunPruner(ctx, pruneInterval, appCfg.SessionIdle, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("server started",
		slog.String("addr", srv.Addr()),
		slog.String("network", appCfg.Network),
		slog.String("storage", appCfg.StorageType),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := srv.Shutdown(context.Background()); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}
