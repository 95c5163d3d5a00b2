package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourorg/paypal-checkout/internal/config"
)

var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:     "paypal-checkout",
		Short:   "PayPal deferred-capture checkout gateway",
		Version: Version,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().Bool("debug", false, "development logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			shutdownTracing, err := setupTracing(os.Stdout)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = shutdownTracing(ctx)
			}()

			deps, err := newDependencies(cfg, logger)
			if err != nil {
				return err
			}

			debug, _ := cmd.Flags().GetBool("debug")
			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: setupRouter(deps)}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", zap.String("addr", cfg.Server.Addr), zap.String("paypal_server", cfg.PayPal.Server))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the checkout order table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Database.DSN == "" {
				return errors.New("migrate: database.dsn is not configured")
			}
			if _, err := openRepository(cfg.Database.DSN); err != nil {
				return err
			}
			logger.Info("checkout order table migrated")
			return nil
		},
	}
}

// bootstrap loads the configuration and builds the logger shared by all commands.
func bootstrap(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(debug)
	if err != nil {
		log.Printf("Failed to build logger: %v", err)
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
