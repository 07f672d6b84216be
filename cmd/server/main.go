// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/config"
	"github.com/javajoker/tastecert-backend/internal/database"
	"github.com/javajoker/tastecert-backend/internal/i18n"
	"github.com/javajoker/tastecert-backend/internal/router"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tastecert",
		Short:         "Product certification backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(), migrateCmd(), seedCmd(), versionCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	var memory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			var db *gorm.DB
			if memory {
				db, err = database.OpenInMemory()
				if err == nil {
					err = seed(db)
				}
			} else {
				db, err = openAndMigrate(cfg)
			}
			if err != nil {
				return err
			}
			defer database.Close(db)

			return serve(cfg, db)
		},
	}

	cmd.Flags().BoolVar(&memory, "memory", false, "Use a throwaway in-memory SQLite database")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			db, err := openAndMigrate(cfg)
			if err != nil {
				return err
			}
			database.Close(db)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default admin account and categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			db, err := openAndMigrate(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			return seed(db)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tastecert version %s\n", router.Version)
		},
	}
}

// setup loads configuration and applies it to logging and i18n.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	configureLogging(cfg)

	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		return nil, fmt.Errorf("failed to initialize i18n: %w", err)
	}

	return cfg, nil
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Log.Format == "json" || (cfg.Log.Format == "" && cfg.IsProduction()) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func openAndMigrate(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.RunMigrations(db); err != nil {
		database.Close(db)
		return nil, err
	}
	return db, nil
}

func seed(db *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@tastecert.org"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe123"
		logrus.Warn("ADMIN_PASSWORD not set, using the default admin password")
	}

	return database.SeedInitialData(db, email, password)
}

func serve(cfg *config.Config, db *gorm.DB) error {
	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := router.Initialize(db, cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrus.Info("Server exited")
	return nil
}
