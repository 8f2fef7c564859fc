package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/api"
	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/config"
	"github.com/erazemk/auditit/internal/db"
	"github.com/erazemk/auditit/internal/imaging"
	"github.com/erazemk/auditit/internal/lifecycle"
	"github.com/erazemk/auditit/internal/metrics"
	"github.com/erazemk/auditit/internal/photos"
	"github.com/erazemk/auditit/internal/sso"
	"github.com/erazemk/auditit/internal/store"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var adminName string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			log, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			return serve(cmd.Context(), cfg, adminName, log)
		},
	}

	cmd.Flags().StringVarP(&adminName, "admin", "u", "Admin", "admin account name when the database is created on first run")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, adminName string, log *zap.Logger) error {
	// Check if DB exists, auto-init if not.
	if cfg.DB.Path != db.MemoryPath {
		if _, err := os.Stat(cfg.DB.Path); errors.Is(err, fs.ErrNotExist) {
			database, password, err := initDatabase(ctx, cfg.DB.Path, adminName, log)
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			database.Close()

			printInitResult(cfg.DB.Path, adminName, password)
			fmt.Println()
		}
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, log); err != nil {
		return err
	}
	log.Info("database ready", zap.String("path", cfg.DB.Path))

	secret := cfg.JWT.Secret
	if secret == "" {
		// Generated on first run and kept in the database.
		secret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return err
		}
	}

	m := metrics.New()

	deps := api.Deps{
		DB: database,
		Engine: lifecycle.New(database,
			lifecycle.WithStrictTransitions(cfg.Lifecycle.StrictTransitions),
			lifecycle.WithMetrics(m),
		),
		Signer: auth.NewSigner(secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.Expiry),
		Images: imaging.Processor{
			MaxDimension: cfg.Photos.MaxDimension,
			JPEGQuality:  cfg.Photos.JPEGQuality,
			MaxBytes:     cfg.Photos.MaxUploadBytes,
		},
		Logger:         log,
		Metrics:        m,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      cfg.HTTP.RateLimit,
	}

	dingtalk := sso.New(sso.Config{
		AppKey:    cfg.DingTalk.AppKey,
		AppSecret: cfg.DingTalk.AppSecret,
		APIBase:   cfg.DingTalk.APIBase,
		OAPIBase:  cfg.DingTalk.OAPIBase,
	})
	if dingtalk.Configured() {
		deps.SSO = dingtalk
	} else {
		log.Warn("dingtalk credentials not set, sso login disabled")
	}

	if err := setupPhotos(ctx, cfg.Photos, &deps); err != nil {
		return err
	}
	log.Info("photo storage ready", zap.String("backend", cfg.Photos.Backend))

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}

	log.Info("server stopped, closing database")
	return nil
}

// setupPhotos picks the photo backend named in cfg.
func setupPhotos(ctx context.Context, cfg config.PhotosConfig, deps *api.Deps) error {
	switch cfg.Backend {
	case "s3":
		s3Store, err := photos.NewS3(ctx, photos.S3Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			KeyPrefix:      cfg.S3.KeyPrefix,
			PublicURL:      cfg.S3.PublicURL,
		})
		if err != nil {
			return err
		}
		deps.Photos = s3Store
	default:
		fsStore, err := photos.NewFS(cfg.Dir, cfg.URLPrefix)
		if err != nil {
			return err
		}
		deps.Photos = fsStore
		deps.PhotoFiles = fsStore.Handler()
		deps.PhotoPrefix = fsStore.Prefix()
	}
	return nil
}
