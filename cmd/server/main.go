package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"civicReporting/internal/auth"
	"civicReporting/internal/config"
	"civicReporting/internal/db"
	grpcserver "civicReporting/internal/grpc"
	"civicReporting/internal/logging"
	"civicReporting/internal/metrics"
	"civicReporting/internal/upload"
	"civicReporting/internal/web"
	"civicReporting/repository"
)

var devMode bool

func main() {
	root := &cobra.Command{
		Use:           "civic",
		Short:         "Civic issue reporting server and admin tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&devMode, "dev", false, "fall back to the development secret when SECRET_KEY/JWT_SECRET are unset")

	root.AddCommand(serveCmd())
	root.AddCommand(userCmd())
	root.AddCommand(dbCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if devMode {
		return config.LoadWithDefaults()
	}
	return config.Load()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (and the gRPC health endpoint when GRPC_ADDRESS is set)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Server.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("configuration loaded", zap.Stringer("config", cfg))
	if cfg.UsesDevSecret() {
		logger.Warn("using the development secret; set SECRET_KEY and JWT_SECRET in production")
	}

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("close db", zap.Error(err))
		}
	}()

	store, objects, err := photoStore(ctx, cfg)
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(d)
	issues := repository.NewIssueRepository(d)
	authSvc, err := auth.NewService(users, auth.PasswordHasher{})
	if err != nil {
		return err
	}

	deps := web.Deps{
		Config:  cfg,
		Auth:    authSvc,
		Issues:  issues,
		Intake:  upload.NewIntake(store, upload.Options{AllowedExtensions: cfg.Upload.AllowedExtensions, MaxBytes: cfg.Upload.MaxBytes, UniqueNames: cfg.Upload.UniqueNames}),
		Metrics: metrics.New("civic"),
		Logger:  logger,
		Store:   d,
		Objects: objects,
	}
	router, err := web.NewRouter(deps)
	if err != nil {
		return err
	}

	stopHTTP, err := web.Start(cfg.Server.Address, router, logger)
	if err != nil {
		return fmt.Errorf("start http: %w", err)
	}
	logger.Info("http server listening", zap.String("addr", cfg.Server.Address))

	var stopGRPC func(context.Context) error
	if cfg.GRPC.Address != "" {
		_, stopGRPC, err = grpcserver.Start(ctx, cfg.GRPC.Address, d, logger)
		if err != nil {
			return fmt.Errorf("start grpc: %w", err)
		}
		logger.Info("grpc health listening", zap.String("addr", cfg.GRPC.Address))
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stopHTTP(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if stopGRPC != nil {
		if err := stopGRPC(shutdownCtx); err != nil {
			logger.Error("grpc shutdown", zap.Error(err))
		}
	}
	return nil
}

// photoStore builds the configured upload backend. objects is non-nil only for
// object storage, which the web layer proxies.
func photoStore(ctx context.Context, cfg *config.Config) (upload.Store, web.ObjectReader, error) {
	if cfg.Upload.Backend == config.BackendMinio {
		m := cfg.Upload.Minio
		ms, err := upload.NewMinioStore(upload.MinioOptions{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		bctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := ms.EnsureBucket(bctx); err != nil {
			return nil, nil, err
		}
		return ms, ms, nil
	}
	ds, err := upload.NewDiskStore(cfg.Upload.Dir)
	if err != nil {
		return nil, nil, err
	}
	return ds, nil, nil
}
