package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openharvest/fieldcache/internal/cache"
	"github.com/openharvest/fieldcache/internal/config"
	"github.com/openharvest/fieldcache/internal/drafts"
	"github.com/openharvest/fieldcache/internal/kvstore"
	"github.com/openharvest/fieldcache/internal/logging"
	"github.com/openharvest/fieldcache/internal/server"
	"github.com/openharvest/fieldcache/internal/session"
	"github.com/openharvest/fieldcache/internal/survey"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fieldcache-api",
		Short: "Offline cache and draft-resume service for field data collection",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("storage-backend", defaults.GetString("storage.backend"), "Storage backend (badger, sqlite, memory)")
	cmd.PersistentFlags().String("storage-path", defaults.GetString("storage.path"), "Storage directory or database file")
	cmd.PersistentFlags().Int("cache-ceiling-mb", defaults.GetInt("cache.ceiling_mb"), "Flat cache ceiling in megabytes")
	cmd.PersistentFlags().Float64("chunk-budget-mb", defaults.GetFloat64("cache.chunk_budget_mb"), "Chunk budget in megabytes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "storage.backend", "storage-backend")
	bindFlag(cmd, "storage.path", "storage-path")
	bindFlag(cmd, "cache.ceiling_mb", "cache-ceiling-mb")
	bindFlag(cmd, "cache.chunk_budget_mb", "chunk-budget-mb")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func openBackend(appConfig config.AppConfig, logger *zap.Logger) (kvstore.Store, io.Closer, error) {
	switch appConfig.StorageBackend {
	case config.BackendBadger:
		store, err := kvstore.OpenBadger(kvstore.BadgerConfig{
			Path:       appConfig.StoragePath,
			SyncWrites: true,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.BackendSQLite:
		store, err := kvstore.OpenSQLite(appConfig.StoragePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return kvstore.NewMemory(), nil, nil
	}
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	backend, closer, err := openBackend(appConfig, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	storeConfig := cache.StoreConfig{
		Backend:       backend,
		CeilingBytes:  appConfig.CeilingBytes(),
		ChunkBudgetMB: appConfig.ChunkBudgetMB,
		Logger:        logger,
	}
	bankStore, err := cache.NewQuestionBankStore(storeConfig)
	if err != nil {
		return err
	}
	generatedStore, err := cache.NewGeneratedQuestionStore(storeConfig)
	if err != nil {
		return err
	}
	draftStore, err := drafts.NewStore(drafts.StoreConfig{Backend: backend, Logger: logger})
	if err != nil {
		return err
	}
	generator, err := survey.NewGenerator(survey.GeneratorConfig{
		IDProvider: survey.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	sessions, err := session.NewService(session.ServiceConfig{
		Bank:      bankStore,
		Generated: generatedStore,
		Drafts:    draftStore,
		Generator: generator,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Sessions: sessions,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("backend", appConfig.StorageBackend))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
