package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/parla-app/parla/internal/api"
	"github.com/parla-app/parla/internal/api/handlers"
	"github.com/parla-app/parla/internal/auth"
	"github.com/parla-app/parla/internal/cache"
	"github.com/parla-app/parla/internal/config"
	"github.com/parla-app/parla/internal/db"
	"github.com/parla-app/parla/internal/translate"
)

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.GeneratedSecret {
		logger.Warn("No JWT secret configured, using a random one; sessions will not survive a restart")
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.Server.DataPath, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	database, err := db.NewSQLite(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer database.Close()

	if err := database.EnsureAdmin(cfg.Server.AdminUsername, cfg.Server.AdminPassword); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.Info("Admin user ensured", zap.String("username", cfg.Server.AdminUsername))

	var translationCache translate.Cache
	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		translationCache = cache.NewTranslationCache(client, cfg.Redis.TTLDuration(), logger)
		logger.Info("Translation cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	service := translate.NewService(
		translationEngines(cfg.Translate, database, logger),
		func() string { return database.GetSetting(handlers.KeyTranslateEngine, cfg.Translate.Engine) },
		translationCache,
		logger,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(ctx, database, auth.NewJWTService(cfg.Server.JWTSecret), service, cfg.Server, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownDuration())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// translationEngines registers every engine with a key. The Gemini model can
// be changed at runtime through the settings table.
func translationEngines(cfg config.Translate, database *db.Database, logger *zap.Logger) []translate.Translator {
	var engines []translate.Translator
	if cfg.DeepLKey != "" {
		engines = append(engines, translate.NewDeepLTranslator(cfg.DeepLKey, ""))
	}
	if cfg.OpenAIKey != "" {
		engines = append(engines, translate.NewOpenAITranslator(cfg.OpenAIKey, cfg.OpenAIModel, ""))
	}
	if cfg.GeminiKey != "" {
		model := func() string { return database.GetSetting(handlers.KeyGeminiModel, cfg.GeminiModel) }
		engines = append(engines, translate.NewGeminiTranslator(cfg.GeminiKey, model, "", logger))
	}
	if len(engines) == 0 {
		logger.Warn("No translation engine configured, using the mock engine")
	}
	return engines
}
