package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/config"
	"github.com/nebulachat/backend/internal/handler"
	"github.com/nebulachat/backend/internal/logger"
	"github.com/nebulachat/backend/internal/service/ai"
	authservice "github.com/nebulachat/backend/internal/service/auth"
	chatservice "github.com/nebulachat/backend/internal/service/chat"
	prefsservice "github.com/nebulachat/backend/internal/service/prefs"
	"github.com/nebulachat/backend/internal/service/session"
	"github.com/nebulachat/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dotenvErr := godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if dotenvErr != nil {
		logger.Log.Info("dotenv_not_loaded_using_system_env", zap.Error(dotenvErr))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("load_config_failed", zap.Error(err))
	}

	st, err := store.OpenPebble(cfg.Storage.Path)
	if err != nil {
		logger.Log.Fatal("open_state_db_failed", zap.Error(err))
	}
	defer st.Close()

	chatSvc, err := chatservice.NewService(st)
	if err != nil {
		logger.Log.Fatal("init_chat_service_failed", zap.Error(err))
	}
	authSvc, err := authservice.NewService(st)
	if err != nil {
		logger.Log.Fatal("init_auth_service_failed", zap.Error(err))
	}
	prefsSvc, err := prefsservice.NewService(st)
	if err != nil {
		logger.Log.Fatal("init_prefs_service_failed", zap.Error(err))
	}

	var controller *session.Controller
	if cfg.AI.Enabled() {
		client, err := ai.NewClient(ctx, cfg.AI)
		if err != nil {
			logger.Log.Warn("init_ai_client_failed", zap.Error(err))
		} else {
			controller = session.NewController(chatSvc, client)
			logger.Log.Info("ai_client_initialized")
		}
	} else {
		logger.Log.Warn("ai_credentials_missing_streaming_disabled")
	}

	router := handler.NewRouter(chatSvc, authSvc, prefsSvc, controller)
	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Log.Info("server_listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Log.Fatal("server_error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
