package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/taskfi-backend/internal/config"
	"github.com/ignatzorin/taskfi-backend/internal/db"
	"github.com/ignatzorin/taskfi-backend/internal/gateway"
	"github.com/ignatzorin/taskfi-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/taskfi-backend/internal/http/handlers"
	"github.com/ignatzorin/taskfi-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/taskfi-backend/internal/http/router"
	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/reconcile"
	"github.com/ignatzorin/taskfi-backend/internal/repository"
	"github.com/ignatzorin/taskfi-backend/internal/service"
	"github.com/ignatzorin/taskfi-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(dbConn); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
		defer rdb.Close()
	}
	limitStore, err := middleware.NewRateLimitStore(rdb)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	store := repository.NewStore(dbConn, cfg.TxMaxRetries)
	settlement := gateway.NewHTTPClient(gateway.HTTPConfig{
		BaseURL: cfg.Gateway.URL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
		RPS:     cfg.Gateway.RPS,
	})

	// Вебсокеты получают уведомления только после коммита.
	hub := ws.NewHub()
	hubDone := make(chan struct{})
	goroutine.SafeGo("ws.hub", func() {
		defer close(hubDone)
		hub.Run(ctx)
	})

	// Сервисы.
	admissionService := service.NewAdmissionService(store, hub)
	escrowService := service.NewEscrowService(store, settlement, hub, service.EscrowConfig{
		GatewayTimeout: cfg.Gateway.Timeout,
		GracePeriod:    cfg.Escrow.GracePeriod,
	})
	gigService := service.NewGigService(store, hub)
	notificationService := service.NewNotificationService(store.Notifications())
	userService := service.NewUserService(store)

	reconciler := reconcile.New(store.Settlements(), store.Payments(), escrowService, reconcile.Config{
		Schedule: cfg.Reconcile.Schedule,
		MinAge:   cfg.Reconcile.MinAge,
	})
	reconcileDone := make(chan struct{})
	goroutine.SafeGoWithContext(ctx, "reconcile", func(ctx context.Context) {
		defer close(reconcileDone)
		if err := reconciler.Start(ctx); err != nil {
			logger.Log.WithError(err).Error("main: сверка не запущена")
		}
	})

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Jobs:          httpHandlers.NewJobHandler(admissionService),
		Gigs:          httpHandlers.NewGigHandler(gigService),
		Payments:      httpHandlers.NewPaymentHandler(escrowService),
		Notifications: httpHandlers.NewNotificationHandler(notificationService),
		Users:         httpHandlers.NewUserHandler(userService),
		WS:            httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:        httpHandlers.NewHealthHandler(dbConn, rdb),
	}, tokenManager, limitStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo("http.shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.Log.Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	<-hubDone
	<-reconcileDone
	logger.Log.Info("main: сервер остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithError(err).Error("main: ошибка закрытия базы")
	}
}
