package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-booking/internal/api"
	"github.com/sanosuguru/go-venue-booking/internal/api/handler"
	custommiddleware "github.com/sanosuguru/go-venue-booking/internal/api/middleware"
	"github.com/sanosuguru/go-venue-booking/internal/application"
	"github.com/sanosuguru/go-venue-booking/internal/config"
	"github.com/sanosuguru/go-venue-booking/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-venue-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-venue-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-venue-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-venue-booking/internal/queue"
	"github.com/sanosuguru/go-venue-booking/internal/worker"
)

func main() {
	// .env ファイルがあれば読み込む（＝ローカル開発用。本番では環境変数を直接設定）
	_ = godotenv.Load()

	cfg := config.Load()
	defer logger.Sync()

	m := metrics.Init()

	// DB接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("DB接続に失敗", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db.DB, "migrations"); err != nil {
		logger.Fatal("マイグレーションに失敗", zap.Error(err))
	}

	// Redis接続（任意。未接続ならキャッシュなしで動作する）
	var cache application.AvailabilityCache
	var countCache worker.CountCache
	redisClient, err := redisinfra.NewClient(context.Background(), &redisinfra.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Redis接続に失敗（キャッシュ無効で継続）", zap.Error(err))
	} else {
		defer redisClient.Close()
		availabilityCache := redisinfra.NewAvailabilityCache(redisClient)
		cache = availabilityCache
		countCache = availabilityCache
	}

	// キュー接続（任意。AMQP_URL 未設定なら通知なしで動作する）
	var publisher application.BookingEventPublisher
	if cfg.Queue.Enabled() {
		p, err := queue.NewPublisher(cfg.Queue.URL)
		if err != nil {
			logger.Warn("キュー接続に失敗（イベント通知無効で継続）", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	// リポジトリとサービス
	seatRepo := postgres.NewSeatRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	txManager := postgres.NewTxManager(db)
	storeInit := postgres.NewStoreInitializer(db)

	bookingService := application.NewBookingService(txManager, seatRepo, categoryRepo, bookingRepo, cache, publisher)
	adminService := application.NewStoreAdminService(storeInit, categoryRepo, cache)

	sessions := func() handler.BookingSessionInterface {
		return bookingService.NewSession()
	}

	bookingHandler := handler.NewBookingHandler(sessions)
	seatHandler := handler.NewSeatHandler(sessions)
	adminHandler := handler.NewAdminHandler(adminService)
	healthHandler := handler.NewHealthHandler()

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	custommiddleware.SetupMiddleware(e)
	e.Use(custommiddleware.PrometheusMiddleware(m))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommiddleware.MetricsBasicAuth())

	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)
	v1.GET("/seats", seatHandler.ListAvailable)
	v1.GET("/seats/available/count", seatHandler.CountAvailable)
	v1.GET("/prices", adminHandler.Prices)
	v1.POST("/bookings/count", bookingHandler.BookByCount)
	v1.POST("/bookings/seats", bookingHandler.BookBySeats)
	v1.GET("/bookings", bookingHandler.List)
	v1.POST("/bookings/cancel", bookingHandler.Cancel)
	v1.POST("/admin/datastore", adminHandler.InitDataStore)

	// 空席数リフレッシャーをバックグラウンドで起動
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	refresher := worker.NewAvailabilityRefresher(seatRepo, countCache, cfg.Venue.RefreshInterval)
	go refresher.Start(workerCtx)

	// サーバー起動
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	cancelWorker()
	refresher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
