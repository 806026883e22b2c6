package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sc941432/Atlan/internal/api"
	"github.com/sc941432/Atlan/internal/api/handler"
	"github.com/sc941432/Atlan/internal/api/middleware"
	"github.com/sc941432/Atlan/internal/application"
	"github.com/sc941432/Atlan/internal/config"
	"github.com/sc941432/Atlan/internal/infrastructure/postgres"
	"github.com/sc941432/Atlan/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sc941432/Atlan/internal/infrastructure/redis"
	"github.com/sc941432/Atlan/internal/pkg/logger"
	"github.com/sc941432/Atlan/internal/pkg/metrics"
	"github.com/sc941432/Atlan/internal/worker"
)

func main() {
	// .env があれば読み込む（本番は環境変数のみ）
	_ = godotenv.Load()

	cfg := config.Load()

	logger.Set(logger.NewLogger(cfg.Server.Env))
	defer logger.Sync()

	m := metrics.Init()

	// DB接続とマイグレーション
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db.DB, "migrations"); err != nil {
		logger.Fatal("マイグレーション実行に失敗しました", zap.Error(err))
	}

	// Redis接続（任意。落ちていてもキャッシュ・レート制限なしで稼働する）
	var statsCache application.StatsCache
	redisClient := redisinfra.NewClient(&cfg.Redis)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisinfra.Ping(ctx, redisClient); err != nil {
			logger.Warn("Redisに接続できないためキャッシュとレート制限を無効化します", zap.Error(err))
			redisClient = nil
		} else {
			statsCache = redisinfra.NewStatsCache(redisClient)
		}
		cancel()
	}

	// RabbitMQ接続（任意。URL未設定または接続失敗時はイベント発行なしで稼働する）
	var publisher application.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.NewPublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn("RabbitMQに接続できないためイベント発行を無効化します", zap.Error(err))
		} else {
			publisher = pub
			defer pub.Close()
		}
	}

	// リポジトリ
	txManager := postgres.NewTxManager(db)
	eventRepo := postgres.NewEventRepository(db)
	seatRepo := postgres.NewSeatRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// サービス
	promoter := application.NewWaitlistPromoter(txManager, bookingRepo, eventRepo, seatRepo, statsCache, publisher, m)
	bookingService := application.NewBookingService(txManager, bookingRepo, eventRepo, seatRepo, promoter, statsCache, publisher, m, cfg.Booking.SeedSeatsPerRow)
	eventService := application.NewEventService(txManager, eventRepo, seatRepo, bookingRepo, promoter, statsCache)
	seatService := application.NewSeatService(txManager, seatRepo, eventRepo, statsCache)
	analyticsService := application.NewAnalyticsService(eventRepo, bookingRepo, statsCache, cfg.Booking.StatsCacheTTL)

	// ハンドラー
	eventHandler := handler.NewEventHandler(eventService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	seatHandler := handler.NewSeatHandler(seatService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	healthHandler := handler.NewHealthHandler()

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	e.GET("/health", healthHandler.Check)

	v1 := e.Group("/api/v1")
	v1.Use(middleware.Identity(userRepo))
	v1.Use(middleware.RateLimit(redisClient, cfg.Booking.RateLimitPerMinute))

	v1.GET("/events", eventHandler.List)
	v1.GET("/events/:id", eventHandler.GetByID)
	v1.GET("/events/:id/seats", seatHandler.ListByEvent)
	v1.GET("/events/:id/availability", seatHandler.CountAvailable)

	v1.POST("/bookings", bookingHandler.Create)
	v1.GET("/bookings", bookingHandler.ListMine)
	v1.GET("/bookings/:id", bookingHandler.GetByID)
	v1.DELETE("/bookings/:id", bookingHandler.Cancel)

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/events", eventHandler.Create)
	admin.PUT("/events/:id", eventHandler.Update)
	admin.POST("/events/:id/deactivate", eventHandler.Deactivate)
	admin.DELETE("/events/:id", eventHandler.Delete)
	admin.POST("/events/:id/seats", seatHandler.GenerateGrid)
	admin.GET("/analytics/summary", analyticsHandler.Summary)

	// 集計キャッシュウォーマー（間隔0で無効）
	warmerCtx, stopWarmer := context.WithCancel(context.Background())
	defer stopWarmer()
	if statsCache != nil && cfg.Booking.StatsWarmInterval > 0 {
		warmer := worker.NewStatsWarmer(analyticsService, cfg.Booking.StatsWarmInterval)
		go warmer.Start(warmerCtx)
	}

	// サーバー起動
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動に失敗しました", zap.Error(err))
		}
	}()

	logger.Info("サーバーを起動しました",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env),
	)

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています")
	stopWarmer()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
