package main

import (
	"context"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/studio_booking/internal/app"
	"github.com/Freeeeeet/studio_booking/internal/audit"
	"github.com/Freeeeeet/studio_booking/internal/cache"
	"github.com/Freeeeeet/studio_booking/internal/config"
	"github.com/Freeeeeet/studio_booking/internal/identity"
	"github.com/Freeeeeet/studio_booking/internal/mq"
	"github.com/Freeeeeet/studio_booking/internal/notify"
	"github.com/Freeeeeet/studio_booking/internal/repository"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/Freeeeeet/studio_booking/migrations"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting studio booking core", zap.String("environment", cfg.Environment))

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := runMigrations(ctx, pool, cfg, logger); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	db := base.NewRepository(pool)
	txManager := base.NewTxManager(pool, cfg.TxMaxRetries, logger)

	scheduleRepo := repository.NewScheduleRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	userRepo := repository.NewUserRepository(db)
	classTypeRepo := repository.NewClassTypeRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Redis необязателен: без него справочник читается напрямую из базы
	redisClient := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient == nil && cfg.RedisAddr != "" {
		logger.Warn("Redis is unavailable, class type cache disabled", zap.String("addr", cfg.RedisAddr))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	classTypes := cache.NewClassTypeCache(classTypeRepo, redisClient, cfg.ClassTypeCacheTTL, logger)
	if err := classTypes.Warm(ctx); err != nil {
		logger.Warn("Failed to warm class type cache", zap.Error(err))
	}

	var auditPublisher audit.Publisher
	sinks := []notify.Sink{notify.NewStoreSink(notificationRepo)}

	if cfg.AMQPURL != "" {
		publisher, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("RabbitMQ is unavailable, event publishing disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			auditPublisher = publisher
			sinks = append(sinks, notify.NewAMQPSink(publisher))
		}
	}

	if cfg.TelegramToken != "" {
		telegram, err := bot.New(cfg.TelegramToken)
		if err != nil {
			logger.Warn("Telegram bot is unavailable, telegram notifications disabled", zap.Error(err))
		} else {
			sinks = append(sinks, notify.NewTelegramSink(telegram, userRepo))
		}
	}

	// Фоновые обработчики не должны обрываться вместе с сигналом: Stop дописывает очереди
	workerCtx := context.WithoutCancel(ctx)

	recorder := audit.NewRecorder(activityRepo, auditPublisher, cfg.NotifyQueueSize, cfg.NotifyWorkers, logger)
	recorder.Start(workerCtx)

	dispatcher := notify.NewDispatcher(cfg.NotifyQueueSize, cfg.NotifyWorkers, logger, sinks...)
	dispatcher.Start(workerCtx)

	core := &app.Core{
		Schedules: service.NewScheduleService(txManager, scheduleRepo, bookingRepo, userRepo, classTypes, recorder, dispatcher, logger),
		Bookings:  service.NewBookingService(txManager, scheduleRepo, bookingRepo, userRepo, recorder, dispatcher, logger),
		Identity:  identity.NewResolver(cfg.JWTSecret, userRepo),
	}

	scheduler := app.NewScheduler(core.Schedules, cfg.StatusTickInterval, logger)
	scheduler.Start(ctx)

	logger.Info("Studio booking core started",
		zap.Bool("redis", redisClient != nil),
		zap.Int("notification_sinks", len(sinks)))

	<-ctx.Done()
	logger.Info("Shutting down")

	scheduler.Stop()
	recorder.Stop()
	dispatcher.Stop()

	logger.Info("Studio booking core stopped")
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) error {
	var source fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		source = nil
	}

	migrator, err := app.NewMigrator(pool, source, cfg.MigrationsDir, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return migrator.Run(ctx)
}
