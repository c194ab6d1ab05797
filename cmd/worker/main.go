package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"easyconnect-server/internal/config"
	"easyconnect-server/internal/messaging"
	"easyconnect-server/internal/repository"
	"easyconnect-server/internal/service"
	"easyconnect-server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Воркер читает работы диспетчеризации из очереди и выполняет их:
// создание уведомлений (kind=create) и фоновые эффекты (kind=effects).
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.Log.Level))

	// --- External Connections ---
	// Для воркера очередь обязательна: без нее ему нечего делать.
	if cfg.RabbitMQ.URI == "" {
		zap.L().Fatal("RABBITMQ_URI is required for the worker process")
	}

	pgPool, err := setupPostgres(cfg.Postgres.URL)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()
	zap.L().Info("Connected to PostgreSQL")

	mqConn, err := connectRabbitMQ(cfg.RabbitMQ.URI, log)
	if err != nil {
		zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()
	zap.L().Info("Connected to RabbitMQ")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		pingCancel()
		defer redisClient.Close()
		zap.L().Info("Connected to Redis")
	} else {
		zap.L().Warn("REDIS_ADDR is not set, realtime broadcast is disabled")
	}

	// --- Dependency Injection ---
	notificationRepo := repository.NewNotificationRepository(pgPool, log)
	deviceTokenRepo := repository.NewDeviceTokenRepository(pgPool, log)
	userRepo := repository.NewUserRepository(pgPool, log)

	var broadcaster service.Broadcaster
	if redisClient != nil {
		broadcaster = service.NewRedisBroadcaster(redisClient, log)
	}

	pushClient := service.NewFCMClient(cfg.Push.ServerKey, cfg.Push.Endpoint, deviceTokenRepo, log)
	effects := service.NewEffectsProcessor(notificationRepo, deviceTokenRepo, broadcaster, pushClient, log)

	// Очередь диспетчеру не передается: воркер и есть потребитель очереди,
	// повторная публикация работ из обработчика создала бы цикл.
	dispatcher := service.NewDispatcher(notificationRepo, userRepo, nil, effects, log)

	processor := messaging.NewProcessor(log, dispatcher)
	consumer, err := messaging.NewConsumer(mqConn, log, cfg.DispatchQueueName, cfg.WorkerConcurrency, processor)
	if err != nil {
		zap.L().Fatal("Failed to create consumer", zap.Error(err))
	}

	// --- Health Check Server ---
	healthServer := startHealthCheckServer(cfg.HealthCheckPort, log)

	// --- Start Consumer ---
	consumerErrChan := make(chan error, 1)
	go func() {
		zap.L().Info("Starting work queue consumer",
			zap.String("queue", cfg.DispatchQueueName),
			zap.Int("concurrency", cfg.WorkerConcurrency),
		)
		consumerErrChan <- consumer.Start()
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zap.L().Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-consumerErrChan:
		if err != nil {
			zap.L().Error("Consumer stopped with error", zap.Error(err))
		} else {
			zap.L().Info("Consumer stopped")
		}
	}

	zap.L().Info("Shutting down worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Health check server forced to shutdown", zap.Error(err))
	}

	consumer.Stop()

	zap.L().Info("Worker exiting")
}

// startHealthCheckServer поднимает отдельный HTTP-сервер для liveness-проб.
func startHealthCheckServer(port string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Info("Starting health check server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health check server listen error", zap.Error(err))
		}
	}()

	return srv
}

// setupPostgres initializes the PostgreSQL connection pool with retry logic.
func setupPostgres(databaseURL string) (*pgxpool.Pool, error) {
	zap.L().Debug("Setting up PostgreSQL connection...")

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}

	var pool *pgxpool.Pool
	var lastErr error
	maxRetries := 50
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, err = pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()

		if err != nil {
			lastErr = fmt.Errorf("unable to create postgres connection pool (attempt %d/%d): %w", attempt, maxRetries, err)
			zap.L().Warn("Postgres connection pool creation failed, retrying...",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
			}
			continue
		}

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = pool.Ping(pingCtx)
		pingCancel()

		if err == nil {
			zap.L().Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
			return pool, nil
		}

		pool.Close()
		lastErr = fmt.Errorf("unable to ping postgres database (attempt %d/%d): %w", attempt, maxRetries, err)
		zap.L().Warn("Postgres ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxRetries, lastErr)
}

// connectRabbitMQ подключается к RabbitMQ с длинным циклом повторов:
// воркер без очереди бесполезен, поэтому ждем ее появления.
func connectRabbitMQ(url string, log *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 50
	retryDelay := 3 * time.Second

	log.Info("Attempting to connect to RabbitMQ", zap.String("url", maskRabbitMQURL(url)), zap.Int("max_retries", maxRetries))

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		conn, err = amqp.Dial(url)
		if err == nil {
			log.Info("Successfully connected to RabbitMQ", zap.Int("attempt", attempt))
			go func() {
				notifyClose := make(chan *amqp.Error)
				conn.NotifyClose(notifyClose)
				if closeErr := <-notifyClose; closeErr != nil {
					log.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				}
			}()
			return conn, nil
		}
		log.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxRetries),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// maskRabbitMQURL скрывает пароль в URL для безопасного логирования.
func maskRabbitMQURL(url string) string {
	atIndex := -1
	colonIndex := -1
	for i := 0; i < len(url); i++ {
		if url[i] == '@' {
			atIndex = i
			break
		}
	}
	if atIndex == -1 {
		return url
	}
	for i := atIndex - 1; i >= 0; i-- {
		if url[i] == ':' {
			colonIndex = i
		}
		if url[i] == '/' {
			break
		}
	}
	if colonIndex == -1 {
		return url
	}
	return url[:colonIndex+1] + "***" + url[atIndex:]
}
