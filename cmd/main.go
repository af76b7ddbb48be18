package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	createScheduleHandler "github.com/m04kA/SMC-CounselingService/internal/api/handlers/create_schedule"
	extensionsHandler "github.com/m04kA/SMC-CounselingService/internal/api/handlers/extensions"
	getAvailableSlotsHandler "github.com/m04kA/SMC-CounselingService/internal/api/handlers/get_available_slots"
	healthHandler "github.com/m04kA/SMC-CounselingService/internal/api/handlers/health"
	mappingsHandler "github.com/m04kA/SMC-CounselingService/internal/api/handlers/mappings"
	schedulesHandler "github.com/m04kA/SMC-CounselingService/internal/api/handlers/schedules"
	"github.com/m04kA/SMC-CounselingService/internal/api/middleware"
	"github.com/m04kA/SMC-CounselingService/internal/config"
	"github.com/m04kA/SMC-CounselingService/internal/domain"
	ledgerQueue "github.com/m04kA/SMC-CounselingService/internal/infra/queue/ledger"
	extensionRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/extension"
	mappingRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/mapping"
	scheduleRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/schedule"
	ledgerClient "github.com/m04kA/SMC-CounselingService/internal/integrations/ledger"
	userServiceClient "github.com/m04kA/SMC-CounselingService/internal/integrations/userservice"
	extensionsService "github.com/m04kA/SMC-CounselingService/internal/service/extensions"
	mappingsService "github.com/m04kA/SMC-CounselingService/internal/service/mappings"
	schedulesService "github.com/m04kA/SMC-CounselingService/internal/service/schedules"
	createScheduleUC "github.com/m04kA/SMC-CounselingService/internal/usecase/create_schedule"
	getAvailableSlotsUC "github.com/m04kA/SMC-CounselingService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-CounselingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-CounselingService/pkg/logger"
	"github.com/m04kA/SMC-CounselingService/pkg/metrics"
	"github.com/m04kA/SMC-CounselingService/pkg/txmanager"
)

const readinessTimeout = 2 * time.Second

// LedgerPublisher общий контракт публикаторов проводок
type LedgerPublisher interface {
	Publish(ctx context.Context, entry domain.LedgerEntry) error
}

func main() {
	configPath := "config.toml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	// Загружаем конфигурацию
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-CounselingService...")
	log.Info("Configuration loaded from %s", configPath)

	// Метрики: nil-коллектор молча игнорирует все вызовы
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, stopMetricsCh)
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	// Репозитории
	mappingRepository := mappingRepo.NewRepository(wrappedDB, log)
	extensionRepository := extensionRepo.NewRepository(wrappedDB)
	scheduleRepository := scheduleRepo.NewRepository(wrappedDB)

	// Интеграционные клиенты
	userClient, err := userServiceClient.NewClient(
		cfg.UserService.URL,
		time.Duration(cfg.UserService.Timeout)*time.Second,
		cfg.UserService.CacheSize,
		time.Duration(cfg.UserService.CacheTTL)*time.Second,
		log,
	)
	if err != nil {
		log.Fatal("Failed to initialize UserService client: %v", err)
	}
	log.Info("UserService client initialized (url=%s, timeout=%ds, cache=%d)",
		cfg.UserService.URL, cfg.UserService.Timeout, cfg.UserService.CacheSize)

	// Публикация проводок: очередь, прямая отправка или только лог
	var (
		ledgerPublisher LedgerPublisher
		ledgerWorker    *ledgerQueue.Worker
		redisClient     *redis.Client
	)

	switch {
	case cfg.Ledger.Enabled && cfg.Queue.Enabled:
		poster := ledgerClient.NewClient(cfg.Ledger.URL, cfg.Ledger.APIKey,
			time.Duration(cfg.Ledger.Timeout)*time.Second, cfg.Ledger.RateLimit, log)

		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		}
		queueClient := asynq.NewClient(redisOpt)
		defer queueClient.Close()

		ledgerPublisher = ledgerQueue.NewQueuePublisher(queueClient, cfg.Queue.Queue, cfg.Queue.MaxRetry, metricsCollector, log)
		ledgerWorker = ledgerQueue.NewWorker(ledgerQueue.WorkerConfig{
			RedisAddr:     cfg.Queue.RedisAddr,
			RedisPassword: cfg.Queue.RedisPassword,
			RedisDB:       cfg.Queue.RedisDB,
			Concurrency:   cfg.Queue.Concurrency,
			Queue:         cfg.Queue.Queue,
		}, poster, metricsCollector, log)

		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer redisClient.Close()

		log.Info("Ledger postings go through queue %q (redis=%s)", cfg.Queue.Queue, cfg.Queue.RedisAddr)

	case cfg.Ledger.Enabled:
		poster := ledgerClient.NewClient(cfg.Ledger.URL, cfg.Ledger.APIKey,
			time.Duration(cfg.Ledger.Timeout)*time.Second, cfg.Ledger.RateLimit, log)
		ledgerPublisher = ledgerQueue.NewDirectPublisher(poster, metricsCollector, log)
		log.Info("Ledger postings are sent directly to %s", cfg.Ledger.URL)

	default:
		ledgerPublisher = ledgerQueue.NewDiscardPublisher(metricsCollector, log)
		log.Warn("Ledger integration is disabled, postings are only logged")
	}

	// Сервисы
	mappingSvc := mappingsService.NewService(
		mappingRepository,
		scheduleRepository,
		userClient,
		ledgerPublisher,
		txMgr,
		metricsCollector,
		log,
	)
	extensionSvc := extensionsService.NewService(
		extensionRepository,
		mappingRepository,
		userClient,
		ledgerPublisher,
		txMgr,
		metricsCollector,
		log,
	)
	scheduleSvc := schedulesService.NewService(scheduleRepository, txMgr, log)

	// Use cases
	createScheduleUseCase := createScheduleUC.NewUseCase(
		scheduleRepository,
		mappingRepository,
		extensionRepository,
		txMgr,
		metricsCollector,
		cfg.Scheduling.BreakBufferMinutes,
		log,
	)
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		scheduleRepository,
		mappingRepository,
		cfg.Scheduling.BreakBufferMinutes,
		log,
	)

	// Handlers
	mappings := mappingsHandler.NewHandler(mappingSvc, log)
	extensions := extensionsHandler.NewHandler(extensionSvc, log)
	schedules := schedulesHandler.NewHandler(scheduleSvc, log)
	createSchedule := createScheduleHandler.NewHandler(createScheduleUseCase, log)
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)

	checks := map[string]healthHandler.Check{
		"postgres": wrappedDB.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	health := healthHandler.NewHandler(checks, readinessTimeout, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log))

	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/health/live", health.Live).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Свободные слоты консультанта на дату
	api.HandleFunc("/consultants/{consultantId:[0-9]+}/available-slots",
		getAvailableSlots.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	if cfg.RateLimit.Enabled {
		limiter, err := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		if err != nil {
			log.Fatal("Failed to initialize rate limiter: %v", err)
		}
		protected.Use(limiter.Middleware)
		log.Info("Rate limit enabled: rps=%.1f, burst=%d", cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	// --- Маппинги ---
	protected.HandleFunc("/mappings", mappings.Create).Methods(http.MethodPost)
	protected.HandleFunc("/mappings", mappings.List).Methods(http.MethodGet)
	protected.HandleFunc("/mappings/{mappingId:[0-9]+}", mappings.Get).Methods(http.MethodGet)
	protected.HandleFunc("/mappings/{mappingId:[0-9]+}", mappings.Update).Methods(http.MethodPut)
	protected.HandleFunc("/mappings/{mappingId:[0-9]+}/confirm-payment", mappings.ConfirmPayment).Methods(http.MethodPost)
	protected.HandleFunc("/mappings/{mappingId:[0-9]+}/confirm-deposit", mappings.ConfirmDeposit).Methods(http.MethodPost)
	protected.HandleFunc("/mappings/{mappingId:[0-9]+}/approve", mappings.Approve).Methods(http.MethodPost)
	protected.HandleFunc("/mappings/{mappingId:[0-9]+}/terminate", mappings.Terminate).Methods(http.MethodPost)

	// --- Запросы на продление ---
	// eligible-mappings регистрируется раньше маршрутов с {requestId}
	protected.HandleFunc("/extension-requests/eligible-mappings", extensions.EligibleMappings).Methods(http.MethodGet)
	protected.HandleFunc("/extension-requests/statistics", extensions.Statistics).Methods(http.MethodGet)
	protected.HandleFunc("/extension-requests", extensions.Create).Methods(http.MethodPost)
	protected.HandleFunc("/extension-requests", extensions.List).Methods(http.MethodGet)
	protected.HandleFunc("/extension-requests/{requestId:[0-9]+}", extensions.Get).Methods(http.MethodGet)
	protected.HandleFunc("/extension-requests/{requestId:[0-9]+}/confirm-payment", extensions.ConfirmPayment).Methods(http.MethodPost)
	protected.HandleFunc("/extension-requests/{requestId:[0-9]+}/approve", extensions.Approve).Methods(http.MethodPost)
	protected.HandleFunc("/extension-requests/{requestId:[0-9]+}/complete", extensions.Complete).Methods(http.MethodPost)
	protected.HandleFunc("/extension-requests/{requestId:[0-9]+}/reject", extensions.Reject).Methods(http.MethodPost)

	// --- Сессии ---
	protected.HandleFunc("/schedules", createSchedule.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/schedules", schedules.List).Methods(http.MethodGet)
	protected.HandleFunc("/schedules/{scheduleId:[0-9]+}", schedules.Get).Methods(http.MethodGet)
	protected.HandleFunc("/schedules/{scheduleId:[0-9]+}/status", schedules.ChangeStatus).Methods(http.MethodPatch)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if ledgerWorker != nil {
		g.Go(func() error {
			return ledgerWorker.Run(gCtx)
		})
	}

	// Graceful shutdown по сигналу или при падении одной из горутин
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
		)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error: %v", err)
	}

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	log.Info("Server stopped gracefully")
}
