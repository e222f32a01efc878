package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/wisdomhub/wisdom-hub/internal/autosave"
	"github.com/wisdomhub/wisdom-hub/internal/config"
	"github.com/wisdomhub/wisdom-hub/internal/database"
	"github.com/wisdomhub/wisdom-hub/internal/handlers"
	"github.com/wisdomhub/wisdom-hub/internal/logger"
	"github.com/wisdomhub/wisdom-hub/internal/media"
	"github.com/wisdomhub/wisdom-hub/internal/middleware"
	"github.com/wisdomhub/wisdom-hub/internal/progress"
	"github.com/wisdomhub/wisdom-hub/internal/queue"
	"github.com/wisdomhub/wisdom-hub/internal/services/ai"
	"github.com/wisdomhub/wisdom-hub/internal/services/auth"
	"github.com/wisdomhub/wisdom-hub/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const (
	serviceName    = "wisdom-hub-api"
	serviceVersion = "1.0.0"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for AI API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.Init(context.Background(), telemetry.Config{
				ServiceName:    serviceName,
				ServiceVersion: serviceVersion,
				Endpoint:       cfg.OTELEndpoint,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limiting
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	pingCancel()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for the thumbnail job queue (required)
	// Retry connection with exponential backoff to handle RabbitMQ startup delays
	jobQueue := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Initialize repositories
	workspaceRepo := database.NewWorkspaceRepository(db)
	boxRepo := database.NewBoxRepository(db)
	blockRepo := database.NewBlockRepository(db)
	activityLogRepo := database.NewActivityLogRepository(db)

	// Progress tracking feeds both its own endpoints and the activity ticks
	// emitted by auto-saves, block CRUD, chat and uploads
	progressManager := progress.NewManager(activityLogRepo, zapLogger)

	// Auto-save sessions behind the draft endpoints
	autosaveManager := autosave.NewManager(blockRepo, progressManager, zapLogger)

	// Auth-provider token verification
	jwksManager := auth.NewJWKSManager()
	verifier := auth.NewVerifier(jwksManager, cfg.AuthJWKSURL, cfg.AuthIssuer)

	// AI chat gateway
	chatProvider, err := createChatProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_provider", zap.Error(err))
	}
	chatService := ai.NewChatService(chatProvider, zapLogger)

	// Media storage for cover images
	mediaStorage := media.NewLocalStorage(cfg.MediaDir, cfg.MediaBaseURL)

	// Initialize handlers
	healthChecker := handlers.NewHealthChecker(db, jobQueue)
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceRepo)
	boxHandler := handlers.NewBoxHandler(boxRepo, workspaceRepo)
	blockHandler := handlers.NewBlockHandler(blockRepo, boxRepo, progressManager)
	draftHandler := handlers.NewDraftHandler(autosaveManager, blockRepo)
	progressHandler := handlers.NewProgressHandler(progressManager, activityLogRepo)
	chatHandler := handlers.NewChatHandler(chatService, progressManager)
	uploadHandler := handlers.NewUploadHandler(mediaStorage, jobQueue, progressManager)

	// Setup router
	r := mux.NewRouter()

	zapLogger.Info("setting_up_middleware")

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware(serviceName))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}
	authMW := middleware.Auth(db, verifier)
	// Body limits are per-route-group so uploads can exceed the JSON cap
	sizeLimitMW := middleware.MaxRequestSize(middleware.DefaultMaxRequestSize)

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// Stored cover images and thumbnails
	r.PathPrefix(cfg.MediaBaseURL + "/").Handler(
		http.StripPrefix(cfg.MediaBaseURL+"/", http.FileServer(http.Dir(cfg.MediaDir))),
	).Methods("GET")

	// API v1 routes (all protected)
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	workspacesRouter := apiRouter.PathPrefix("/workspaces").Subrouter()
	workspacesRouter.Use(authMW, rateLimitMW, sizeLimitMW)
	workspaceHandler.RegisterRoutes(workspacesRouter)

	boxesRouter := apiRouter.PathPrefix("/boxes").Subrouter()
	boxesRouter.Use(authMW, rateLimitMW, sizeLimitMW)
	boxHandler.RegisterRoutes(boxesRouter)

	blocksRouter := apiRouter.PathPrefix("/blocks").Subrouter()
	blocksRouter.Use(authMW, rateLimitMW, sizeLimitMW)
	blockHandler.RegisterRoutes(blocksRouter)
	draftHandler.RegisterRoutes(blocksRouter)

	progressRouter := apiRouter.PathPrefix("/progress").Subrouter()
	progressRouter.Use(authMW, rateLimitMW, sizeLimitMW)
	progressHandler.RegisterRoutes(progressRouter)

	aiRouter := apiRouter.PathPrefix("/ai").Subrouter()
	aiRouter.Use(authMW, rateLimitMW, sizeLimitMW)
	chatHandler.RegisterRoutes(aiRouter)

	// Uploads get a larger body budget than the JSON routes
	uploadsRouter := apiRouter.PathPrefix("/uploads").Subrouter()
	uploadsRouter.Use(authMW, rateLimitMW, middleware.MaxRequestSize(middleware.UploadMaxRequestSize))
	uploadHandler.RegisterRoutes(uploadsRouter)

	// Catch-all OPTIONS handler for preflight requests; the CORS middleware
	// sets the headers before this runs
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Background loops: idle-session eviction and DLQ garbage collection
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go autosaveManager.Start(bgCtx)

	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, zapLogger, 1*time.Hour, 24*time.Hour)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ dials the queue with exponential backoff. Fatal after the
// last attempt.
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) queue.JobQueue {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}

// createChatProvider builds the configured chat backend via the registry
func createChatProvider(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) (ai.ChatProvider, error) {
	registry := ai.NewProviderRegistry()
	registry.Register(config.ProviderDify, func(c map[string]string) (ai.ChatProvider, error) {
		return ai.NewDifyProviderWithLogger(c["api_key"], c["base_url"], zapLogger, debugMode), nil
	})
	registry.Register(config.ProviderOpenAI, func(c map[string]string) (ai.ChatProvider, error) {
		return ai.NewOpenAIProviderWithLogger(c["api_key"], c["base_url"], c["model"], zapLogger), nil
	})

	switch cfg.AIProvider {
	case config.ProviderDify:
		return registry.GetProvider(config.ProviderDify, map[string]string{
			"api_key":  cfg.DifyAPIKey,
			"base_url": cfg.DifyBaseURL,
		})
	case config.ProviderOpenAI:
		return registry.GetProvider(config.ProviderOpenAI, map[string]string{
			"api_key":  cfg.OpenAIKey,
			"base_url": cfg.AIBaseURL,
			"model":    cfg.AIModel,
		})
	default:
		return registry.GetProvider(cfg.AIProvider, nil)
	}
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Only expose minimal version info
	_, _ = fmt.Fprintf(w, `{"version":"%s","timestamp":"%s"}`, serviceVersion, time.Now().UTC().Format(time.RFC3339))
}
