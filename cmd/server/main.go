package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/voicecheck/api/internal/client"
	"github.com/voicecheck/api/internal/config"
	"github.com/voicecheck/api/internal/handler"
	"github.com/voicecheck/api/internal/metrics"
	"github.com/voicecheck/api/internal/middleware"
	"github.com/voicecheck/api/internal/service"
	"github.com/voicecheck/api/internal/storage"
	ws "github.com/voicecheck/api/internal/websocket"
	"github.com/voicecheck/api/internal/worker"
)

// bodySlack leaves room for multipart boundaries and headers on top of the
// largest accepted file.
const bodySlack = 1024 * 1024

func main() {
	cmd := &cobra.Command{
		Use:          "voicecheck",
		Short:        "Deepfake detection API for uploaded voice recordings",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().String("config", "", "path to a config file (default ./config.yaml if present)")
	cmd.Flags().String("host", "0.0.0.0", "host to bind")
	cmd.Flags().String("port", "5000", "port to listen on")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
}

func run(cfg *config.Config) error {
	log.Println("Starting Deepfake Detection API...")

	// Scratch directory lives for the whole process
	scratch, err := storage.NewScratch(cfg.Upload.Dir, cfg.Upload.MaxSize)
	if err != nil {
		return err
	}
	log.Printf("Upload folder: %s", scratch.Dir())
	log.Printf("Allowed extensions: %s", strings.Join(cfg.Upload.AllowedExtensions, ", "))

	// Initialize classification provider
	provider, err := client.NewClassifier(&cfg.Classifier)
	if err != nil {
		return err
	}
	log.Printf("Classification provider: %s", provider.Name())

	if remote, ok := provider.(*client.RemoteClassifier); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := remote.HealthCheck(ctx); err != nil {
			log.Printf("Warning: classifier service not available: %v", err)
		}
		cancel()
	}

	m := metrics.New()
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	sweepWorker := worker.NewSweepWorker(scratch, cfg.Sweep.MaxAge, m)
	if removed, err := sweepWorker.Sweep(cfg.Sweep.MaxAge); err != nil {
		log.Printf("Warning: %v", err)
	} else if removed > 0 {
		log.Printf("Removed %d stale scratch file(s)", removed)
	}

	// Redis backs rate limiting and the sweep scheduler; both are optional
	var rateLimiter *middleware.RateLimiter
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available: %v", err)
		}
		rateLimiter = middleware.NewRateLimiter(redisClient)

		runner, err := worker.NewRunner(cfg, sweepWorker)
		if err != nil {
			return err
		}
		if err := runner.Start(); err != nil {
			log.Printf("Warning: %v", err)
		} else {
			defer runner.Shutdown()
		}
	} else {
		log.Println("Info: Redis not configured, rate limiting and scheduled sweeps disabled")
	}

	// Initialize services and handlers
	analysisService := service.NewAnalysisService(&cfg.Upload, scratch, provider, hub, validate)
	analyzeHandler := handler.NewAnalyzeHandler(analysisService, m)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handler.NewErrorHandler(cfg.Upload.MaxSize),
		BodyLimit:    int(cfg.Upload.MaxSize) + bodySlack,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/", handler.Root)
	app.Get("/health", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	app.Post("/analyze", rateLimiter.AnalyzeLimit(cfg.RateLimit.AnalyzePerMin), analyzeHandler.Analyze)

	// WebSocket routes
	app.Use("/ws", handler.RequireUpgrade)
	app.Get("/ws/analyses", handler.AnalysisFeed(hub))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := cfg.Server.Addr()
	log.Printf("Server starting on %s", addr)
	return app.Listen(addr)
}
