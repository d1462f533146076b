package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)

	var presigner service.ObjectPresigner
	if cfg.R2.AccountID != "" && cfg.R2.BucketName != "" {
		r2Service, err := service.NewR2Service(context.Background(), *cfg)
		if err != nil {
			log.Fatalf("Failed to configure R2: %v", err)
		}
		presigner = r2Service
	} else {
		log.Println("R2 is not configured, assets without a file URL will fail to publish")
	}

	httpClient := &http.Client{Timeout: cfg.Scheduler.PublishTimeout}
	rpm := cfg.Platforms.RequestsPerMinute
	registry := service.NewPublisherRegistry(
		service.NewFacebookPublisher(httpClient, cfg.Platforms.FacebookGraphURL, cfg.Platforms.FacebookVersion, rpm),
		service.NewInstagramPublisher(httpClient, cfg.Platforms.InstagramGraphURL, cfg.Platforms.InstagramVersion, rpm),
		service.NewTwitterPublisher(httpClient, cfg.Platforms.TwitterAPIURL, cfg.Platforms.TwitterUploadURL, rpm),
		service.NewTikTokBusinessPublisher(),
	)

	backoff := service.NewBackoffPolicy(cfg.Scheduler.RetryBaseDelay, cfg.Scheduler.MaxAttempts)
	publishService := service.NewPublishService(
		postRepo, socialAccountRepo, mediaAssetRepo, historyRepo,
		service.NewAssetResolver(presigner), registry,
		utils.NewTokenCipher(cfg.SecretKey).Decrypt,
		service.PublishOptions{
			Timeout:               cfg.Scheduler.PublishTimeout,
			Backoff:               backoff,
			PermanentConfigErrors: cfg.Scheduler.PermanentConfigErrors,
		})

	if cfg.Scheduler.ClaimTimeout > 0 && cfg.Scheduler.ClaimTimeout <= cfg.Scheduler.PublishTimeout {
		log.Printf("Warning: CLAIM_TIMEOUT (%s) should exceed PUBLISH_TIMEOUT (%s)",
			cfg.Scheduler.ClaimTimeout, cfg.Scheduler.PublishTimeout)
	}

	publishJob := job.NewPublishJob(postRepo, publishService, backoff, job.PublishJobOptions{
		Interval:     cfg.Scheduler.TickInterval,
		ClaimTimeout: cfg.Scheduler.ClaimTimeout,
	})
	publishJob.Start()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: 5 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	scheduler := handlers.NewSchedulerHandler(publishJob)
	app.Get("/health", scheduler.Health)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/scheduler/stats", scheduler.Stats)
	api.Post("/scheduler/run", scheduler.Run)

	post := handlers.NewPostHandler(postRepo, historyRepo)
	api.Get("/posts/:id/history", post.History)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, publishJob, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, publishJob *job.PublishJob, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}

	publishJob.Stop()
	closeDB(db)
	log.Println("Server shutdown complete.")
}
