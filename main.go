package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"zahlung-backend/database"
	"zahlung-backend/idempotency"
	"zahlung-backend/middlewares"
	"zahlung-backend/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
)

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	// ---- Database
	database.Connect()
	database.AutoMigrate()
	if err := database.Migrate(); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// ---- Idempotency store: Redis when configured, otherwise the SQL store
	// sharing the main database. Either way the claim is atomic across all
	// server instances pointing at the same backend.
	ttl := time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour
	var store idempotency.Store
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		store = idempotency.NewRedisStore(client, "idem", ttl)
	} else {
		store = idempotency.NewGormStore(database.DB, ttl)
	}

	// ---- Expiry reaper (independent of request traffic)
	reaper := idempotency.NewReaper(store, time.Duration(envInt("REAPER_INTERVAL_SECONDS", 300))*time.Second)
	reaper.Start()
	defer reaper.Stop()

	// ---- Limits (configurable via env)
	// Fiber default BodyLimit is 4 * 1024 * 1024 bytes if unset (per docs).
	// We allow overriding with BODY_LIMIT_BYTES or BODY_LIMIT_MB.
	bodyLimitBytes := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimitBytes <= 0 {
		bodyLimitBytes = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    bodyLimitBytes,
	})

	app.Use(logger.New())

	// ---- CORS
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter (applies to all routes; tune via env)
	rlMax := envInt("RATE_LIMIT_MAX", 60)                                            // default 60 reqs
	rlWindow := time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second // default 60s window
	app.Use(limiter.New(limiter.Config{
		Max:        rlMax,
		Expiration: rlWindow,
	}))

	// ---- Routes
	routes.Register(app, store, middlewares.IdempotencyConfig{
		StrictFingerprint: os.Getenv("IDEMPOTENCY_STRICT_FINGERPRINT") == "true",
	})

	// ---- Graceful stop: shut the listener, then the reaper (via defer)
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		_ = app.Shutdown()
	}()

	// ---- Start
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
