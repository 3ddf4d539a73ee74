// Package app wires the closet server together from a Config.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"closet/internal/config"
	"closet/internal/database"
	"closet/internal/handlers"
	"closet/internal/middleware"
	"closet/internal/repositories"
	"closet/internal/services"
	"closet/internal/session"
	"closet/internal/storage"
	"closet/internal/tryon"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// App is one fully wired server instance.
type App struct {
	Fiber *fiber.App
	DB    *gorm.DB

	queue   *tryon.Queue
	limiter *middleware.IPRateLimiter
	redis   *redis.Client
}

// Option adjusts how New builds the server.
type Option func(*options)

type options struct {
	accessLog io.Writer
}

// WithAccessLog sends request log lines to w instead of stdout.
func WithAccessLog(w io.Writer) Option {
	return func(o *options) { o.accessLog = w }
}

// New builds every component from cfg. events may be nil, in which case no
// events are published.
func New(cfg *config.Config, events services.EventPublisher, opts ...Option) (*App, error) {
	o := options{accessLog: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	a := &App{}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	a.DB = db

	sessions, err := a.sessionStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := clothingStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	layout := tryon.Layout{Root: cfg.TryOnDir}
	if err := layout.Ensure(); err != nil {
		a.Close()
		return nil, err
	}
	runner := &tryon.ExecRunner{Command: cfg.TryOnCommand, Args: cfg.TryOnArgs, Dir: cfg.TryOnWorkDir}
	a.queue = tryon.NewQueue(cfg.TryOnWorkers, cfg.TryOnQueueSize, cfg.TryOnTimeout)

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	clothingRepo := repositories.NewGORMClothingRepository(db)
	outfitRepo := repositories.NewGORMOutfitRepository(db)
	jobRepo := repositories.NewGORMTryOnJobRepository(db)

	// --- Services ---
	tokens := session.NewTokenCodec(cfg.SessionSecret, cfg.SessionTTL)
	authService := services.NewAuthService(userRepo, sessions, tokens, cfg.SessionTTL, events)
	clothingService := services.NewClothingService(clothingRepo, store, cfg.AllowedExtensions, events)
	outfitService := services.NewOutfitService(outfitRepo, clothingRepo, events)
	tryOnService := services.NewTryOnService(layout, runner, a.queue, jobRepo, cfg.TryOnAllowedExtensions, events)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService, handlers.SessionCookie{
		Name:   cfg.SessionCookie,
		TTL:    cfg.SessionTTL,
		Secure: cfg.CookieSecure,
	})
	clothingHandler := handlers.NewClothingHandler(clothingService)
	outfitHandler := handlers.NewOutfitHandler(outfitService)
	tryOnHandler := handlers.NewTryOnHandler(tryOnService)

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.MaxUploadMB << 20,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: o.accessLog}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	requireSession := middleware.SessionRequired(authService, cfg.SessionCookie)
	rateLimit := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
		rateLimit = middleware.RateLimit(a.limiter)
	}

	authHandler.RegisterRoutes(app, requireSession, rateLimit)
	clothingHandler.RegisterRoutes(app, requireSession)
	outfitHandler.RegisterRoutes(app, requireSession)
	tryOnHandler.RegisterRoutes(app, requireSession)
	app.Get("/health", a.handleHealth)

	a.Fiber = app
	return a, nil
}

func (a *App) sessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	if cfg.SessionStore != "redis" {
		return session.NewMemoryStore(), nil
	}
	client, err := session.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return session.NewRedisStore(client, cfg.RedisPrefix), nil
}

func clothingStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StorageBackend != "s3" {
		return storage.NewLocalStore(cfg.UploadDir)
	}
	client, err := storage.NewS3Client(ctx, storage.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewS3Store(client, cfg.S3Bucket), nil
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status, code := "healthy", fiber.StatusOK
	if err := a.ping(c.UserContext()); err != nil {
		log.Printf("Health check failed: %v", err)
		status, code = "unhealthy", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (a *App) ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close drains the try-on queue and releases the database and Redis. It
// does not stop Fiber; call Fiber.Shutdown first when listening.
func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis: %v", err)
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}
