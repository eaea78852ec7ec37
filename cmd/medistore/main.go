package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ambakhtiar/MediStore-Backend/internal/repository"
	"github.com/ambakhtiar/MediStore-Backend/internal/service"
	transport "github.com/ambakhtiar/MediStore-Backend/internal/transport/http"
	"github.com/ambakhtiar/MediStore-Backend/internal/transport/http/handler"
	"github.com/ambakhtiar/MediStore-Backend/pkg/config"
	"github.com/ambakhtiar/MediStore-Backend/pkg/db"
	"github.com/ambakhtiar/MediStore-Backend/pkg/kafka"
	outbox "github.com/ambakhtiar/MediStore-Backend/pkg/outbox/repository"
	"github.com/ambakhtiar/MediStore-Backend/pkg/outbox/worker"
	"github.com/ambakhtiar/MediStore-Backend/pkg/utils"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := utils.InitTracer(ctx, "medistore-backend")
	if err != nil {
		log.Fatalf("Failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: "info",
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("MediStore backend starting!")

	if err := runMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.URL); err != nil {
		log.Fatalf("Error running migrations: %v", err)
	}

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Error creating new postgres DB: %v", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("Error creating kafka producer: %v", err)
	}

	userRepository := repository.NewUserRepository(pool, logger)
	medicineRepository := repository.NewMedicineRepository(pool, logger)
	categoryRepository := repository.NewCategoryRepository(pool, logger)
	cartRepository := repository.NewCartRepository(pool, logger)
	orderRepository := repository.NewOrderRepository(pool, logger)
	reviewRepository := repository.NewReviewRepository(pool, logger)
	outboxRepository := outbox.NewOutboxRepository(pool, logger)

	authService := service.NewAuthService(userRepository, cfg.Auth, logger)
	medicineService := service.NewMedicineService(medicineRepository, logger)
	cachedMedicineService := service.NewCachedMedicineService(medicineService, rdb, logger)
	categoryService := service.NewCategoryService(categoryRepository, logger)
	cartService := service.NewCartService(cartRepository, logger)
	orderService := service.NewOrderService(
		pool,
		logger,
		orderRepository,
		cartRepository,
		medicineRepository,
		outboxRepository,
		cachedMedicineService,
	)
	reviewService := service.NewReviewService(reviewRepository, medicineRepository, logger)

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepository, kafkaProducer, logger)
	go outboxProcessor.Start(ctx)

	app := fiber.New()

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests. Try again later.",
				"data":    nil,
			})
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("MediStore is alive!")
	})

	handlers := &transport.Handlers{
		Auth:     handler.NewAuthHandler(authService, logger),
		Medicine: handler.NewMedicineHandler(cachedMedicineService, logger),
		Category: handler.NewCategoryHandler(categoryService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
		Review:   handler.NewReviewHandler(reviewService, logger),
	}

	transport.RegisterRoutes(app, handlers, cfg.Auth.Secret)

	go func() {
		log.Println("HTTP service listening on: " + cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening on HTTP port %v: %v\n", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down gracefully...")
	shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownContext); err != nil {
		log.Printf("Error shutting down HTTP app: %v\n", err)
	} else {
		log.Println("HTTP app stopped gracefully")
	}

	if err := kafkaProducer.Close(); err != nil {
		log.Printf("Error closing kafka producer: %v\n", err)
	}

	if err := tp.Shutdown(shutdownContext); err != nil {
		log.Printf("Error shutting down telemetry: %v\n", err)
	} else {
		log.Println("Telemetry stopped correctly")
	}
}

func runMigrations(migrationsPath, dbURL string) error {
	m, err := migrate.New("file://"+migrationsPath, dbURL)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return srcErr
	}

	return dbErr
}
