package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"artstop/internal/config"
	"artstop/internal/gateway"
	"artstop/internal/handlers"
	"artstop/internal/middleware"
	"artstop/internal/models"
	"artstop/internal/repositories"
	"artstop/internal/services"
	"artstop/pkg/rabbitmq"
)

// NewApp wires repositories, services and handlers into a Fiber app. When
// the config carries no database DSN the in-memory repositories are used,
// which is handy for local development. gw and publisher are injected so
// tests can supply fakes; publisher may be nil.
func NewApp(cfg *config.Config, gw gateway.Client, publisher services.EventPublisher) (*fiber.App, error) {
	var (
		orderRepo   repositories.OrderRepository
		cartRepo    repositories.CartRepository
		productRepo repositories.ProductRepository
		userRepo    repositories.UserRepository
	)

	if cfg.DatabaseDSN != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(
			&models.Product{}, &models.User{},
			&models.Cart{}, &models.CartItem{},
			&models.Order{}, &models.OrderItem{},
		); err != nil {
			return nil, err
		}
		orderRepo = repositories.NewGORMOrderRepository(db)
		cartRepo = repositories.NewGORMCartRepository(db)
		productRepo = repositories.NewGORMProductRepository(db)
		userRepo = repositories.NewGORMUserRepository(db)
	} else {
		log.Println("No DATABASE_DSN configured, using in-memory repositories")
		products := repositories.NewMockProductRepository()
		carts := repositories.NewMockCartRepository()
		orderRepo = repositories.NewMockOrderRepository(products, carts)
		cartRepo = carts
		productRepo = products
		userRepo = repositories.NewMockUserRepository()
	}

	// Services
	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo)
	paymentService := services.NewPaymentService(
		orderRepo, cartRepo, productRepo, userRepo,
		gw, publisher, cfg.Gateway, cfg.Checkout,
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	webhookHandler := handlers.NewWebhookHandler(paymentService, cfg.Gateway.WebhookSecret)

	app := fiber.New()
	app.Use(logger.New())

	// Public: webhook ingress (signature-authenticated) and auth.
	webhookHandler.RegisterRoutes(app)

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)

	// Everything else requires a bearer token.
	protected := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protected)
	cartHandler.RegisterRoutes(protected)
	paymentHandler.RegisterRoutes(protected)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return app, nil
}

func main() {
	cfg := config.Load()

	// RabbitMQ is optional: without a broker the app still serves requests,
	// it just skips lifecycle event publishing.
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		var err error
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Printf("Warning: failed to initialize RabbitMQ client: %v", err)
		} else {
			publisher = mqClient
			defer mqClient.Close()
		}
	}

	gatewayClient := gateway.NewRESTClient(cfg.Gateway)

	app, err := NewApp(cfg, gatewayClient, publisher)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	if mqClient != nil {
		log.Println("Starting RabbitMQ consumer for order events...")
		messageHandler := func(msg amqp.Delivery) error {
			log.Printf("Received order event %s (Tag: %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))
			return nil
		}
		if consumerErr := mqClient.ConsumeOrderEvents(messageHandler); consumerErr != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
		}
	}

	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
