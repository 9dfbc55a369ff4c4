package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	goredis "github.com/redis/go-redis/v9"
	cartservice "github.com/sakashimaa/go-bookstore/internal/cart/service"
	cartstore "github.com/sakashimaa/go-bookstore/internal/cart/store"
	catalogrepository "github.com/sakashimaa/go-bookstore/internal/catalog/repository"
	catalogservice "github.com/sakashimaa/go-bookstore/internal/catalog/service"
	checkoutservice "github.com/sakashimaa/go-bookstore/internal/checkout/service"
	"github.com/sakashimaa/go-bookstore/internal/config"
	discountrepository "github.com/sakashimaa/go-bookstore/internal/discount/repository"
	discountservice "github.com/sakashimaa/go-bookstore/internal/discount/service"
	"github.com/sakashimaa/go-bookstore/internal/notification/email"
	notificationservice "github.com/sakashimaa/go-bookstore/internal/notification/service"
	orderdomain "github.com/sakashimaa/go-bookstore/internal/order/domain"
	orderrepository "github.com/sakashimaa/go-bookstore/internal/order/repository"
	orderservice "github.com/sakashimaa/go-bookstore/internal/order/service"
	"github.com/sakashimaa/go-bookstore/internal/payment/gateway"
	paymentservice "github.com/sakashimaa/go-bookstore/internal/payment/service"
	stockrepository "github.com/sakashimaa/go-bookstore/internal/stock/repository"
	stockservice "github.com/sakashimaa/go-bookstore/internal/stock/service"
	transport "github.com/sakashimaa/go-bookstore/internal/transport/http"
	"github.com/sakashimaa/go-bookstore/internal/transport/http/handler"
	userrepository "github.com/sakashimaa/go-bookstore/internal/user/repository"
	wishlistservice "github.com/sakashimaa/go-bookstore/internal/wishlist/service"
	wishliststore "github.com/sakashimaa/go-bookstore/internal/wishlist/store"
	"github.com/sakashimaa/go-bookstore/pkg/db"
	"github.com/sakashimaa/go-bookstore/pkg/events"
	"github.com/sakashimaa/go-bookstore/pkg/kafka"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	outboxrepository "github.com/sakashimaa/go-bookstore/pkg/outbox/repository"
	"github.com/sakashimaa/go-bookstore/pkg/outbox/worker"
	"github.com/sakashimaa/go-bookstore/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, "bookstore", cfg.Env)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}
	defer pool.Close()

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
	defer func() {
		_ = redisClient.Close()
	}()

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("failed to create kafka producer: %v", err)
	}
	defer func() {
		_ = kafkaProducer.Close()
	}()

	// Repositories and shared infrastructure.
	outboxRepo := outboxrepository.NewOutboxRepository(pool, logger)
	bookRepo := catalogrepository.NewBookRepository(pool, logger)
	stockRepo := stockrepository.NewStockRepository(pool)
	orderRepo := orderrepository.NewOrderRepository(pool)
	couponRepo := discountrepository.NewCouponRepository(pool)
	userRepo := userrepository.NewUserRepository(pool)

	dispatcher := events.NewDispatcher(logger)

	// Services.
	catalogSvc := catalogservice.NewCachedCatalogService(
		catalogservice.NewCatalogService(bookRepo, logger),
		redisClient,
	)
	stockSvc := stockservice.NewStockService(pool, stockRepo, logger)
	cartSvc := cartservice.NewCartService(
		cartstore.NewRedisStore(redisClient, cfg.Cart.TTL),
		catalogSvc,
		logger,
	)
	discountSvc := discountservice.NewDiscountService(couponRepo)
	orderSvc := orderservice.NewOrderService(pool, orderRepo, outboxRepo, stockSvc, catalogSvc, dispatcher, cfg.Kafka.OrderTopic, logger)
	checkoutSvc := checkoutservice.NewCheckoutService(
		pool,
		cartSvc,
		stockSvc,
		orderRepo,
		discountSvc,
		outboxRepo,
		dispatcher,
		cfg.Kafka.OrderTopic,
		logger,
	)
	paymentSvc := paymentservice.NewPaymentService(
		gateway.NewHTTPGateway(gateway.Config{
			BaseURL: cfg.Payment.BaseURL,
			APIKey:  cfg.Payment.APIKey,
			Timeout: cfg.Payment.Timeout,
		}),
		orderSvc,
		cfg.Payment.Currency,
		logger,
	)
	notificationSvc := notificationservice.NewNotificationService(
		email.NewSMTPSender(cfg.SMTP, logger),
		userRepo,
		logger,
	)
	wishlistSvc := wishlistservice.NewWishlistService(
		wishliststore.NewRedisStore(redisClient),
		catalogSvc,
		logger,
	)

	// Event wiring happens once, before the first publish freezes the
	// registry.
	dispatcher.Subscribe(orderdomain.OrderCreated{}.EventName(), paymentSvc.OrderCreatedHandler())
	dispatcher.Subscribe(orderdomain.OrderCreated{}.EventName(), notificationSvc.OrderCreatedHandler())
	dispatcher.Subscribe(orderdomain.OrderCancelled{}.EventName(), notificationSvc.OrderCancelledHandler())

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepo, kafkaProducer, logger)
	go outboxProcessor.Start(ctx)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTP.Timeout,
		WriteTimeout: cfg.HTTP.Timeout,
	})

	transport.RegisterRoutes(app, &transport.Handlers{
		Cart:     handler.NewCartHandler(cartSvc, logger),
		Checkout: handler.NewCheckoutHandler(checkoutSvc, logger),
		Stock:    handler.NewStockHandler(stockSvc, logger),
		Order:    handler.NewOrderHandler(orderSvc, logger),
		Catalog:  handler.NewCatalogHandler(catalogSvc, logger),
		Payment:  handler.NewPaymentHandler(paymentSvc, logger),
		Wishlist: handler.NewWishlistHandler(wishlistSvc, logger),
		Discount: handler.NewDiscountHandler(discountSvc, logger),
	})

	go func() {
		mylogger.Info(ctx, logger, "HTTP server listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	mylogger.Info(shutdownCtx, logger, "Shutting down bookstore server")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down http server", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}
}
