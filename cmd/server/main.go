package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/marketplace/internal/app"
	"github.com/linemk/marketplace/internal/app/handlers"
	appmw "github.com/linemk/marketplace/internal/app/middleware"
	"github.com/linemk/marketplace/internal/clients/courier"
	"github.com/linemk/marketplace/internal/clients/razorpay"
	"github.com/linemk/marketplace/internal/config"
	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/lib/logger"
	"github.com/linemk/marketplace/internal/lib/logger/handlers/urllog"
	lredis "github.com/linemk/marketplace/internal/lib/redis"
	"github.com/linemk/marketplace/internal/security/jwtmiddleware"
	"github.com/linemk/marketplace/internal/service"
	"github.com/linemk/marketplace/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env, logger.ServiceAPI)
	log.Info("starting app")

	// загружаем объект приложения: конфиг, подключения к БД и Redis
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(appmw.CORS(cfg.HTTPServer.CORSOrigin))
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)

	// реализация слоев по работе с БД по каждому направлению
	db := application.DB
	userRepo := storage.NewUserRepository(db)
	vendorRepo := storage.NewVendorRepository(db)
	productRepo := storage.NewProductRepository(db)
	cartRepo := storage.NewCartRepository(db)
	addressRepo := storage.NewAddressRepository(db)
	orderRepo := storage.NewOrderRepository(db)
	shipRepo := storage.NewShipmentRepository(db)
	paymentRepo := storage.NewPaymentRepository(db)
	outboxRepo := storage.NewOutboxRepository(db)

	// внешние API
	courierClient := courier.New(cfg.Courier.BaseURL, cfg.Courier.Token, cfg.Courier.Timeout)
	gateway := razorpay.New(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.Timeout)

	authService := service.NewAuthService(log, userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	catalogService := service.NewCatalogService(log, db, vendorRepo, productRepo)
	cartService := service.NewCartService(log, cartRepo, productRepo)
	addressService := service.NewAddressService(log, addressRepo)
	orderService := service.NewOrderService(log, orderRepo, shipRepo)
	checkoutService := service.NewCheckoutService(log, db, cartRepo, addressRepo, vendorRepo, productRepo,
		orderRepo, shipRepo, outboxRepo, courierClient)
	paymentService := service.NewPaymentService(log, db, orderRepo, paymentRepo, shipRepo, outboxRepo,
		gateway, cfg.Payment.WebhookSecret, cfg.Payment.Currency)
	fulfilmentService := service.NewFulfilmentService(log, db, orderRepo, shipRepo, vendorRepo, addressRepo,
		productRepo, outboxRepo, courierClient, lredis.NewLocker(application.Redis), service.FulfilmentConfig{
			LockTTL:     cfg.Redis.LockTTL,
			Concurrency: cfg.Outbox.BookingConcurrency,
		})

	limiter := lredis.NewRateLimiter(application.Redis)
	rateLimit := func(route string) func(http.Handler) http.Handler {
		return appmw.RateLimit(log, limiter, route, cfg.Redis.RateLimit, cfg.Redis.RateWindow)
	}

	// публичные эндпоинты
	router.Post("/api/auth/register", handlers.RegisterHandler(log, authService))
	router.Post("/api/auth/login", handlers.LoginHandler(log, authService))
	router.Get("/api/products", handlers.ListProductsHandler(log, catalogService))
	router.Get("/api/products/{id}", handlers.GetProductHandler(log, catalogService))
	// вебхук платёжного шлюза защищён подписью, а не токеном
	router.Post("/webhook", handlers.WebhookHandler(log, paymentService))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.New(cfg.JWT.Secret))

		// покупатель
		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.RequireRole(models.RoleCustomer))

			r.Get("/api/addresses", handlers.ListAddressesHandler(log, addressService))
			r.Post("/api/addresses", handlers.CreateAddressHandler(log, addressService))

			r.Get("/api/cart", handlers.GetCartHandler(log, cartService))
			r.Post("/api/cart", handlers.AddToCartHandler(log, cartService))
			r.Patch("/api/cart/{itemID}", handlers.UpdateCartItemHandler(log, cartService))
			r.Delete("/api/cart/{itemID}", handlers.RemoveCartItemHandler(log, cartService))

			r.With(rateLimit("checkout")).Post("/api/checkout", handlers.CheckoutHandler(log, checkoutService))
			r.With(rateLimit("buy-now")).Post("/api/buy-now", handlers.BuyNowHandler(log, checkoutService))

			r.Get("/api/orders", handlers.ListOrdersHandler(log, orderService))
			r.Get("/api/orders/{id}", handlers.GetOrderHandler(log, orderService))
			r.Post("/api/orders/{id}/pay", handlers.PayOrderHandler(log, paymentService))
			r.Post("/api/orders/{id}/cancel", handlers.CancelOrderHandler(log, fulfilmentService))
		})

		// продавец
		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.RequireRole(models.RoleVendor))

			r.Post("/api/vendor/onboard", handlers.OnboardVendorHandler(log, catalogService))
			r.Get("/api/vendor/products", handlers.ListVendorProductsHandler(log, catalogService))
			r.Post("/api/vendor/products", handlers.CreateProductHandler(log, catalogService))
			r.Patch("/api/vendor/variants/{id}/stock", handlers.UpdateStockHandler(log, catalogService))
		})

		// менеджер продавцов
		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.RequireRole(models.RoleVendorManager))

			r.Get("/api/manager/vendors/pending", handlers.ListPendingVendorsHandler(log, catalogService))
			r.Post("/api/manager/vendors/{id}/review", handlers.ReviewVendorHandler(log, catalogService))
			r.Get("/api/manager/products/pending", handlers.ListPendingProductsHandler(log, catalogService))
			r.Post("/api/manager/products/{id}/review", handlers.ReviewProductHandler(log, catalogService))
		})

		// склад
		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.RequireRole(models.RoleWarehouse))

			r.Get("/api/warehouse/shipments", handlers.ListShipmentsHandler(log, fulfilmentService))
			r.Patch("/api/warehouse/shipments/{id}/status", handlers.UpdateShipmentStatusHandler(log, fulfilmentService))
		})
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
