package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/farmyapp/farmyapp-backend/api/routes"
	"github.com/farmyapp/farmyapp-backend/internal/bookings"
	"github.com/farmyapp/farmyapp-backend/internal/cart"
	"github.com/farmyapp/farmyapp-backend/internal/notifications"
	"github.com/farmyapp/farmyapp-backend/internal/orders"
	"github.com/farmyapp/farmyapp-backend/internal/party"
	"github.com/farmyapp/farmyapp-backend/internal/payouts"
	"github.com/farmyapp/farmyapp-backend/internal/products"
	"github.com/farmyapp/farmyapp-backend/internal/transactions"
	"github.com/farmyapp/farmyapp-backend/internal/wallet"
	"github.com/farmyapp/farmyapp-backend/pkg/config"
	"github.com/farmyapp/farmyapp-backend/pkg/db"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
	"github.com/farmyapp/farmyapp-backend/pkg/migrate"
	"github.com/farmyapp/farmyapp-backend/pkg/paystack"
	"github.com/farmyapp/farmyapp-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paystackClient, err := paystack.NewClient(cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	partyService, err := party.NewService(party.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create party service", err)
		os.Exit(1)
	}

	productsRepo := products.NewRepository(dbClient.DB())
	productService, err := products.NewService(productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), dbClient, productsRepo, bookings.NewVehicleRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ledgerRepo := transactions.NewRepository(dbClient.DB())
	ledgerService, err := transactions.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	bookingService, err := bookings.NewService(
		bookings.NewRepository(dbClient.DB()),
		bookings.NewVehicleRepository(dbClient.DB()),
		dbClient,
		walletService,
		ledgerService,
		partyService,
		paystackClient,
		notificationService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create bookings service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		cartService,
		walletService,
		ledgerService,
		productsRepo,
		partyService,
		bookingService,
		paystackClient,
		notificationService,
		logg,
		cfg.Settlement.ReviewReminderDelay,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(
		ledgerRepo,
		ledgerService,
		dbClient,
		walletService,
		partyService,
		paystackClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			productService,
			cartService,
			orderService,
			bookingService,
			walletService,
			ledgerService,
			payoutService,
			notificationService,
			paystackClient,
			partyService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
