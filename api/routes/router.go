package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmyapp/farmyapp-backend/api/controllers"
	"github.com/farmyapp/farmyapp-backend/api/middleware"
	bookingsvc "github.com/farmyapp/farmyapp-backend/internal/bookings"
	cartsvc "github.com/farmyapp/farmyapp-backend/internal/cart"
	"github.com/farmyapp/farmyapp-backend/internal/notifications"
	ordersvc "github.com/farmyapp/farmyapp-backend/internal/orders"
	partysvc "github.com/farmyapp/farmyapp-backend/internal/party"
	"github.com/farmyapp/farmyapp-backend/internal/payouts"
	productsvc "github.com/farmyapp/farmyapp-backend/internal/products"
	"github.com/farmyapp/farmyapp-backend/internal/transactions"
	"github.com/farmyapp/farmyapp-backend/internal/wallet"
	"github.com/farmyapp/farmyapp-backend/pkg/config"
	"github.com/farmyapp/farmyapp-backend/pkg/db"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
	"github.com/farmyapp/farmyapp-backend/pkg/redis"
)

// NewRouter wires every HTTP surface of the marketplace API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache redis.Pinger,
	productService productsvc.Service,
	cartService cartsvc.Service,
	orderService ordersvc.Service,
	bookingService bookingsvc.Service,
	walletService wallet.Service,
	ledgerService transactions.Service,
	payoutService payouts.Service,
	notificationService notifications.Service,
	gateway controllers.PaymentGateway,
	partyService partysvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})

	// Payment gateway redirects land here after hosted checkout, so these
	// routes stay outside the auth group.
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/orders/callback", controllers.OrderPaymentCallback(orderService, logg))
		r.Get("/bookings/callback", controllers.BookingPaymentCallback(bookingService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/initialize", controllers.PaymentInitialize(gateway, partyService, logg))
			r.Get("/verify", controllers.PaymentVerify(gateway, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(productService, logg))
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/{productID}", controllers.ProductGet(productService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{productID}", controllers.CartEditQuantity(cartService, logg))
			r.Delete("/items/{productID}", controllers.CartRemoveItem(cartService, logg))
			r.Post("/negotiate", controllers.CartNegotiatePrice(cartService, logg))
			r.Post("/delivery", controllers.CartChooseDelivery(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/checkout", controllers.OrderCheckout(orderService, logg))
			r.Get("/", controllers.OrderListMine(orderService, logg))
			r.Get("/sales", controllers.OrderListSales(orderService, logg))
			r.Get("/{orderID}", controllers.OrderGet(orderService, logg))
			r.Post("/{orderID}/mark-paid", controllers.OrderMarkPaid(orderService, logg))
			r.Post("/{orderID}/status", controllers.OrderUpdateStatus(orderService, logg))
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", controllers.VehicleRegister(bookingService, logg))
			r.Get("/", controllers.VehicleList(bookingService, logg))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", controllers.BookingCreate(bookingService, logg))
			r.Get("/", controllers.BookingListMine(bookingService, logg))
			r.Get("/fleet", controllers.BookingListFleet(bookingService, logg))
			r.Get("/{bookingID}", controllers.BookingGet(bookingService, logg))
			r.Post("/{bookingID}/status", controllers.BookingUpdateStatus(bookingService, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletGet(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(ledgerService, logg))
			r.Post("/withdraw", controllers.PayoutWithdraw(payoutService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(notificationService, logg))
			r.Post("/{notificationID}/read", controllers.NotificationMarkRead(notificationService, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(notificationService, logg))
		})
	})

	return r
}
