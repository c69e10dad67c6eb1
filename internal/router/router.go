package router

import (
	"log"
	"net/http"

	"github.com/brewtab/api/internal/alert"
	"github.com/brewtab/api/internal/config"
	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/brewtab/api/internal/handler"
	mw "github.com/brewtab/api/internal/middleware"
	"github.com/brewtab/api/internal/service"
	"github.com/brewtab/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Customer routes are open (reachable from a QR scan); staff routes sit
// behind JWT auth and cafe scoping.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, tracker *alert.Tracker) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",       // dev frontend
			"https://app.brewtab.io",      // customer app
			"https://staff.brewtab.io",    // staff dashboard
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Services
	newOrderStore := func(tx pgx.Tx) service.OrderStore {
		return queries.WithTx(tx)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore, service.Policy{
		AllowBackward: cfg.AllowBackwardTransitions,
	})
	newTableStore := func(tx pgx.Tx) service.TableStore {
		return queries.WithTx(tx)
	}
	tableService := service.NewTableService(pool, queries, newTableStore)
	newBillingStore := func(tx pgx.Tx) service.BillingStore {
		return queries.WithTx(tx)
	}
	billingService := service.NewBillingService(pool, queries, newBillingStore)

	// Handlers
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	orderHandler := handler.NewOrderHandler(orderService, hub, tracker)
	tableHandler := handler.NewTableHandler(tableService, queries, hub)
	sessionHandler := handler.NewSessionHandler(tableService, queries)
	billingHandler := handler.NewBillingHandler(billingService)
	helpHandler := handler.NewHelpRequestHandler(queries, hub)
	menuHandler := handler.NewMenuHandler(queries)
	cafeHandler := handler.NewCafeHandler(queries)
	employeeHandler := handler.NewEmployeeHandler(queries)
	reviewHandler := handler.NewReviewHandler(queries)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler.RegisterRoutes(r)
	orderHandler.RegisterPublicRoutes(r)
	tableHandler.RegisterPublicRoutes(r)
	sessionHandler.RegisterPublicRoutes(r)
	billingHandler.RegisterPublicRoutes(r)
	helpHandler.RegisterPublicRoutes(r)
	cafeHandler.RegisterPublicRoutes(r)
	reviewHandler.RegisterPublicRoutes(r)

	// Public menu browse, cafe-scoped from the QR URL.
	r.Get("/cafes/{cid}/menu", menuHandler.Menu)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/cafes/{cid}/alerts", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Admin-only tenant management, not cafe-scoped.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))
			cafeHandler.RegisterAdminRoutes(r)
		})

		// Cafe-scoped staff routes
		r.Route("/cafes/{cid}", func(r chi.Router) {
			r.Use(mw.RequireCafe)

			r.Get("/", cafeHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin))
				r.Put("/", cafeHandler.Update)
				r.Delete("/", cafeHandler.Delete)
			})

			orderHandler.RegisterStaffRoutes(r)
			orderHandler.RegisterStatusRoute(r)
			tableHandler.RegisterStaffRoutes(r)
			sessionHandler.RegisterStaffRoutes(r)
			billingHandler.RegisterStaffRoutes(r)
			helpHandler.RegisterStaffRoutes(r)
			menuHandler.RegisterStaffRoutes(r)
			reviewHandler.RegisterStaffRoutes(r)

			// Staff management and order deletion are admin-only.
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin))
				employeeHandler.RegisterRoutes(r)
				orderHandler.RegisterAdminRoutes(r)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
