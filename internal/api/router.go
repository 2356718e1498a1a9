/**
 * @description
 * This file sets up the HTTP router for the payments-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS handling for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/achpay/payments-service/internal/app"
)

// RouterOptions carries the cross-cutting dependencies of the router.
type RouterOptions struct {
	JWTSecret      string
	RateLimiter    *app.RedisRateLimiter
	MutationLimit  int
	MutationWindow time.Duration
}

// PaymentRoutes creates and returns a new router for the payments service.
func PaymentRoutes(h *PaymentHandlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.JWTSecret))
		r.Use(RateLimitMiddleware(opts.RateLimiter, opts.MutationLimit, opts.MutationWindow))

		// Payment record endpoints
		r.Get("/transactions", h.ListTransactionsHandler)
		r.Get("/transactions/range", h.DateRangeHandler)
		r.Get("/transactions/{confirmation}", h.GetRecordHandler)
		r.Post("/transactions/{id}/cancel", h.CancelRecordHandler)
		r.Get("/receivables", h.ListReceivablesHandler)

		// Recurring schedule endpoints
		r.Post("/recurring-schedules", h.CreateScheduleHandler)
		r.Get("/recurring-schedules", h.ListSchedulesHandler)
		r.Get("/recurring-schedules/{id}", h.GetScheduleHandler)
		r.Put("/recurring-schedules/{id}", h.UpdateScheduleHandler)
		r.Post("/recurring-schedules/{id}/status", h.ScheduleStatusHandler)
		r.Delete("/recurring-schedules/{id}", h.DeleteScheduleHandler)

		// Payee endpoints
		r.Post("/payees", h.CreatePayeeHandler)
		r.Get("/payees", h.ListPayeesHandler)
		r.Get("/payees/{id}", h.GetPayeeHandler)
		r.Put("/payees/{id}", h.UpdatePayeeHandler)
		r.Delete("/payees/{id}", h.DeletePayeeHandler)
		r.Post("/payees/{id}/banks", h.LinkPayeeBankHandler)

		// Funding bank account endpoints
		r.Post("/banks", h.CreateBankAccountHandler)
		r.Get("/banks", h.ListBankAccountsHandler)
		r.Get("/banks/{id}", h.GetBankAccountHandler)
		r.Delete("/banks/{id}", h.DeleteBankAccountHandler)
	})

	return r
}
