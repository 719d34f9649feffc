package routes

import (
	"github.com/gofiber/fiber/v2"

	"zahlung-backend/controllers"
	"zahlung-backend/idempotency"
	"zahlung-backend/middlewares"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, store idempotency.Store, gateCfg middlewares.IdempotencyConfig) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/registration", controllers.Register)
	api.Post("/login", controllers.Login)
	api.Post("/logout", controllers.Logout)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.IsAuthenticatedHeader())

	// Idempotency guard runs after auth (so claims can record the acting
	// user) and in front of all mutating handlers; its records are never
	// tied to a handler transaction.
	protected.Use(middlewares.Idempotency(store, gateCfg))

	// Accounts
	protected.Post("/account", controllers.CreateAccount)
	protected.Get("/account/:id", controllers.GetAccount)

	// Payments
	protected.Post("/payment/debit", controllers.DebitPayment)
	protected.Get("/payments", controllers.ListPayments)

	// Orders
	protected.Post("/order", controllers.CreateOrder)
	protected.Get("/orders", controllers.GetOrders)
	protected.Get("/order/:id", controllers.GetOrder)
}
