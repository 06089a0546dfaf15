package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/NkwentiSevian/ConstructionMarket/app/controllers"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max: 120,
		// Webhooks arrive in bursts during provider retries, never throttle them.
		Next: func(c *fiber.Ctx) bool {
			return len(c.Params("provider")) > 0
		},
	}))

	v1 := api.Group("/v1")

	auth := v1.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)
	auth.Post("/logout", middleware.RequireAuth, controllers.HandleLogout)

	companies := v1.Group("/companies")
	companies.Get("/", controllers.HandleListCompanies)
	companies.Post("/", middleware.RequireAuth, controllers.HandleCreateCompany)
	companies.Get("/:id", controllers.HandleGetCompany)
	companies.Get("/:id/payments", middleware.RequireAuth, controllers.HandlePaymentHistory)

	categories := v1.Group("/categories")
	categories.Get("/", controllers.HandleListCategories)
	categories.Post("/", middleware.RequireAdmin, controllers.HandleCreateCategory)
	categories.Put("/:id", middleware.RequireAdmin, controllers.HandleUpdateCategory)
	categories.Delete("/:id", middleware.RequireAdmin, controllers.HandleDeleteCategory)

	pay := v1.Group("/payments")
	pay.Post("/", middleware.RequireAuth, controllers.HandleCreatePayment)
	pay.Get("/:orderID/verify", controllers.HandleVerifyPayment)
	pay.Post("/:orderID/refund", middleware.RequireAdmin, controllers.HandleRefundPayment)
	// Gateways call this unauthenticated, adapters verify the signature.
	pay.Post("/webhook/:provider", controllers.HandlePaymentWebhook)

	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/dashboard", controllers.HandleAdminDashboard)
	admin.Post("/counters/flush", controllers.HandleAdminFlushCounters)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
