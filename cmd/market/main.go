package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/NkwentiSevian/ConstructionMarket/app/controllers"
	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"github.com/NkwentiSevian/ConstructionMarket/app/repository"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/cache"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/database"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/env"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/metrics/counter"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/payments"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/router"
)

const counterFlushInterval = 2 * time.Minute

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	svc := payments.NewService(repos.Payment, repos.Company, env.GetEnv("PAYMENT_DEFAULT_PROVIDER", models.PaymentProviderStripe))
	registerProviders(svc)
	controllers.SetPaymentService(svc)

	ctx := context.Background()
	payments.StartExpirySweeper(ctx, repos.Payment, payments.DefaultSweepInterval)
	startCounterFlusher(ctx)

	app := fiber.New(fiber.Config{
		AppName: "construction-market",
	})

	app.Use(recover.New(), logger.New())

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	router.InstallRouter(app)

	return app
}

// registerProviders wires every gateway whose credentials are configured.
// An unconfigured gateway simply stays unavailable instead of failing at
// request time with opaque HTTP 401s.
func registerProviders(svc *payments.Service) {
	if env.GetEnv("STRIPE_SECRET_KEY", "") != "" {
		svc.RegisterProvider(models.PaymentProviderStripe, payments.NewStripeProviderFromEnv())
	}
	if env.GetEnv("FLUTTERWAVE_SECRET_KEY", "") != "" {
		svc.RegisterProvider(models.PaymentProviderFlutterwave, payments.NewFlutterwaveProviderFromEnv())
	}
	if env.GetEnv("SWYCHR_EMAIL", "") != "" {
		svc.RegisterProvider(models.PaymentProviderSwychr, payments.NewSwychrProviderFromEnv())
	}
	log.Printf("payment providers registered: %v", svc.Providers())
}

func startCounterFlusher(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(counterFlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := counter.FlushAll(); err != nil {
					log.Printf("counter flush failed: %v", err)
				}
			}
		}
	}()
}
