package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/metrics/counter"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/statistics"
)

// HandleAdminDashboard returns the cached marketplace totals.
func HandleAdminDashboard(c *fiber.Ctx) error {
	statistics.UpdateCacheIfNeeded()
	return c.JSON(statistics.GetDashboardData())
}

// HandleAdminFlushCounters forces the buffered view counters into MySQL.
// Normally the background flusher takes care of this.
func HandleAdminFlushCounters(c *fiber.Ctx) error {
	if err := counter.FlushAll(); err != nil {
		log.Printf("counter flush failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "counter flush failed",
		})
	}
	return c.JSON(fiber.Map{"flushed": true})
}
