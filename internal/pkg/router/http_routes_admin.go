package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tradiehq/TradieHQ/app/controllers"
	"github.com/tradiehq/TradieHQ/internal/pkg/constants"
	"github.com/tradiehq/TradieHQ/internal/pkg/middleware"
)

// registerAdminRoutes installs the operator endpoints for the CRM sync queue.
func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	admin := app.Group(constants.AdminRoute, middleware.RequireAdmin)

	hubspot := admin.Group("/hubspot")
	ac := controllers.GetAdminHubspotController()
	hubspot.Get("/dlq", ac.HandleListDeadLetters)
	hubspot.Post("/dlq/:id/requeue", ac.HandleRequeueDeadLetter)
	hubspot.Get("/metrics", ac.HandleGetSyncMetrics)
	hubspot.Post("/backfill", ac.HandleBackfill)
	hubspot.Post("/run", ac.HandleRunSyncPass)
}
