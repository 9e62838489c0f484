package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/tradiehq/TradieHQ/app/controllers"
	"github.com/tradiehq/TradieHQ/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes: session-authenticated JSON surface
	v1 := api.Group("/v1", middleware.RequireAPISessionAuth)

	v1.Get("/me", controllers.HandleGetAccount)
	v1.Get("/notifications", controllers.HandleListNotifications)
	v1.Post("/notifications/:id/read", controllers.HandleMarkNotificationRead)

	v1.Post("/jobs", controllers.HandleCreateJob)
	v1.Get("/jobs", controllers.HandleListMyJobs)
	v1.Post("/jobs/:id/assign", controllers.HandleAssignJob)
	v1.Post("/jobs/:id/milestones", controllers.HandleCreateMilestone)
	v1.Get("/jobs/:id/milestones", controllers.HandleListMilestones)

	pc := controllers.GetPaymentController()
	v1.Post("/milestones/:id/payments", pc.HandleCreatePayment)
	v1.Post("/milestones/:id/verify", pc.HandleVerifyAndTransfer)
	v1.Post("/milestones/:id/request-payment", pc.HandleRequestPayment)
	v1.Get("/milestones/:id/payment", pc.HandleGetMilestonePayment)
	v1.Get("/payments", pc.HandleListMyPayments)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
