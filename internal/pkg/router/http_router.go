package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tradiehq/TradieHQ/app/controllers"
	"github.com/tradiehq/TradieHQ/internal/pkg/constants"
	"github.com/tradiehq/TradieHQ/internal/pkg/middleware"
	"github.com/tradiehq/TradieHQ/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	app.Get("/up", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post(constants.RegisterRoute, controllers.HandleRegister)
	app.Post(constants.LoginRoute, controllers.HandleLogin)
	app.Post(constants.LogoutRoute, middleware.RequireAPISessionAuth, controllers.HandleLogout)

	h.registerAdminRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
