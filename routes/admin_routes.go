package routes

import (
	"github.com/anjiri1684/academy_billing/handlers"
	"github.com/anjiri1684/academy_billing/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.AdminHandler) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())

	admin.Post("/reallocations", h.TriggerReallocation)
	admin.Put("/classes/:classId/status", h.UpdateClassStatus)

	admin.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	admin.Get("/ws", websocket.New(h.ServeWs))
}
