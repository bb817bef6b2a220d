package migrating

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)
	app.Get("/status", handler.HandleStatus)
	app.Post("/migrate", handler.HandleTrigger)
	runs := app.Group("/runs")
	runs.Get("/", handler.HandleRunList)
	runs.Get("/:id", handler.HandleRunStatus)
}
