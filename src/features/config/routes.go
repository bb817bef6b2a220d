package config

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, manager *Manager) {
	handler := NewHandler(manager)
	cfg := app.Group("/config")
	cfg.Get("/", handler.HandleGetConfig)
	cfg.Get("/yaml", handler.HandleGetConfigYAML)
}
