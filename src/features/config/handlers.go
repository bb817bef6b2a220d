package config

import (
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// HandleGetConfig returns the redacted configuration as JSON.
func (h *Handler) HandleGetConfig(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/json")
	return c.SendString(h.manager.GetJSON())
}

// HandleGetConfigYAML returns the redacted configuration as YAML.
func (h *Handler) HandleGetConfigYAML(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/yaml")
	return c.SendString(h.manager.GetYAML())
}
