package migrating

import (
	"sort"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleStatus reports the orchestrator state and the in-flight run, if any.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"state":   h.service.State(),
		"current": h.service.Current(),
	})
}

// HandleTrigger queues a manual migration request. Requests arriving while a
// run is active coalesce exactly like filesystem flushes do.
func (h *Handler) HandleTrigger(c *fiber.Ctx) error {
	queued := h.service.Request("manual trigger")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"queued":    queued,
		"coalesced": !queued,
	})
}

// HandleRunList returns the recorded run history, newest first.
func (h *Handler) HandleRunList(c *fiber.Ctx) error {
	runs, err := h.service.Runs(c.Context())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return c.JSON(runs)
}

// HandleRunStatus returns a single recorded run by id.
func (h *Handler) HandleRunStatus(c *fiber.Ctx) error {
	run, err := h.service.Run(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(404).SendString("Run not found")
	}
	return c.JSON(run)
}
