package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

// Scheduler is the part of the publish job the admin endpoints drive.
type Scheduler interface {
	RunOnce(ctx context.Context) (transfer.TickResult, bool)
	Stats() models.RunStats
}

type SchedulerHandler struct {
	s Scheduler
}

func NewSchedulerHandler(scheduler Scheduler) *SchedulerHandler {
	return &SchedulerHandler{s: scheduler}
}

func (h *SchedulerHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *SchedulerHandler) Stats(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.s.Stats())
}

// Run triggers a tick outside the timer and answers once it completes.
func (h *SchedulerHandler) Run(c *fiber.Ctx) error {
	result, ran := h.s.RunOnce(c.Context())
	if !ran {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A publish tick is already running",
		})
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
