package handlers

import (
	"context"

	"github.com/adelarp/PraxisBack/internal/services"
	"github.com/gofiber/fiber/v2"
)

type RenewalHandler struct {
	service renewalRunner
}

type renewalRunner interface {
	RunRenewals(ctx context.Context) ([]services.RenewalResult, error)
}

func NewRenewalHandler(service renewalRunner) *RenewalHandler {
	return &RenewalHandler{service: service}
}

// Run triggers one renewal sweep and reports the per-patient outcomes.
func (h *RenewalHandler) Run(c *fiber.Ctx) error {
	results, err := h.service.RunRenewals(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Renewal sweep failed"})
	}
	return c.JSON(fiber.Map{"results": results})
}
