package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reelflow/reelflow-api/internal/service"
)

type WebhookHandler struct {
	s service.WebhookService
}

func NewWebhookHandler(s service.WebhookService) *WebhookHandler {
	return &WebhookHandler{s: s}
}

// HandlePlatformWebhook acknowledges every delivery it can parse. Returning
// an error status for business failures would only trigger a redelivery
// storm from the platform; those are absorbed and logged by the service.
func (h *WebhookHandler) HandlePlatformWebhook(c *fiber.Ctx) error {
	if err := h.s.Handle(c.Context(), c.Body()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse webhook body",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "ok",
	})
}
