package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reelflow/reelflow-api/internal/service"
)

type UserHandler struct {
	s service.UserService
}

func NewUserHandler(s service.UserService) *UserHandler {
	return &UserHandler{s: s}
}

func (h *UserHandler) GetUserInfo(c *fiber.Ctx) error {
	userID := GetUserID(c)

	user, err := h.s.GetUserInfo(c.Context(), userID)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": "Unable to get user info",
		})
	}

	return c.Status(fiber.StatusOK).JSON(user)
}

func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if err := h.s.RemoveUser(c.Context(), userID); err != nil {
		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": "Unable to delete user",
		})
	}

	c.ClearCookie()
	return c.SendStatus(fiber.StatusOK)
}
