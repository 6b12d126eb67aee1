package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ecellhq/launchpad/internal/pkg/leaderboard"
)

// HandleLeaderboard serves the cached points ranking
func HandleLeaderboard(c *fiber.Ctx) error {
	entries, err := leaderboard.GetLeaderboard()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load leaderboard")
	}
	return c.JSON(fiber.Map{"leaderboard": entries})
}
