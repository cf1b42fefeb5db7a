package routes

import "github.com/gofiber/fiber/v2"

func Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Traccar to GBFS is running!",
	})
}
