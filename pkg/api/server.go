package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/gbfs/pkg/api/routes"
)

func NewApp(feeds *routes.Feeds) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/", routes.Root)
	webApp.Get("/gbfs.json", feeds.Discovery)

	routes.GBFSRouter(webApp.Group("/gbfs"), feeds)

	return webApp
}
