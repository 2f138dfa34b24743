package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/docmill/docmill/app/controllers"
	"github.com/docmill/docmill/internal/pkg/env"
)

// Deps carries the controllers the router wires up.
type Deps struct {
	Admin      *controllers.AdminController
	Assets     *controllers.AssetController
	Operations *controllers.OperationController
	Webhooks   *controllers.WebhookController
}

// InstallRouter registers all routes on the fiber app.
func InstallRouter(app *fiber.App, deps Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Post("/webhooks/billing", deps.Webhooks.HandleBillingWebhook)
	api.Post("/operations", deps.Operations.HandleExecute)
	api.Get("/assets/:id", deps.Assets.HandleGetAsset)
	api.Get("/assets/:id/download", deps.Assets.HandleDownloadAsset)

	admin := api.Group("/admin", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", "admin"),
		},
	}))
	admin.Get("/stats", deps.Admin.HandleStats)
	admin.Get("/stats/:date", deps.Admin.HandleDailyStat)
	admin.Get("/users", deps.Admin.HandleListUsers)
	admin.Get("/settings", deps.Admin.HandleListSettings)
	admin.Get("/settings/:key", deps.Admin.HandleGetSetting)
	admin.Put("/settings/:key", deps.Admin.HandleUpdateSetting)
	admin.Post("/reap", deps.Admin.HandleReap)
	admin.Post("/rollup", deps.Admin.HandleRollup)
}
