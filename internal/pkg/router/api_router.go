package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/MitchCasey/ReviewPing/app/controllers"
	"github.com/MitchCasey/ReviewPing/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())
	v1.Get("/account", controllers.HandleGetAccount)
	v1.Put("/account", controllers.HandleUpdateAccount)
	v1.Get("/account/requests", controllers.HandleListReviewRequests)
	v1.Post("/account/api-key/rotate", controllers.HandleRotateAPIKey)
}
