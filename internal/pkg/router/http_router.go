package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MitchCasey/ReviewPing/app/controllers"
	"github.com/MitchCasey/ReviewPing/app/repository"
	"github.com/MitchCasey/ReviewPing/internal/pkg/cache"
	"github.com/MitchCasey/ReviewPing/internal/pkg/clicksend"
	"github.com/MitchCasey/ReviewPing/internal/pkg/dedup"
	"github.com/MitchCasey/ReviewPing/internal/pkg/env"
	"github.com/MitchCasey/ReviewPing/internal/pkg/ledger"
	"github.com/MitchCasey/ReviewPing/internal/pkg/oauth"
	"github.com/MitchCasey/ReviewPing/internal/pkg/payments"
	"github.com/MitchCasey/ReviewPing/internal/pkg/phone"
	"github.com/MitchCasey/ReviewPing/internal/pkg/reviews"
	"github.com/MitchCasey/ReviewPing/internal/pkg/session"
	"github.com/MitchCasey/ReviewPing/internal/pkg/sms"
	"github.com/MitchCasey/ReviewPing/internal/pkg/xero"
)

type HttpRouter struct {
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	repos := repository.GetGlobalRepositories()
	xeroClient := xero.NewClientFromEnv()
	ldg := ledger.NewService(repos.Account)

	// Webhook dedup shares its window across instances when Redis is up;
	// otherwise it degrades to a process-local window.
	var deduper dedup.Deduper
	if cache.GetClient() != nil {
		deduper = dedup.NewRedis(0)
	} else {
		deduper = dedup.NewMemory(0)
	}

	controllers.InitializeOAuthController(xeroClient)
	controllers.InitializeWebhookControllers(
		reviews.NewService(reviews.Config{
			Accounts:    repos.Account,
			Connections: repos.ProviderConnection,
			Requests:    repos.ReviewRequest,
			Ledger:      ldg,
			Accounting:  xeroClient,
			Sender:      clicksend.NewClientFromEnv(),
			Deduper:     deduper,
			Normalizer:  phone.NewNormalizer(env.GetEnv("SMS_COUNTRY_CODE", "61")),
			Calculator:  sms.NewCalculator(),
			WebhookKey:  env.MustGetEnv("XERO_WEBHOOK_KEY"),
		}),
		payments.NewServiceFromEnv(repos.Account, ldg, deduper),
	)

	h.registerRoutes(app)
}

func (h HttpRouter) registerRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/webhook/xero", controllers.HandleXeroWebhook)
	app.Post("/webhook/stripe", controllers.HandleStripeWebhook)

	app.Get("/connect/xero", controllers.HandleXeroConnect)
	app.Get("/connect/xero/callback", controllers.HandleXeroCallback)
	app.Get("/connect/google", controllers.HandleGoogleConnect)
	app.Get("/connect/google/callback", controllers.HandleGoogleCallback)

	// Landing target for the consent flow redirects.
	app.Get("/connected", func(c *fiber.Ctx) error {
		return c.SendString("Connection complete. You can close this window.")
	})
}
