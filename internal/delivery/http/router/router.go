package router

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/delivery/http/handler"
	"mentor-agenda/internal/delivery/http/middleware"
	"mentor-agenda/internal/domain/entity"
)

type Router struct {
	app             *fiber.App
	config          *config.Config
	company         *middleware.Company
	healthHandler   *handler.HealthHandler
	oauthHandler    *handler.OAuthHandler
	eventsHandler   *handler.EventsHandler
	whatsAppHandler *handler.WhatsAppHandler
}

func NewRouter(
	cfg *config.Config,
	company *middleware.Company,
	healthHandler *handler.HealthHandler,
	oauthHandler *handler.OAuthHandler,
	eventsHandler *handler.EventsHandler,
	whatsAppHandler *handler.WhatsAppHandler,
) *Router {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: customErrorHandler,
	})

	return &Router{
		app:             app,
		config:          cfg,
		company:         company,
		healthHandler:   healthHandler,
		oauthHandler:    oauthHandler,
		eventsHandler:   eventsHandler,
		whatsAppHandler: whatsAppHandler,
	}
}

func (r *Router) Setup() *fiber.App {
	// Middleware
	r.app.Use(recover.New())
	r.app.Use(requestid.New())
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Hub-Signature-256",
	}))

	if r.config.IsDevelopment() {
		r.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	r.app.Get("/health", r.healthHandler.Health)

	// Google consent, no token required yet
	auth := r.app.Group("/auth/:companyId", r.company.ResolveCompany)
	{
		auth.Get("", r.oauthHandler.Authorize)
		auth.Get("/oauth2callback", r.oauthHandler.OAuthCallback)
	}

	events := r.app.Group("/events/:companyId", r.company.ResolveCompany, r.company.EnsureToken)
	{
		events.Get("", r.eventsHandler.ListEvents)
		events.Post("/add", r.eventsHandler.AddEvent)
	}

	// WhatsApp Flow data endpoint
	r.app.Post("/whatsapp/:companyId", r.company.ResolveCompany, r.whatsAppHandler.FlowEndpoint)

	return r.app
}

func (r *Router) GetApp() *fiber.App {
	return r.app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	requestID, _ := c.Locals("requestid").(string)
	return c.Status(code).JSON(
		entity.NewErrorResponse(utils.StatusMessage(code), err.Error()).WithRequestID(requestID),
	)
}
