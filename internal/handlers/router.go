package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/metrics"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/realtime"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/matching"
)

type RouterDeps struct {
	Svc            *matching.Service
	Hub            *realtime.Hub
	JWTSecret      string
	AllowedOrigins string
	Log            *zap.Logger
}

func NewRouter(d RouterDeps) *fiber.App {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))
	app.Use(metrics.Middleware())

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	projectH := NewProjectHandler(d.Svc, log)
	proposalH := NewProposalHandler(d.Svc, log)
	categoryH := NewCategoryHandler(d.Svc, log)
	dashboardH := NewFreelancerDashboardHandler(d.Svc, proposalH, log)

	api := app.Group("/api")

	// public; a token, when present, identifies the viewer
	optional := middleware.OptionalJWT(d.JWTSecret)
	api.Get("/categories", categoryH.GetCategories)
	api.Get("/projects", projectH.ListProjects)
	api.Get("/projects/:id", optional, projectH.GetProject)

	// protected (JWT), attached per route so unknown /api paths still 404
	jwtAuth := middleware.JWTFromRequest(d.JWTSecret)
	locals := middleware.AttachJWTLocals()
	protect := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{jwtAuth, locals, h}
	}

	api.Post("/projects", protect(projectH.CreateProject)...)
	api.Put("/projects/:id", protect(projectH.UpdateProject)...)
	api.Delete("/projects/:id", protect(projectH.DeleteProject)...)
	api.Patch("/projects/:id/status", protect(projectH.UpdateStatus)...)
	api.Get("/projects/:id/proposals", protect(projectH.ListProposals)...)

	api.Post("/proposals", protect(proposalH.CreateProposal)...)
	api.Get("/proposals/:id", protect(proposalH.GetProposal)...)
	api.Put("/proposals/:id", protect(proposalH.UpdateProposal)...)
	api.Patch("/proposals/:id/status", protect(proposalH.UpdateStatus)...)

	// freelancer only
	dashboardH.Routes(api, jwtAuth, locals, middleware.RequireRoles("freelancer"))

	if d.Hub != nil {
		notifyH := NewNotificationHandler(d.Hub, d.JWTSecret, log)
		app.Get("/ws/notifications", notifyH.Upgrade, websocket.New(notifyH.WebSocketHandler))
	}

	return app
}
