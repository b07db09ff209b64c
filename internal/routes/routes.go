package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/mediscanhq/mediscan-backend/internal/config"
	"github.com/mediscanhq/mediscan-backend/internal/detection"
	"github.com/mediscanhq/mediscan-backend/internal/dto"
	"github.com/mediscanhq/mediscan-backend/internal/handlers"
	"github.com/mediscanhq/mediscan-backend/internal/middleware"
	"github.com/mediscanhq/mediscan-backend/internal/models"
	"github.com/mediscanhq/mediscan-backend/internal/portal"
	"github.com/mediscanhq/mediscan-backend/internal/services"
	"gorm.io/gorm"
)

// Setup wires every endpoint onto the app.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config, authSvc *services.AuthService, detectionSvc *detection.Service) {
	authHandler := handlers.NewAuthHandler(authSvc)
	healthHandler := handlers.NewHealthHandler()
	contactHandler := handlers.NewContactHandler(services.NewContactService(db))
	settingsHandler := handlers.NewSettingsHandler(db)
	detectionHandler := detection.NewHandler(detectionSvc)
	portalHandler := portal.NewHandler(portal.NewService(db))

	api := app.Group("/api/v1", limiter.New(limiter.Config{
		Max:               60,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Too many requests",
			})
		},
	}))

	// Public
	api.Get("/health", healthHandler.Check)
	api.Post("/contact", contactHandler.Submit)
	api.Get("/detection/types", detectionHandler.ListTypes)

	// Auth: tighter limit against credential stuffing.
	auth := api.Group("/auth", limiter.New(limiter.Config{
		Max:               10,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
	}))
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	jwt := middleware.JWTProtected(cfg)
	auth.Post("/logout", jwt, authHandler.Logout)
	auth.Get("/session", jwt, authHandler.Session)
	auth.Get("/me", jwt, authHandler.Me)

	// Detection workflow, any signed-in role.
	det := api.Group("/detection", jwt)
	detectionHandler.RegisterRoutes(det)

	// Doctor portal
	doctor := api.Group("/portal/doctor", jwt, middleware.RoleRequired(models.RoleDoctor))
	doctor.Get("/dashboard", portalHandler.Dashboard)
	doctor.Get("/patients", portalHandler.ListPatients)
	doctor.Get("/patients/:id", portalHandler.GetPatient)
	doctor.Get("/appointments", portalHandler.ListAppointments)

	// Patient portal
	patient := api.Group("/portal/patient", jwt, middleware.RoleRequired(models.RolePatient))
	patient.Get("/profile", portalHandler.GetProfile)
	patient.Put("/profile", portalHandler.UpdateProfile)

	// Admin
	admin := api.Group("/admin", jwt, middleware.AdminRequired(db, cfg))
	admin.Get("/users", portalHandler.ListUsers)
	admin.Get("/logs", portalHandler.ListSystemLogs)
	admin.Get("/contact-messages", contactHandler.List)
	admin.Get("/settings", settingsHandler.List)
	admin.Get("/settings/:key", settingsHandler.Get)
	admin.Put("/settings/:key", settingsHandler.Put)
	admin.Delete("/settings/:key", settingsHandler.Delete)
}
