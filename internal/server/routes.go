package server

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shortly/internal/config"
	"shortly/internal/db"
	"shortly/internal/email"
	"shortly/internal/handlers"
	"shortly/internal/middleware"
	"shortly/internal/qr"
)

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, database *db.DB, tiers config.PlanTiers, images qr.ImageStore) error {
	authMiddleware := middleware.NewAuthMiddleware(database)
	notifier := email.NewNotifier(s.Cfg)

	accountHandler := handlers.NewAccountHandler(database, notifier)
	linkHandler := handlers.NewLinkHandler(database, s.Cfg, tiers, images)
	redirectHandler := handlers.NewRedirectHandler(database)
	healthHandler := handlers.NewHealthHandler(database)

	// Account routes
	auth := s.App.Group("/api/v1/auth")
	auth.Post("/register", accountHandler.Register)
	auth.Post("/verify-email", accountHandler.VerifyEmail)
	auth.Post("/login", accountHandler.Login)
	auth.Get("/verify", accountHandler.Verify)
	auth.Get("/logout", accountHandler.Logout)
	auth.Post("/change-password", authMiddleware.RequireAuth, accountHandler.ChangePassword)
	auth.Post("/request-password-reset", accountHandler.RequestPasswordReset)
	auth.Get("/check-password-reset-details", accountHandler.CheckPasswordResetDetails)
	auth.Post("/forgot-password-change-password", accountHandler.ForgotPasswordChangePassword)

	// Google sign-in, only when configured
	if s.Cfg.IsGoogleAuthEnabled() {
		googleHandler, err := handlers.NewGoogleAuthHandler(ctx, s.Cfg, database)
		if err != nil {
			return err
		}
		auth.Get("/google", googleHandler.Login)
		auth.Get("/google/callback", googleHandler.Callback)
	} else {
		log.Println("Google sign-in is disabled. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET to enable.")
	}

	// Link routes. Redirect resolution is public; everything else belongs to
	// the logged-in owner.
	link := s.App.Group("/api/v2/link")
	link.Get("/redirect", redirectHandler.Resolve)
	link.Post("/verify-password", redirectHandler.VerifyPassword)
	link.Post("/short", authMiddleware.RequireAuth, linkHandler.CreateShort)
	link.Post("/qr", authMiddleware.RequireAuth, linkHandler.CreateQR)
	link.Get("/", authMiddleware.RequireAuth, linkHandler.List)
	link.Get("/short", authMiddleware.RequireAuth, linkHandler.ListShort)
	link.Get("/qr", authMiddleware.RequireAuth, linkHandler.ListQR)
	link.Get("/limit", authMiddleware.RequireAuth, linkHandler.Limit)
	link.Put("/:id", authMiddleware.RequireAuth, linkHandler.EditTitle)
	link.Delete("/:id", authMiddleware.RequireAuth, linkHandler.Delete)
	link.Post("/health/:id", authMiddleware.RequireAuth, healthHandler.CheckLink)

	// QR images
	s.App.Get("/q/*", static.New(s.Cfg.QRImageDir))

	// Operational endpoints
	s.App.Get("/healthz", healthHandler.Healthz)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Unknown paths get the JSON 404 instead of Fiber's default text
	s.App.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"msg": "Not Found"})
	})

	return nil
}
