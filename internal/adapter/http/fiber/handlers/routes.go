package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/seu-repo/fuel-control/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
)

// Routes groups the handlers mounted by RegisterRoutes.
type Routes struct {
	Auth       *AuthHandler
	Tank       *TankHandler
	Refuelings *RefuelingHandler
	Intakes    *IntakeHandler
	Dashboard  *DashboardHandler
	// LiveDashboard serves the websocket upgrade; optional.
	LiveDashboard fiber.Handler
}

func RegisterRoutes(app *fiber.App, auth ports.AuthService, r Routes) {
	operator := middleware.RequireRole(domain.UserRoleOperator)
	analyst := middleware.RequireRole(domain.UserRoleAnalyst)
	admin := middleware.RequireRole(domain.UserRoleAdmin)

	v1 := app.Group("/api/v1")
	v1.Post("/auth/login", r.Auth.Login)

	protected := v1.Group("", middleware.AuthRequired(auth))
	protected.Post("/auth/logout", r.Auth.Logout)
	protected.Get("/auth/me", r.Auth.Me)
	protected.Post("/auth/register", admin, r.Auth.Register)

	protected.Get("/tank", r.Tank.Get)
	protected.Post("/tank/recompute", operator, r.Tank.Recompute)
	protected.Put("/tank/baseline", admin, r.Tank.SetBaseline)

	protected.Get("/refuelings", r.Refuelings.List)
	protected.Get("/refuelings/export.xlsx", analyst, r.Refuelings.Export)
	protected.Post("/refuelings", operator, r.Refuelings.Create)
	protected.Post("/refuelings/confirm", operator, r.Refuelings.Confirm)
	protected.Post("/refuelings/cancel", operator, r.Refuelings.Cancel)
	protected.Post("/refuelings/reopen", operator, r.Refuelings.Reopen)
	protected.Get("/refuelings/:id", r.Refuelings.Get)
	protected.Patch("/refuelings/:id", operator, r.Refuelings.Update)
	protected.Delete("/refuelings/:id", operator, r.Refuelings.Delete)
	protected.Post("/refuelings/:id/receipt", operator, r.Refuelings.AttachReceipt)

	protected.Get("/intakes", r.Intakes.List)
	protected.Post("/intakes", operator, r.Intakes.Create)
	protected.Post("/intakes/confirm", operator, r.Intakes.Confirm)
	protected.Post("/intakes/cancel", operator, r.Intakes.Cancel)
	protected.Post("/intakes/reopen", operator, r.Intakes.Reopen)
	protected.Get("/intakes/:id", r.Intakes.Get)
	protected.Patch("/intakes/:id", operator, r.Intakes.Update)
	protected.Delete("/intakes/:id", operator, r.Intakes.Delete)

	protected.Get("/dashboard/data", analyst, r.Dashboard.Data)

	app.Get("/dashboard",
		middleware.PageAuth(auth),
		middleware.RequirePageRole(domain.UserRoleAnalyst),
		r.Dashboard.Page,
	)

	if r.LiveDashboard != nil {
		app.Get("/ws/dashboard",
			middleware.AuthRequired(auth),
			analyst,
			r.LiveDashboard,
		)
	}
}
