package handler

import (
	"go-cyclecount-ws/internal/middleware"
	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/productsvc"
	"go-cyclecount-ws/internal/repository"
	"go-cyclecount-ws/internal/service"
	"go-cyclecount-ws/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// Services are the collaborators the HTTP surface is built on.
type Services struct {
	Auth       service.AuthService
	CycleCount service.CycleCountService
	Inventory  service.InventoryService
	Dashboard  service.DashboardService
	Products   *productsvc.Client

	Roles      repository.RoleRepository
	Privileges repository.PrivilegeRepository
}

type RouteOptions struct {
	CookieSecure bool
	Log          *logger.Logger
}

// RegisterRoutes mounts the page, JSON and auth routes.
func RegisterRoutes(app *fiber.App, svc Services, opts RouteOptions) {
	authHandler := NewAuthHandler(svc.Auth, opts.CookieSecure, opts.Log)
	countHandler := NewCycleCountHandler(svc.CycleCount, opts.Log)
	invHandler := NewInventoryHandler(svc.Inventory, svc.Products)
	dashHandler := NewDashboardHandler(svc.Dashboard)
	roleHandler := NewRoleHandler(svc.Roles, svc.Privileges)

	pageAuth := middleware.RequireAuth(svc.Auth, opts.Log, middleware.RedirectToLogin)
	apiAuth := middleware.RequireAuth(svc.Auth, opts.Log, middleware.JSONUnauthorized)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/cycle-count/begin", fiber.StatusFound)
	})

	// ============ PUBLIC ROUTES ============
	app.Get("/login", authHandler.ShowLogin)
	app.Post("/login", authHandler.Login)
	app.Post("/logout", pageAuth, authHandler.Logout)

	app.Get("/cycle-count/begin", countHandler.Begin)

	app.Get("/inventory", invHandler.List)
	app.Get("/inventory/table-db", invHandler.TableDB)
	app.Get("/inventory/table-api", invHandler.TableAPI)

	// ============ COUNTING (session login) ============
	cc := app.Group("/cycle-count/sessions", pageAuth)
	cc.Post("/", countHandler.StartSession)
	cc.Get("/", countHandler.ListActiveSessions)
	cc.Get("/:id/location", countHandler.ShowLocationPrompt)
	cc.Post("/:id/location", countHandler.ScanLocation)
	cc.Get("/:id/locations/:locationID/product", countHandler.ShowProductPrompt)
	cc.Post("/:id/locations/:locationID/product", countHandler.ScanProduct)
	cc.Get("/:id/review", middleware.RequirePrivilege(model.PrivilegeSessionReview), countHandler.Review)
	cc.Post("/:id/finalize", middleware.RequirePrivilege(model.PrivilegeSessionFinalize), countHandler.Finalize)

	// ============ JSON API ============
	api := app.Group("/api/v1")
	api.Post("/auth/login", authHandler.LoginAPI)

	dashboard := api.Group("/dashboard", apiAuth, middleware.RequirePrivilege(model.PrivilegeDashboardView))
	dashboard.Get("/stats", dashHandler.GetDashboardStats)
	dashboard.Get("/adjustments", dashHandler.GetAdjustments)

	api.Get("/roles", apiAuth, roleHandler.GetRoles)
	api.Get("/privileges", apiAuth, roleHandler.GetPrivileges)
}
