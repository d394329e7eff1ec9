package handler

import (
	"errors"
	"strings"

	"go-cyclecount-ws/internal/middleware"
	"go-cyclecount-ws/internal/service"
	"go-cyclecount-ws/internal/view"
	"go-cyclecount-ws/pkg/logger"
	"go-cyclecount-ws/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

const defaultLanding = "/cycle-count/begin"

type AuthHandler struct {
	authService  service.AuthService
	cookieSecure bool
	log          *logger.Logger
}

func NewAuthHandler(authService service.AuthService, cookieSecure bool, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{authService: authService, cookieSecure: cookieSecure, log: log}
}

// LoginRequest represents the login form or JSON body
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=150"`
	Password string `json:"password" form:"password" validate:"required"`
	Next     string `json:"next" form:"next"`
}

type loginPage struct {
	view.Page
	Next     string
	Username string
}

// ShowLogin renders the sign-in form
// GET /login
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	return c.Render("login", loginPage{Page: newPage(c, "Sign in"), Next: safeNext(c.Query("next"))})
}

// Login handles the sign-in form and sets the session cookie
// POST /login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return h.renderLogin(c, fiber.StatusBadRequest, req, "Invalid form submission")
	}
	req.Username = strings.TrimSpace(req.Username)
	if validator.FirstError(req) != "" {
		return h.renderLogin(c, fiber.StatusBadRequest, req, "Username and password are required")
	}

	result, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserInactive) {
			return h.renderLogin(c, fiber.StatusUnauthorized, req, err.Error())
		}
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(safeNext(req.Next), fiber.StatusFound)
}

// LoginAPI handles token login for API clients
// POST /api/v1/auth/login
func (h *AuthHandler) LoginAPI(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if msg := validator.FirstError(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	result, err := h.authService.Login(c.UserContext(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserInactive) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		return err
	}
	return c.JSON(result)
}

// Logout rotates the token version and clears the cookie
// POST /logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	actor := currentActor(c)
	if err := h.authService.Logout(c.UserContext(), actor.ID); err != nil {
		h.log.Error(c.UserContext(), "logout", err)
	}
	c.ClearCookie(middleware.TokenCookie)
	return c.Redirect("/login", fiber.StatusFound)
}

func (h *AuthHandler) renderLogin(c *fiber.Ctx, status int, req LoginRequest, message string) error {
	page := loginPage{Page: newPage(c, "Sign in"), Next: safeNext(req.Next), Username: req.Username}
	page.Error = message
	return c.Status(status).Render("login", page)
}

// safeNext only allows local absolute paths as a post-login target.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return defaultLanding
	}
	return next
}
