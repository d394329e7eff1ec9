package handler

import (
	"errors"
	"strings"

	"go-cyclecount-ws/internal/middleware"
	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/service"
	"go-cyclecount-ws/internal/view"
	"go-cyclecount-ws/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// NewApp builds the Fiber app with the views, error page and request middleware every
// route relies on.
func NewApp(appName string, views fiber.Views, log *logger.Logger) *fiber.App {
	if log == nil {
		log = logger.Nop()
	}
	app := fiber.New(fiber.Config{
		AppName:      appName,
		Views:        views,
		ErrorHandler: NewErrorHandler(log),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))
	return app
}

type errorPage struct {
	view.Page
	Status  int
	Message string
}

// NewErrorHandler renders *fiber.Error as JSON for API paths and as the error page otherwise.
func NewErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error(c.UserContext(), "request failed", err)
		}

		if wantsJSON(c) {
			return c.Status(code).JSON(fiber.Map{"error": message})
		}
		c.Status(code)
		page := errorPage{Page: newPage(c, "Error"), Status: code, Message: message}
		if renderErr := c.Render("error", page); renderErr != nil {
			log.Error(c.UserContext(), "render error page", renderErr)
			return c.Status(code).SendString(message)
		}
		return nil
	}
}

func wantsJSON(c *fiber.Ctx) bool {
	path := c.Path()
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/inventory/table-")
}

func localString(c *fiber.Ctx, key string) string {
	v, _ := c.Locals(key).(string)
	return v
}

// currentActor reads the user RequireAuth stored in Locals.
func currentActor(c *fiber.Ctx) service.Actor {
	id, _ := uuid.Parse(localString(c, middleware.LocalUserID))
	return service.Actor{
		ID:       id,
		Username: localString(c, middleware.LocalUsername),
		Name:     localString(c, middleware.LocalUserName),
	}
}

func currentViewer(c *fiber.Ctx) *view.Viewer {
	id := localString(c, middleware.LocalUserID)
	if id == "" {
		return nil
	}
	privileges, _ := c.Locals(middleware.LocalPrivileges).([]string)
	return &view.Viewer{
		ID:         id,
		Username:   localString(c, middleware.LocalUsername),
		Name:       localString(c, middleware.LocalUserName),
		Role:       localString(c, middleware.LocalRole),
		Privileges: privileges,
	}
}

func newPage(c *fiber.Ctx, title string) view.Page {
	return view.Page{Title: title, User: currentViewer(c)}
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusNotFound, "Not found")
	}
	return id, nil
}

// notFoundOr turns a missing or closed target into a 404 and passes anything else through.
func notFoundOr(err error) error {
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrSessionClosed) {
		return fiber.NewError(fiber.StatusNotFound, "Not found")
	}
	return err
}

func canFinalize(c *fiber.Ctx) bool {
	return currentViewer(c).Can(model.PrivilegeSessionFinalize)
}
