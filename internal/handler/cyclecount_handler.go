package handler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/service"
	"go-cyclecount-ws/internal/view"
	"go-cyclecount-ws/pkg/logger"
	"go-cyclecount-ws/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	msgInvalidLocation = "Invalid location"
	msgInvalidProduct  = "Invalid product"
)

type CycleCountHandler struct {
	service service.CycleCountService
	log     *logger.Logger
}

func NewCycleCountHandler(s service.CycleCountService, log *logger.Logger) *CycleCountHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CycleCountHandler{service: s, log: log}
}

type scanLocationForm struct {
	Barcode string `form:"location-barcode" validate:"required,scancode"`
}

type scanProductForm struct {
	SKU string `form:"sku" validate:"required,scancode"`
}

type finalizeForm struct {
	Choice string `form:"choice" validate:"required,oneof=Accepted Canceled"`
}

type scanLocationPage struct {
	view.Page
	Session *model.CountSession
}

type scanProductPage struct {
	view.Page
	Session  *model.CountSession
	Location *model.Location
	Scanned  string
}

type sessionsPage struct {
	view.Page
	Sessions []model.CountSession
}

type reviewPage struct {
	view.Page
	Review      *service.SessionReview
	CanFinalize bool
}

func locationPromptURL(sessionID uuid.UUID) string {
	return fmt.Sprintf("/cycle-count/sessions/%s/location", sessionID)
}

func productPromptURL(sessionID, locationID uuid.UUID) string {
	return fmt.Sprintf("/cycle-count/sessions/%s/locations/%s/product", sessionID, locationID)
}

// Begin asks whether to start a session
// GET /cycle-count/begin
func (h *CycleCountHandler) Begin(c *fiber.Ctx) error {
	return c.Render("begin", newPage(c, "Cycle count"))
}

// StartSession creates an open session owned by the current user
// POST /cycle-count/sessions
func (h *CycleCountHandler) StartSession(c *fiber.Ctx) error {
	session, err := h.service.StartSession(c.UserContext(), currentActor(c))
	if err != nil {
		return err
	}
	return c.Redirect(locationPromptURL(session.ID), fiber.StatusFound)
}

// ListActiveSessions lists the current user's open sessions
// GET /cycle-count/sessions
func (h *CycleCountHandler) ListActiveSessions(c *fiber.Ctx) error {
	sessions, err := h.service.ListActiveSessions(c.UserContext(), currentActor(c).ID)
	if err != nil {
		return err
	}
	return c.Render("sessions", sessionsPage{Page: newPage(c, "Open sessions"), Sessions: sessions})
}

func (h *CycleCountHandler) openSession(c *fiber.Ctx) (*model.CountSession, error) {
	id, err := paramUUID(c, "id")
	if err != nil {
		return nil, err
	}
	session, err := h.service.GetOpenSession(c.UserContext(), id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return session, nil
}

// ShowLocationPrompt asks for a location barcode
// GET /cycle-count/sessions/:id/location
func (h *CycleCountHandler) ShowLocationPrompt(c *fiber.Ctx) error {
	session, err := h.openSession(c)
	if err != nil {
		return err
	}
	return c.Render("scan_location", scanLocationPage{Page: newPage(c, "Scan location"), Session: session})
}

// ScanLocation resolves the barcode and moves on to product scanning
// POST /cycle-count/sessions/:id/location
func (h *CycleCountHandler) ScanLocation(c *fiber.Ctx) error {
	session, err := h.openSession(c)
	if err != nil {
		return err
	}
	retry := func() error {
		page := scanLocationPage{Page: newPage(c, "Scan location"), Session: session}
		page.Error = msgInvalidLocation
		return c.Render("scan_location", page)
	}

	var form scanLocationForm
	if err := c.BodyParser(&form); err != nil || validator.FirstError(form) != "" {
		return retry()
	}
	location, err := h.service.ResolveLocation(c.UserContext(), form.Barcode)
	if errors.Is(err, service.ErrNotFound) {
		return retry()
	}
	if err != nil {
		return err
	}
	return c.Redirect(productPromptURL(session.ID, location.ID), fiber.StatusFound)
}

func (h *CycleCountHandler) promptTarget(c *fiber.Ctx) (*model.CountSession, *model.Location, error) {
	session, err := h.openSession(c)
	if err != nil {
		return nil, nil, err
	}
	locationID, err := paramUUID(c, "locationID")
	if err != nil {
		return nil, nil, err
	}
	location, err := h.service.GetLocation(c.UserContext(), locationID)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	return session, location, nil
}

// ShowProductPrompt asks for the next SKU at a location
// GET /cycle-count/sessions/:id/locations/:locationID/product
func (h *CycleCountHandler) ShowProductPrompt(c *fiber.Ctx) error {
	session, location, err := h.promptTarget(c)
	if err != nil {
		return err
	}
	return c.Render("scan_product", scanProductPage{
		Page:     newPage(c, "Scan products"),
		Session:  session,
		Location: location,
		Scanned:  c.Query("scanned"),
	})
}

// ScanProduct records one count and loops back to the product prompt
// POST /cycle-count/sessions/:id/locations/:locationID/product
func (h *CycleCountHandler) ScanProduct(c *fiber.Ctx) error {
	session, location, err := h.promptTarget(c)
	if err != nil {
		return err
	}
	retry := func() error {
		page := scanProductPage{Page: newPage(c, "Scan products"), Session: session, Location: location}
		page.Error = msgInvalidProduct
		return c.Render("scan_product", page)
	}

	var form scanProductForm
	if err := c.BodyParser(&form); err != nil || validator.FirstError(form) != "" {
		return retry()
	}
	product, err := h.service.ResolveProduct(c.UserContext(), form.SKU)
	if errors.Is(err, service.ErrNotFound) {
		return retry()
	}
	if err != nil {
		return err
	}

	_, err = h.service.RecordScan(c.UserContext(), service.ScanInput{
		SessionID: session.ID,
		Location:  location,
		Product:   product,
		Associate: currentActor(c),
	})
	if err != nil {
		return notFoundOr(err)
	}
	return c.Redirect(productPromptURL(session.ID, location.ID)+"?scanned="+url.QueryEscape(product.SKU), fiber.StatusFound)
}

// Review shows counted against on-hand quantities for a session in any state
// GET /cycle-count/sessions/:id/review
func (h *CycleCountHandler) Review(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	review, err := h.service.ReviewSession(c.UserContext(), id)
	if err != nil {
		return notFoundOr(err)
	}
	return c.Render("review", reviewPage{
		Page:        newPage(c, "Review session"),
		Review:      review,
		CanFinalize: canFinalize(c),
	})
}

// Finalize accepts or cancels a session
// POST /cycle-count/sessions/:id/finalize
func (h *CycleCountHandler) Finalize(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var form finalizeForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	form.Choice = strings.TrimSpace(form.Choice)
	if validator.FirstError(form) != "" {
		return fiber.NewError(fiber.StatusBadRequest, service.ErrInvalidDecision.Error())
	}

	_, err = h.service.FinalizeSession(c.UserContext(), id, model.FinalState(form.Choice), currentActor(c))
	switch {
	case err == nil:
		return c.Redirect("/cycle-count/sessions", fiber.StatusFound)
	case errors.Is(err, service.ErrSessionAlreadyFinalized):
		h.log.Error(h.log.WithSessionID(c.UserContext(), id.String()), "finalize rejected", err)
		return fiber.NewError(fiber.StatusConflict, "Count session already finalized")
	case errors.Is(err, service.ErrConcurrentReconciliation):
		return fiber.NewError(fiber.StatusConflict, "Inventory changed while finalizing; try again")
	case errors.Is(err, service.ErrInvalidDecision):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return notFoundOr(err)
	}
}
