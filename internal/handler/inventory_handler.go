package handler

import (
	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/productsvc"
	"go-cyclecount-ws/internal/service"
	"go-cyclecount-ws/internal/view"
	"go-cyclecount-ws/pkg/pagination"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	service  service.InventoryService
	products *productsvc.Client
}

func NewInventoryHandler(s service.InventoryService, products *productsvc.Client) *InventoryHandler {
	return &InventoryHandler{service: s, products: products}
}

type inventoryPage struct {
	view.Page
	Entries []model.InventoryEntry
}

// List renders the whole ledger
// GET /inventory
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	entries, err := h.service.ListInventory(c.UserContext())
	if err != nil {
		return err
	}
	return c.Render("inventory", inventoryPage{Page: newPage(c, "Inventory"), Entries: entries})
}

// TableDB returns one ledger page with SKUs from the local catalog
// GET /inventory/table-db?page=1&size=20
func (h *InventoryHandler) TableDB(c *fiber.Ctx) error {
	page, err := h.service.PageFromDB(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("size", pagination.DefaultSize))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// TableAPI returns one ledger page with SKUs from the product service
// GET /inventory/table-api?page=1&size=20
func (h *InventoryHandler) TableAPI(c *fiber.Ctx) error {
	var resolver service.SKUResolver
	if h.products != nil {
		requestID, _ := c.Locals("requestid").(string)
		resolver = h.products.ForRequest(requestID)
	}
	page, err := h.service.PageWithResolver(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("size", pagination.DefaultSize), resolver)
	if err != nil {
		return err
	}
	return c.JSON(page)
}
