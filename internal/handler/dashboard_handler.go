package handler

import (
	"go-cyclecount-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

const maxAdjustmentDays = 90

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetAdjustments returns net ledger change per day for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetAdjustments(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days <= 0 {
		days = 7
	}
	if days > maxAdjustmentDays {
		days = maxAdjustmentDays
	}

	data, err := h.service.GetAdjustments(c.UserContext(), days)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch adjustments")
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch dashboard stats")
	}
	return c.JSON(stats)
}
