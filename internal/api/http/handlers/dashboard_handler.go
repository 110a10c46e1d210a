package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/isp-support/internal/service"
)

// DashboardHandler serves the reporting views.
type DashboardHandler struct {
	service *service.DashboardService
}

func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: dashboard}
}

// Overview GET /dashboard.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.service.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, overview)
}

// Live GET /dashboard/live.
func (h *DashboardHandler) Live(c *fiber.Ctx) error {
	live, err := h.service.LiveData(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, live)
}

// SLA GET /dashboard/sla.
func (h *DashboardHandler) SLA(c *fiber.Ctx) error {
	report, err := h.service.SLAReport(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, report)
}

// Performance GET /dashboard/performance.
func (h *DashboardHandler) Performance(c *fiber.Ctx) error {
	report, err := h.service.Performance(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, report)
}

// Insights GET /dashboard/insights.
func (h *DashboardHandler) Insights(c *fiber.Ctx) error {
	insights, err := h.service.Insights(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, insights)
}
