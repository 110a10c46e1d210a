package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/isp-support/internal/api/dto"
	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/repository"
	"github.com/spec-kit/isp-support/internal/service"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// InstallationsHandler exposes field installation endpoints.
type InstallationsHandler struct {
	service  *service.InstallationService
	location *time.Location
}

// NewInstallationsHandler constructs handler. Dates without an offset are read in loc.
func NewInstallationsHandler(installationService *service.InstallationService, loc *time.Location) *InstallationsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &InstallationsHandler{service: installationService, location: loc}
}

// Create POST /installations.
func (h *InstallationsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateInstallationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	at, _ := parseDateTime(req.ScheduledDate, h.location)
	inst, err := h.service.Create(c.UserContext(), service.InstallationInput{
		CustomerID:           req.CustomerID,
		CustomerName:         req.CustomerName,
		Address:              req.Address,
		ContactNumber:        req.ContactNumber,
		ScheduledDate:        at,
		Technician:           req.Technician,
		AssignedTechnicianID: req.AssignedTechnicianID,
		Equipment:            req.Equipment,
		Notes:                req.Notes,
	})
	if err != nil {
		return err
	}
	return created(c, "Installation created successfully", installationResponse(inst))
}

// List GET /installations.
func (h *InstallationsHandler) List(c *fiber.Ctx) error {
	filter := repository.InstallationFilter{Search: strings.TrimSpace(c.Query("search"))}
	var err error
	if filter.Status, err = enumQuery(c, "status", domain.ParseInstallationStatus); err != nil {
		return err
	}
	if filter.TechnicianID, err = queryInt64(c, "technician_id"); err != nil {
		return err
	}
	if filter.From, err = h.dateQuery(c, "date_from"); err != nil {
		return err
	}
	if filter.To, err = h.dateQuery(c, "date_to"); err != nil {
		return err
	}
	page, perPage := pageQuery(c)
	result, err := h.service.List(c.UserContext(), service.InstallationListQuery{Filter: filter, Page: page, PerPage: perPage})
	if err != nil {
		return err
	}
	items := make([]dto.InstallationResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, installationResponse(&result.Items[i]))
	}
	return paged(c, items, result.Page, result.PerPage, result.Total, nil)
}

// Statistics GET /installations/statistics.
func (h *InstallationsHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.service.Statistics(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, stats)
}

// Show GET /installations/:id.
func (h *InstallationsHandler) Show(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	inst, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, installationResponse(inst))
}

// Update PATCH /installations/:id.
func (h *InstallationsHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateInstallationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	patch := service.InstallationPatch{
		CustomerName:         req.CustomerName,
		Address:              req.Address,
		ContactNumber:        req.ContactNumber,
		Technician:           req.Technician,
		AssignedTechnicianID: req.AssignedTechnicianID,
		Equipment:            req.Equipment,
		Notes:                req.Notes,
	}
	if req.ScheduledDate != nil {
		at, _ := parseDateTime(*req.ScheduledDate, h.location)
		patch.ScheduledDate = &at
	}
	inst, err := h.service.Update(c.UserContext(), id, patch)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Installation updated successfully", installationResponse(inst))
}

// Delete DELETE /installations/:id.
func (h *InstallationsHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Installation deleted successfully", nil)
}

// Schedule POST /installations/:id/schedule.
func (h *InstallationsHandler) Schedule(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.ScheduleInstallationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	at, _ := parseDateTime(req.ScheduledDate, h.location)
	inst, err := h.service.Schedule(c.UserContext(), id, at, req.Technician, req.AssignedTechnicianID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Installation scheduled", installationResponse(inst))
}

// Start POST /installations/:id/start.
func (h *InstallationsHandler) Start(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	inst, err := h.service.Start(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Installation started", installationResponse(inst))
}

// Complete POST /installations/:id/complete.
func (h *InstallationsHandler) Complete(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.CompleteInstallationRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	inst, err := h.service.Complete(c.UserContext(), id, req.Notes)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Installation completed", installationResponse(inst))
}

// Cancel POST /installations/:id/cancel.
func (h *InstallationsHandler) Cancel(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.CancelInstallationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	inst, err := h.service.Cancel(c.UserContext(), id, req.Reason)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Installation cancelled", installationResponse(inst))
}

func (h *InstallationsHandler) dateQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	at, err := parseDateTime(raw, h.location)
	if err != nil {
		return nil, apperrors.NewFieldError(key, key+" must be a valid date")
	}
	return &at, nil
}
