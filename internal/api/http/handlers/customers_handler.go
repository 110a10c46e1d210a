package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/isp-support/internal/api/dto"
	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/repository"
	"github.com/spec-kit/isp-support/internal/service"
)

// CustomersHandler exposes subscriber account endpoints.
type CustomersHandler struct {
	service  *service.CustomerService
	location *time.Location
}

// NewCustomersHandler constructs handler. Dates without an offset are read in loc.
func NewCustomersHandler(customerService *service.CustomerService, loc *time.Location) *CustomersHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CustomersHandler{service: customerService, location: loc}
}

// Create POST /customers.
func (h *CustomersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCustomerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	input := service.CustomerInput{
		CustomerName:    req.CustomerName,
		AccountNumber:   req.AccountNumber,
		PrimaryPhone:    req.PrimaryPhone,
		EmailAddress:    req.EmailAddress,
		PhysicalAddress: req.PhysicalAddress,
		ServicePackage:  domain.ServicePackage(req.ServicePackage),
		Status:          domain.CustomerStatus(req.Status),
	}
	if req.InstallationDate != "" {
		at, _ := parseDateTime(req.InstallationDate, h.location)
		input.InstallationDate = &at
	}
	customer, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return created(c, "Customer created successfully", customerResponse(customer))
}

// List GET /customers.
func (h *CustomersHandler) List(c *fiber.Ctx) error {
	filter := repository.CustomerFilter{Search: strings.TrimSpace(c.Query("search"))}
	var err error
	if filter.Status, err = enumQuery(c, "status", domain.ParseCustomerStatus); err != nil {
		return err
	}
	if filter.ServicePackage, err = enumQuery(c, "service_package", domain.ParseServicePackage); err != nil {
		return err
	}
	page, perPage := pageQuery(c)
	result, err := h.service.List(c.UserContext(), service.CustomerListQuery{Filter: filter, Page: page, PerPage: perPage})
	if err != nil {
		return err
	}
	items := make([]dto.CustomerResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, customerResponse(&result.Items[i]))
	}
	return paged(c, items, result.Page, result.PerPage, result.Total, nil)
}

// Show GET /customers/:id, including the customer's tickets.
func (h *CustomersHandler) Show(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	customer, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, customerResponse(customer))
}

// Update PATCH /customers/:id.
func (h *CustomersHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCustomerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	patch := service.CustomerPatch{
		CustomerName:    req.CustomerName,
		PrimaryPhone:    req.PrimaryPhone,
		EmailAddress:    req.EmailAddress,
		PhysicalAddress: req.PhysicalAddress,
		ServicePackage:  enumPtr[domain.ServicePackage](req.ServicePackage),
		Status:          enumPtr[domain.CustomerStatus](req.Status),
	}
	if req.InstallationDate != nil {
		at, _ := parseDateTime(*req.InstallationDate, h.location)
		patch.InstallationDate = &at
	}
	customer, err := h.service.Update(c.UserContext(), id, patch)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Customer updated successfully", customerResponse(customer))
}

// Suspend POST /customers/:id/suspend.
func (h *CustomersHandler) Suspend(c *fiber.Ctx) error {
	return h.setStatus(c, "Customer suspended", h.service.Suspend)
}

// Activate POST /customers/:id/activate.
func (h *CustomersHandler) Activate(c *fiber.Ctx) error {
	return h.setStatus(c, "Customer activated", h.service.Activate)
}

// Deactivate POST /customers/:id/deactivate.
func (h *CustomersHandler) Deactivate(c *fiber.Ctx) error {
	return h.setStatus(c, "Customer deactivated", h.service.Deactivate)
}

type customerStatusFunc func(ctx context.Context, id int64) (*domain.Customer, error)

func (h *CustomersHandler) setStatus(c *fiber.Ctx, message string, apply customerStatusFunc) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	customer, err := apply(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, message, customerResponse(customer))
}
