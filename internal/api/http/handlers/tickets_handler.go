package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/isp-support/internal/api/dto"
	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/repository"
	"github.com/spec-kit/isp-support/internal/service"
)

// TicketsHandler exposes the ticket endpoints used by support operators.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), actor(c), service.TicketCreateInput{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		AccountNumber:   req.AccountNumber,
		Phone:           req.Phone,
		Email:           req.Email,
		Subject:         req.Subject,
		TicketType:      domain.TicketType(req.TicketType),
		EscalationLevel: domain.EscalationLevel(req.EscalationLevel),
		Priority:        domain.TicketPriority(req.Priority),
		Category:        domain.TicketCategory(req.Category),
		Description:     req.Description,
		AssignedTo:      req.AssignedTo,
		AssignedUserID:  req.AssignedUserID,
		InitialNote:     req.InitialNote,
	})
	if err != nil {
		return err
	}
	return created(c, "Ticket created successfully", ticketResponse(ticket))
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter, err := ticketFilter(c)
	if err != nil {
		return err
	}
	page, perPage := pageQuery(c)
	result, err := h.service.List(c.UserContext(), service.TicketListQuery{Filter: filter, Page: page, PerPage: perPage})
	if err != nil {
		return err
	}
	return paged(c, ticketResponses(result.Items), result.Page.Page, result.PerPage, result.Total, result.Stats)
}

// Show GET /tickets/:number.
func (h *TicketsHandler) Show(c *fiber.Ctx) error {
	ticket, err := h.service.GetByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return ok(c, ticketDetail(ticket, h.service.Evaluate(ticket)))
}

// Update PATCH /tickets/:number.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Update(c.UserContext(), c.Params("number"), service.TicketPatch{
		Subject:     req.Subject,
		TicketType:  enumPtr[domain.TicketType](req.TicketType),
		Priority:    enumPtr[domain.TicketPriority](req.Priority),
		Category:    enumPtr[domain.TicketCategory](req.Category),
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Phone:       req.Phone,
		Email:       req.Email,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Ticket updated successfully", ticketResponse(ticket))
}

// Delete DELETE /tickets/:number.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("number")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Ticket deleted successfully", nil)
}

// UpdateStatus PATCH /tickets/:number/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), actor(c), c.Params("number"), domain.TicketStatus(req.Status), req.ResolutionSummary)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Ticket status updated", ticketResponse(ticket))
}

// Start POST /tickets/:number/start.
func (h *TicketsHandler) Start(c *fiber.Ctx) error {
	ticket, err := h.service.StartWorking(c.UserContext(), actor(c), c.Params("number"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Work started", ticketResponse(ticket))
}

// Hold POST /tickets/:number/hold.
func (h *TicketsHandler) Hold(c *fiber.Ctx) error {
	ticket, err := h.service.PutOnHold(c.UserContext(), actor(c), c.Params("number"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Ticket put on hold", ticketResponse(ticket))
}

// Resume POST /tickets/:number/resume.
func (h *TicketsHandler) Resume(c *fiber.Ctx) error {
	ticket, err := h.service.Resume(c.UserContext(), actor(c), c.Params("number"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Work resumed", ticketResponse(ticket))
}

// Resolve POST /tickets/:number/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Resolve(c.UserContext(), actor(c), c.Params("number"), req.ResolutionSummary)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Ticket resolved", ticketResponse(ticket))
}

// Close POST /tickets/:number/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	ticket, err := h.service.Close(c.UserContext(), actor(c), c.Params("number"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Ticket closed", ticketResponse(ticket))
}

// AddNote POST /tickets/:number/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	var req dto.AddNoteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	internal := false
	if req.IsInternal != nil {
		internal = *req.IsInternal
	}
	note, err := h.service.AddNote(c.UserContext(), actor(c), c.Params("number"), req.Note, internal)
	if err != nil {
		return err
	}
	return created(c, "Note added successfully", noteResponse(note))
}

// Escalate POST /tickets/:number/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	var req dto.EscalateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Escalate(c.UserContext(), actor(c), c.Params("number"), domain.EscalationLevel(req.EscalationLevel), req.Reason)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Ticket escalated successfully", ticketResponse(ticket))
}

// Assign POST /tickets/:number/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	var (
		ticket *domain.Ticket
		err    error
	)
	if req.Auto {
		ticket, err = h.service.AutoAssign(c.UserContext(), actor(c), c.Params("number"))
	} else {
		ticket, err = h.service.Assign(c.UserContext(), actor(c), c.Params("number"), *req.AssignedUserID)
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Ticket assigned", ticketResponse(ticket))
}

// SLA GET /tickets/:number/sla.
func (h *TicketsHandler) SLA(c *fiber.Ctx) error {
	report, err := h.service.SLA(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return ok(c, report)
}

// Statistics GET /tickets/statistics.
func (h *TicketsHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.service.Statistics(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, stats)
}

// Export GET /tickets/export?format=csv|xlsx&status=.
func (h *TicketsHandler) Export(c *fiber.Ctx) error {
	status, err := enumQuery(c, "status", domain.ParseTicketStatus)
	if err != nil {
		return err
	}
	format := service.ExportFormat(strings.ToLower(c.Query("format")))
	export, err := h.service.Export(c.UserContext(), format, status)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Send(export.Body)
}

func ticketFilter(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		SortBy:   c.Query("sort_by"),
		SortDesc: !strings.EqualFold(c.Query("sort_dir"), "asc"),
	}
	var err error
	if filter.Status, err = enumQuery(c, "status", domain.ParseTicketStatus); err != nil {
		return filter, err
	}
	if filter.Priority, err = enumQuery(c, "priority", domain.ParseTicketPriority); err != nil {
		return filter, err
	}
	if filter.Category, err = enumQuery(c, "category", domain.ParseTicketCategory); err != nil {
		return filter, err
	}
	if filter.EscalationLevel, err = enumQuery(c, "escalation_level", domain.ParseEscalationLevel); err != nil {
		return filter, err
	}
	if filter.AssignedUserID, err = queryInt64(c, "assigned_user_id"); err != nil {
		return filter, err
	}
	if filter.CustomerID, err = queryInt64(c, "customer_id"); err != nil {
		return filter, err
	}
	return filter, nil
}

func enumPtr[T ~string](p *string) *T {
	if p == nil {
		return nil
	}
	v := T(*p)
	return &v
}
