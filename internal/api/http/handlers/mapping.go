package handlers

import (
	"github.com/spec-kit/isp-support/internal/api/dto"
	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/sla"
)

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:                    t.ID,
		TicketNumber:          t.TicketNumber,
		CustomerID:            t.CustomerID,
		CustomerName:          t.CustomerName,
		AccountNumber:         t.AccountNumber,
		Phone:                 t.Phone,
		Email:                 t.Email,
		Subject:               t.Subject,
		TicketType:            string(t.TicketType),
		EscalationLevel:       string(t.EscalationLevel),
		Priority:              string(t.Priority),
		Category:              string(t.Category),
		Description:           t.Description,
		AssignedTo:            t.AssignedTo,
		AssignedUserID:        t.AssignedUserID,
		Status:                string(t.Status),
		StartedAt:             t.StartedAt,
		FirstResponseAt:       t.FirstResponseAt,
		PausedAt:              t.PausedAt,
		ResolvedAt:            t.ResolvedAt,
		ClosedAt:              t.ClosedAt,
		ResponseTimeMinutes:   t.ResponseTimeMinutes,
		ResolutionTimeMinutes: t.ResolutionTimeMinutes,
		TotalPausedMinutes:    t.TotalPausedMinutes,
		ResolutionSummary:     t.ResolutionSummary,
		SatisfactionRating:    t.SatisfactionRating,
		Version:               t.Version,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
	if len(t.Notes) > 0 {
		resp.Notes = make([]dto.TicketNoteResponse, 0, len(t.Notes))
		for i := range t.Notes {
			resp.Notes = append(resp.Notes, noteResponse(&t.Notes[i]))
		}
	}
	if t.Customer != nil {
		c := customerResponse(t.Customer)
		resp.Customer = &c
	}
	return resp
}

// ticketDetail adds the live SLA evaluation to the ticket representation.
func ticketDetail(t *domain.Ticket, eval sla.Evaluation) dto.TicketResponse {
	resp := ticketResponse(t)
	resp.SLA = &eval
	return resp
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	out := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ticketResponse(&tickets[i]))
	}
	return out
}

func noteResponse(n *domain.TicketNote) dto.TicketNoteResponse {
	return dto.TicketNoteResponse{
		ID:         n.ID,
		TicketID:   n.TicketID,
		UserID:     n.UserID,
		AuthorName: n.AuthorName,
		Note:       n.Note,
		IsInternal: n.IsInternal,
		CreatedAt:  n.CreatedAt,
	}
}

func customerResponse(c *domain.Customer) dto.CustomerResponse {
	resp := dto.CustomerResponse{
		ID:               c.ID,
		CustomerName:     c.CustomerName,
		AccountNumber:    c.AccountNumber,
		PrimaryPhone:     c.PrimaryPhone,
		EmailAddress:     c.EmailAddress,
		PhysicalAddress:  c.PhysicalAddress,
		ServicePackage:   string(c.ServicePackage),
		Status:           string(c.Status),
		InstallationDate: c.InstallationDate,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if len(c.Tickets) > 0 {
		resp.Tickets = ticketResponses(c.Tickets)
	}
	return resp
}

func installationResponse(i *domain.Installation) dto.InstallationResponse {
	return dto.InstallationResponse{
		ID:                   i.ID,
		InstallationNumber:   i.InstallationNumber,
		CustomerID:           i.CustomerID,
		CustomerName:         i.CustomerName,
		Address:              i.Address,
		ContactNumber:        i.ContactNumber,
		ScheduledDate:        i.ScheduledDate,
		Technician:           i.Technician,
		AssignedTechnicianID: i.AssignedTechnicianID,
		Equipment:            i.Equipment,
		Status:               string(i.Status),
		Notes:                i.Notes,
		CreatedAt:            i.CreatedAt,
		UpdatedAt:            i.UpdatedAt,
	}
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
