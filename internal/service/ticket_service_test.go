package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/repository"
	"github.com/spec-kit/isp-support/internal/sla"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

var start = time.Date(2025, 11, 28, 9, 0, 0, 0, time.UTC)

type ticketHarness struct {
	db     *memDB
	clock  *clock
	events []events.Event
	svc    *TicketService
}

func newTicketHarness(t *testing.T) *ticketHarness {
	t.Helper()
	h := &ticketHarness{db: newMemDB(), clock: &clock{now: start}}
	dispatcher := events.NewInMemoryDispatcher(nil)
	events.SubscribeTicketEvents(dispatcher, func(_ context.Context, e events.Event) error {
		h.events = append(h.events, e)
		return nil
	})
	h.svc = NewTicketService(TicketDependencies{
		Repos:      h.db.repos(),
		Tx:         fakeTx{h.db},
		Dispatcher: dispatcher,
		Evaluator:  sla.NewEvaluator(nil),
		Clock:      h.clock.Now,
	})
	return h
}

func (h *ticketHarness) eventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func (h *ticketHarness) notes(t *testing.T, ticketID int64) []string {
	t.Helper()
	notes, err := h.db.repos().Notes.ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Note)
	}
	return out
}

func strPtr(s string) *string { return &s }

func validInput(priority domain.TicketPriority) TicketCreateInput {
	return TicketCreateInput{
		CustomerName: "Jane Wanjiru",
		Phone:        "+254700000001",
		Subject:      "No internet since morning",
		TicketType:   domain.TicketTypeTechnicalIssue,
		Priority:     priority,
		Category:     domain.CategoryConnectivity,
		Description:  "Router shows red LOS light",
	}
}

var agent = Actor{UserID: func() *int64 { id := int64(42); return &id }(), Name: "Amina"}

func TestCreateTicket(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	customer := &domain.Customer{CustomerName: "Jane Wanjiru", AccountNumber: "ACC-0007", Status: domain.CustomerStatusActive}
	require.NoError(t, h.db.repos().Customers.Create(ctx, customer))

	input := validInput(domain.TicketPriorityHigh)
	input.AccountNumber = " ACC-0007 "
	input.InitialNote = strPtr("Customer called from alternate number")

	ticket, err := h.svc.Create(ctx, agent, input)
	require.NoError(t, err)

	assert.Equal(t, "TK-0001", ticket.TicketNumber)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.EscalationLevel1, ticket.EscalationLevel)
	assert.Equal(t, "ACC-0007", ticket.AccountNumber)
	require.NotNil(t, ticket.CustomerID)
	assert.Equal(t, customer.ID, *ticket.CustomerID)
	require.Len(t, ticket.Notes, 1)
	assert.False(t, ticket.Notes[0].IsInternal)
	assert.Equal(t, "Amina", ticket.Notes[0].AuthorName)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, h.eventTypes())

	second, err := h.svc.Create(ctx, Actor{}, validInput(domain.TicketPriorityLow))
	require.NoError(t, err)
	assert.Equal(t, "TK-0002", second.TicketNumber)
	assert.Nil(t, second.CustomerID)
}

func TestCreateTicketValidation(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, agent, TicketCreateInput{Priority: "Urgent"})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	for _, field := range []string{"customer_name", "phone", "subject", "description", "ticket_type", "priority", "category"} {
		assert.Contains(t, de.Details, field)
	}

	input := validInput(domain.TicketPriorityHigh)
	missing := int64(999)
	input.CustomerID = &missing
	input.InitialNote = strPtr("should not persist")
	_, err = h.svc.Create(ctx, agent, input)
	require.Error(t, err)
	de = apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	assert.Contains(t, de.Details, "customer_id")
	assert.Empty(t, h.db.tickets)
	assert.Empty(t, h.db.notes)
	assert.Empty(t, h.events)
}

func TestCreateTicketAssignee(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	users := h.db.repos().Users
	active := &domain.User{Name: "Brian", Email: "brian@isp.test", Role: domain.UserRoleAgent, Status: domain.UserStatusActive}
	inactive := &domain.User{Name: "Carol", Email: "carol@isp.test", Role: domain.UserRoleAgent, Status: domain.UserStatusInactive}
	require.NoError(t, users.Create(ctx, active))
	require.NoError(t, users.Create(ctx, inactive))

	input := validInput(domain.TicketPriorityMedium)
	input.AssignedUserID = &inactive.ID
	_, err := h.svc.Create(ctx, agent, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	input.AssignedUserID = &active.ID
	ticket, err := h.svc.Create(ctx, agent, input)
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, "Brian", *ticket.AssignedTo)
	assert.Equal(t, active.ID, *ticket.AssignedUserID)
}

func TestLifecycleScenario(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, agent, validInput(domain.TicketPriorityCritical))
	require.NoError(t, err)
	number := created.TicketNumber

	h.clock.advanceMinutes(30)
	ticket, err := h.svc.StartWorking(ctx, agent, number)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Equal(t, 30, *ticket.ResponseTimeMinutes)

	h.clock.advanceMinutes(10)
	_, err = h.svc.PutOnHold(ctx, agent, number)
	require.NoError(t, err)

	h.clock.advanceMinutes(20)
	ticket, err = h.svc.Resume(ctx, agent, number)
	require.NoError(t, err)
	assert.Equal(t, 20, ticket.TotalPausedMinutes)
	assert.Nil(t, ticket.PausedAt)

	h.clock.advanceMinutes(70)
	_, err = h.svc.Resolve(ctx, agent, number, "  ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	ticket, err = h.svc.Resolve(ctx, agent, number, "Replaced faulty ONT")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	assert.Equal(t, 80, *ticket.ResolutionTimeMinutes)

	report, err := h.svc.SLA(ctx, number)
	require.NoError(t, err)
	assert.Equal(t, sla.StatusMet, report.Response.Status)
	assert.Equal(t, sla.StatusMet, report.Resolution.Status)
	assert.False(t, report.IsOverdue)

	ticket, err = h.svc.Close(ctx, agent, number)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	assert.NotNil(t, ticket.ClosedAt)

	assert.Equal(t, []string{
		"Work started. Response time: 30 minutes",
		"Ticket put on hold",
		"Work resumed after 20 minutes on hold",
		"Ticket resolved. Total active work time: 80 minutes",
		"Ticket closed",
	}, h.notes(t, created.ID))

	transitions := 0
	for _, e := range h.events {
		if e.Type == events.EventTicketStatusChanged {
			transitions++
		}
	}
	assert.Equal(t, 5, transitions)

	_, err = h.svc.Close(ctx, agent, number)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestUpdateStatusDispatch(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	created, err := h.svc.Create(ctx, agent, validInput(domain.TicketPriorityHigh))
	require.NoError(t, err)
	number := created.TicketNumber

	_, err = h.svc.UpdateStatus(ctx, agent, number, domain.TicketStatusOpen, "")
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, apperrors.CodeInvalidTransition, de.Code)

	_, err = h.svc.UpdateStatus(ctx, agent, number, "Reopened", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	ticket, err := h.svc.UpdateStatus(ctx, agent, number, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

	_, err = h.svc.UpdateStatus(ctx, agent, number, domain.TicketStatusInProgress, "")
	de = apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeInvalidTransition, de.Code)
	assert.Equal(t, domain.TransitionStartWorking, de.Details["transition"])

	_, err = h.svc.UpdateStatus(ctx, agent, number, domain.TicketStatusOnHold, "")
	require.NoError(t, err)
	h.clock.advanceMinutes(15)
	ticket, err = h.svc.UpdateStatus(ctx, agent, number, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, 15, ticket.TotalPausedMinutes)

	_, err = h.svc.UpdateStatus(ctx, agent, number, domain.TicketStatusResolved, "")
	de = apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	assert.Contains(t, de.Details, "resolution_summary")

	ticket, err = h.svc.UpdateStatus(ctx, agent, number, domain.TicketStatusResolved, "Fixed")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)

	_, err = h.svc.UpdateStatus(ctx, agent, "TK-9999", domain.TicketStatusClosed, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestTransitionIsAtomic(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	created, err := h.svc.Create(ctx, agent, validInput(domain.TicketPriorityHigh))
	require.NoError(t, err)
	h.events = nil

	h.db.failNotes = true
	h.clock.advanceMinutes(5)
	_, err = h.svc.StartWorking(ctx, agent, created.TicketNumber)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePersistence))

	stored, err := h.db.repos().Tickets.GetByNumber(ctx, created.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Nil(t, stored.StartedAt)
	assert.Empty(t, h.events)
}

func TestEscalate(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	created, err := h.svc.Create(ctx, agent, validInput(domain.TicketPriorityLow))
	require.NoError(t, err)
	number := created.TicketNumber

	_, err = h.svc.Escalate(ctx, agent, number, domain.EscalationLevel2, " ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	ticket, err := h.svc.Escalate(ctx, agent, number, domain.EscalationLevel3, "Outage affects business line")
	require.NoError(t, err)
	assert.Equal(t, domain.EscalationLevel3, ticket.EscalationLevel)
	assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, []string{"Escalated from Level 1 to Level 3. Reason: Outage affects business line"}, h.notes(t, created.ID))

	last := h.events[len(h.events)-1]
	require.Equal(t, events.EventTicketEscalated, last.Type)
	payload := last.Payload.(events.TicketEscalatedPayload)
	assert.Equal(t, domain.EscalationLevel1, payload.OldLevel)

	h.clock.advanceMinutes(1)
	_, err = h.svc.StartWorking(ctx, agent, number)
	require.NoError(t, err)
	_, err = h.svc.Resolve(ctx, agent, number, "done")
	require.NoError(t, err)
	_, err = h.svc.Close(ctx, agent, number)
	require.NoError(t, err)

	_, err = h.svc.Escalate(ctx, agent, number, domain.EscalationLevel2, "again")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestAddNote(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	created, err := h.svc.Create(ctx, agent, validInput(domain.TicketPriorityLow))
	require.NoError(t, err)

	_, err = h.svc.AddNote(ctx, agent, created.TicketNumber, "   ", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	note, err := h.svc.AddNote(ctx, Actor{}, created.TicketNumber, "Technician dispatched", true)
	require.NoError(t, err)
	assert.Equal(t, domain.SystemAuthor, note.AuthorName)
	assert.True(t, note.IsInternal)
	assert.Nil(t, note.UserID)

	stored, err := h.svc.GetByNumber(ctx, created.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, created.Version, stored.Version)
	require.Len(t, stored.Notes, 1)

	last := h.events[len(h.events)-1]
	assert.Equal(t, events.EventTicketNoteAdded, last.Type)
	assert.Equal(t, "Technician dispatched", last.Payload.(events.TicketNoteAddedPayload).NotePreview)
}

func TestAssign(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	users := h.db.repos().Users
	busy := &domain.User{Name: "Brian", Email: "b@isp.test", Role: domain.UserRoleAgent, Status: domain.UserStatusActive, CreatedAt: start.Add(-48 * time.Hour)}
	idle := &domain.User{Name: "Dina", Email: "d@isp.test", Role: domain.UserRoleTechnician, Status: domain.UserStatusActive, CreatedAt: start.Add(-24 * time.Hour)}
	admin := &domain.User{Name: "Root", Email: "r@isp.test", Role: domain.UserRoleAdmin, Status: domain.UserStatusActive}
	for _, u := range []*domain.User{busy, idle, admin} {
		require.NoError(t, users.Create(ctx, u))
	}

	first, err := h.svc.Create(ctx, agent, validInput(domain.TicketPriorityLow))
	require.NoError(t, err)
	second, err := h.svc.Create(ctx, agent, validInput(domain.TicketPriorityLow))
	require.NoError(t, err)

	_, err = h.svc.Assign(ctx, agent, first.TicketNumber, 999)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	ticket, err := h.svc.Assign(ctx, agent, first.TicketNumber, busy.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brian", *ticket.AssignedTo)
	assert.Equal(t, []string{"Assigned to Brian"}, h.notes(t, first.ID))
	assert.Equal(t, events.EventTicketAssigned, h.events[len(h.events)-1].Type)

	ticket, err = h.svc.AutoAssign(ctx, agent, second.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, "Dina", *ticket.AssignedTo)
}

func TestListAndStatistics(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	for _, p := range []domain.TicketPriority{domain.TicketPriorityCritical, domain.TicketPriorityHigh, domain.TicketPriorityLow} {
		_, err := h.svc.Create(ctx, agent, validInput(p))
		require.NoError(t, err)
	}
	_, err := h.svc.StartWorking(ctx, agent, "TK-0001")
	require.NoError(t, err)
	h.clock.advanceMinutes(90)
	_, err = h.svc.Resolve(ctx, agent, "TK-0001", "done")
	require.NoError(t, err)

	list, err := h.svc.List(ctx, TicketListQuery{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.Page.Page)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, repository.TicketHeaderStats{Total: 3, Open: 2, Resolved: 1, Critical: 1}, list.Stats)

	stats, err := h.svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Open)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 1, stats.Critical)
	require.NotNil(t, stats.AvgResolutionMinutes)
	assert.Equal(t, 90, *stats.AvgResolutionMinutes)
	assert.Equal(t, 3, stats.ByCategory[domain.CategoryConnectivity])
}

func TestUpdateAndDelete(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	created, err := h.svc.Create(ctx, agent, validInput(domain.TicketPriorityLow))
	require.NoError(t, err)

	bad := domain.TicketPriority("Urgent")
	_, err = h.svc.Update(ctx, created.TicketNumber, TicketPatch{Priority: &bad})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	high := domain.TicketPriorityHigh
	ticket, err := h.svc.Update(ctx, created.TicketNumber, TicketPatch{Priority: &high, Subject: strPtr("Slow speeds")})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, "Slow speeds", ticket.Subject)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, 2, ticket.Version)

	require.NoError(t, h.svc.Delete(ctx, created.TicketNumber))
	_, err = h.svc.GetByNumber(ctx, created.TicketNumber)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.True(t, apperrors.HasCode(h.svc.Delete(ctx, created.TicketNumber), apperrors.CodeNotFound))
}

func TestUpdateAssigneeNameUnlinksUser(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	brian := &domain.User{Name: "Brian", Email: "b@isp.test", Role: domain.UserRoleAgent, Status: domain.UserStatusActive}
	require.NoError(t, h.db.repos().Users.Create(ctx, brian))

	created, err := h.svc.Create(ctx, agent, validInput(domain.TicketPriorityLow))
	require.NoError(t, err)
	_, err = h.svc.Assign(ctx, agent, created.TicketNumber, brian.ID)
	require.NoError(t, err)

	ticket, err := h.svc.Update(ctx, created.TicketNumber, TicketPatch{AssignedTo: strPtr(" Brian ")})
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedUserID)
	assert.Equal(t, brian.ID, *ticket.AssignedUserID)

	ticket, err = h.svc.Update(ctx, created.TicketNumber, TicketPatch{AssignedTo: strPtr("Dan")})
	require.NoError(t, err)
	assert.Equal(t, "Dan", *ticket.AssignedTo)
	assert.Nil(t, ticket.AssignedUserID)

	stored, err := h.svc.GetByNumber(ctx, created.TicketNumber)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedUserID)
}

func TestExport(t *testing.T) {
	h := newTicketHarness(t)
	ctx := context.Background()
	input := validInput(domain.TicketPriorityHigh)
	input.AccountNumber = "ACC-0001"
	input.AssignedTo = strPtr("Brian")
	created, err := h.svc.Create(ctx, agent, input)
	require.NoError(t, err)
	h.clock.advanceMinutes(1)
	_, err = h.svc.StartWorking(ctx, agent, created.TicketNumber)
	require.NoError(t, err)
	h.clock.advanceMinutes(1)
	_, err = h.svc.Resolve(ctx, agent, created.TicketNumber, "done")
	require.NoError(t, err)

	out, err := h.svc.Export(ctx, ExportCSV, nil)
	require.NoError(t, err)
	assert.Equal(t, "tickets_2025-11-28_090200.csv", out.Filename)
	assert.Equal(t, "text/csv", out.ContentType)

	records, err := csv.NewReader(bytes.NewReader(out.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ExportColumns, records[0])
	assert.Equal(t, []string{
		"TK-0001", "Jane Wanjiru", "ACC-0001", "No internet since morning", "Technical Issue",
		"High", "Connectivity", "Resolved", "Brian", "2025-11-28 09:00:00", "2025-11-28 09:02:00",
	}, records[1])

	open := domain.TicketStatusOpen
	out, err = h.svc.Export(ctx, ExportXLSX, &open)
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(out.Body))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Tickets")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ExportColumns, rows[0])

	_, err = h.svc.Export(ctx, "pdf", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestEncodeXLSXWritesRowsAndWidths(t *testing.T) {
	row := make([]string, len(ExportColumns))
	row[0] = "TK-0042"
	out, err := encodeXLSX([][]string{row})
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer book.Close()
	value, err := book.GetCellValue("Tickets", "A2")
	require.NoError(t, err)
	assert.Equal(t, "TK-0042", value)
	width, err := book.GetColWidth("Tickets", "A")
	require.NoError(t, err)
	assert.Equal(t, 18.0, width)
}
