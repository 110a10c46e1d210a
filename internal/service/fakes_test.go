package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/repository"
)

// memDB is an in-memory stand-in for Postgres shared by the fake repositories.
type memDB struct {
	nextID        int64
	tickets       map[int64]domain.Ticket
	notes         []domain.TicketNote
	customers     map[int64]domain.Customer
	installations map[int64]domain.Installation
	users         map[int64]domain.User
	seqs          map[repository.Sequence]int64

	failNotes bool
}

func newMemDB() *memDB {
	return &memDB{
		tickets:       map[int64]domain.Ticket{},
		customers:     map[int64]domain.Customer{},
		installations: map[int64]domain.Installation{},
		users:         map[int64]domain.User{},
		seqs: map[repository.Sequence]int64{
			repository.TicketNumberSeq:       0,
			repository.AccountNumberSeq:      0,
			repository.InstallationNumberSeq: 1000,
		},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) repos() repository.Repositories {
	return repository.Repositories{
		Tickets:       &fakeTickets{db},
		Notes:         &fakeNotes{db},
		Customers:     &fakeCustomers{db},
		Installations: &fakeInstallations{db},
		Users:         &fakeUsers{db},
		Sequences:     &fakeSequences{db},
	}
}

func (db *memDB) snapshot() *memDB {
	cp := *db
	cp.tickets = cloneMap(db.tickets)
	cp.customers = cloneMap(db.customers)
	cp.installations = cloneMap(db.installations)
	cp.users = cloneMap(db.users)
	cp.seqs = cloneMap(db.seqs)
	cp.notes = append([]domain.TicketNote(nil), db.notes...)
	return &cp
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// fakeTx rolls the memDB back when fn fails. Sequences are restored too,
// which is stricter than Postgres but irrelevant to the assertions here.
type fakeTx struct{ db *memDB }

func (f fakeTx) WithinTx(_ context.Context, fn func(repository.Repositories) error) error {
	saved := f.db.snapshot()
	if err := fn(f.db.repos()); err != nil {
		failNotes := f.db.failNotes
		*f.db = *saved
		f.db.failNotes = failNotes
		return err
	}
	return nil
}

type fakeTickets struct{ db *memDB }

func (r *fakeTickets) Create(_ context.Context, t *domain.Ticket) error {
	t.ID = r.db.id()
	t.Version = 1
	t.UpdatedAt = t.CreatedAt
	stored := *t
	stored.Notes, stored.Customer = nil, nil
	r.db.tickets[t.ID] = stored
	return nil
}

func (r *fakeTickets) Update(_ context.Context, t *domain.Ticket) error {
	cur, ok := r.db.tickets[t.ID]
	if !ok || cur.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	if cur.Version != t.Version {
		return repository.ErrStaleVersion
	}
	t.Version++
	stored := *t
	stored.Notes, stored.Customer = nil, nil
	r.db.tickets[t.ID] = stored
	return nil
}

func (r *fakeTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	t, ok := r.db.tickets[id]
	if !ok || t.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *fakeTickets) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	for _, t := range r.db.tickets {
		if t.TicketNumber == number && t.DeletedAt == nil {
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTickets) live() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(r.db.tickets))
	for _, t := range r.db.tickets {
		if t.DeletedAt == nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *fakeTickets) List(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, int, error) {
	var out []domain.Ticket
	for _, t := range r.live() {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(t.Subject+" "+t.CustomerName+" "+t.TicketNumber), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, t)
	}
	total := len(out)
	if f.Page.Offset < len(out) {
		out = out[f.Page.Offset:]
	} else {
		out = nil
	}
	if f.Page.Limit > 0 && len(out) > f.Page.Limit {
		out = out[:f.Page.Limit]
	}
	return out, total, nil
}

func (r *fakeTickets) HeaderStats(context.Context) (repository.TicketHeaderStats, error) {
	var s repository.TicketHeaderStats
	for _, t := range r.live() {
		s.Total++
		switch t.Status {
		case domain.TicketStatusOpen:
			s.Open++
		case domain.TicketStatusInProgress:
			s.InProgress++
		case domain.TicketStatusResolved:
			s.Resolved++
		}
		if t.Priority == domain.TicketPriorityCritical {
			s.Critical++
		}
	}
	return s, nil
}

func (r *fakeTickets) ListAll(_ context.Context, status *domain.TicketStatus) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range r.live() {
		if status == nil || t.Status == *status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTickets) ListActive(context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range r.live() {
		if !t.Status.IsDone() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTickets) ListByCustomer(_ context.Context, customerID int64) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range r.live() {
		if t.CustomerID != nil && *t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTickets) SoftDelete(_ context.Context, id int64, at time.Time) error {
	t, ok := r.db.tickets[id]
	if !ok || t.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	t.DeletedAt = &at
	r.db.tickets[id] = t
	return nil
}

type fakeNotes struct{ db *memDB }

func (r *fakeNotes) Create(_ context.Context, n *domain.TicketNote) error {
	if r.db.failNotes {
		return errors.New("notes table unavailable")
	}
	n.ID = r.db.id()
	r.db.notes = append(r.db.notes, *n)
	return nil
}

func (r *fakeNotes) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketNote, error) {
	var out []domain.TicketNote
	for _, n := range r.db.notes {
		if n.TicketID == ticketID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeCustomers struct{ db *memDB }

func (r *fakeCustomers) Create(_ context.Context, c *domain.Customer) error {
	for _, existing := range r.db.customers {
		if existing.AccountNumber == c.AccountNumber {
			return errors.New("duplicate account number")
		}
	}
	c.ID = r.db.id()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	stored.Tickets = nil
	r.db.customers[c.ID] = stored
	return nil
}

func (r *fakeCustomers) Update(_ context.Context, c *domain.Customer) error {
	if _, ok := r.db.customers[c.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *c
	stored.Tickets = nil
	r.db.customers[c.ID] = stored
	return nil
}

func (r *fakeCustomers) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	c, ok := r.db.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r *fakeCustomers) GetByAccountNumber(_ context.Context, number string) (*domain.Customer, error) {
	for _, c := range r.db.customers {
		if c.AccountNumber == number {
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCustomers) List(ctx context.Context, f repository.CustomerFilter) ([]domain.Customer, int, error) {
	all, _ := r.ListAll(ctx)
	var out []domain.Customer
	for _, c := range all {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.CustomerName+" "+c.AccountNumber), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *fakeCustomers) ListAll(context.Context) ([]domain.Customer, error) {
	out := make([]domain.Customer, 0, len(r.db.customers))
	for _, c := range r.db.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type fakeInstallations struct{ db *memDB }

func (r *fakeInstallations) Create(_ context.Context, inst *domain.Installation) error {
	inst.ID = r.db.id()
	inst.UpdatedAt = inst.CreatedAt
	r.db.installations[inst.ID] = *inst
	return nil
}

func (r *fakeInstallations) Update(_ context.Context, inst *domain.Installation) error {
	cur, ok := r.db.installations[inst.ID]
	if !ok || cur.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	r.db.installations[inst.ID] = *inst
	return nil
}

func (r *fakeInstallations) GetByID(_ context.Context, id int64) (*domain.Installation, error) {
	inst, ok := r.db.installations[id]
	if !ok || inst.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	return &inst, nil
}

func (r *fakeInstallations) List(_ context.Context, f repository.InstallationFilter) ([]domain.Installation, int, error) {
	var out []domain.Installation
	for _, inst := range r.db.installations {
		if inst.DeletedAt != nil {
			continue
		}
		if f.Status != nil && inst.Status != *f.Status {
			continue
		}
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, len(out), nil
}

func (r *fakeInstallations) CountByStatus(context.Context) (map[domain.InstallationStatus]int, error) {
	out := map[domain.InstallationStatus]int{}
	for _, inst := range r.db.installations {
		if inst.DeletedAt == nil {
			out[inst.Status]++
		}
	}
	return out, nil
}

func (r *fakeInstallations) SoftDelete(_ context.Context, id int64, at time.Time) error {
	inst, ok := r.db.installations[id]
	if !ok || inst.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	inst.DeletedAt = &at
	r.db.installations[id] = inst
	return nil
}

type fakeUsers struct{ db *memDB }

func (r *fakeUsers) Create(_ context.Context, u *domain.User) error {
	u.ID = r.db.id()
	r.db.users[u.ID] = *u
	return nil
}

func (r *fakeUsers) Update(_ context.Context, u *domain.User) error {
	if _, ok := r.db.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.db.users[u.ID] = *u
	return nil
}

func (r *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.db.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (r *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUsers) ListOperators(context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.db.users {
		if u.Role != domain.UserRoleSuperAdmin {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeSequences struct{ db *memDB }

func (r *fakeSequences) Next(_ context.Context, seq repository.Sequence) (int64, error) {
	r.db.seqs[seq]++
	return r.db.seqs[seq], nil
}

// clock is a settable test clock.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *clock) advanceMinutes(m int)    { c.advance(time.Duration(m) * time.Minute) }
