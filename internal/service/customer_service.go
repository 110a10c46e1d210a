package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/repository"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// accountNumberAttempts bounds retries when a claimed account number is already taken
// by a manually entered one.
const accountNumberAttempts = 5

// CustomerService manages subscriber accounts.
type CustomerService struct {
	repos      repository.Repositories
	tx         repository.TxRunner
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// CustomerDependencies bundles collaborators for the customer service.
type CustomerDependencies struct {
	Repos      repository.Repositories
	Tx         repository.TxRunner
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// NewCustomerService constructs the service.
func NewCustomerService(deps CustomerDependencies) *CustomerService {
	s := &CustomerService{repos: deps.Repos, tx: deps.Tx, dispatcher: deps.Dispatcher, logger: deps.Logger, now: deps.Clock}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CustomerInput is the create payload.
type CustomerInput struct {
	CustomerName     string
	AccountNumber    string
	PrimaryPhone     string
	EmailAddress     *string
	PhysicalAddress  *string
	ServicePackage   domain.ServicePackage
	Status           domain.CustomerStatus
	InstallationDate *time.Time
}

// CustomerPatch carries editable customer fields. Nil means unchanged.
type CustomerPatch struct {
	CustomerName     *string
	PrimaryPhone     *string
	EmailAddress     *string
	PhysicalAddress  *string
	ServicePackage   *domain.ServicePackage
	Status           *domain.CustomerStatus
	InstallationDate *time.Time
}

// CustomerListQuery is the list request after HTTP parsing.
type CustomerListQuery struct {
	Filter  repository.CustomerFilter
	Page    int
	PerPage int
}

func validateCustomerEnums(errs fieldErrors, pkg *domain.ServicePackage, status *domain.CustomerStatus) {
	if pkg != nil {
		if _, ok := domain.ParseServicePackage(string(*pkg)); !ok {
			errs["service_package"] = "service_package is invalid"
		}
	}
	if status != nil {
		if _, ok := domain.ParseCustomerStatus(string(*status)); !ok {
			errs["status"] = "status is invalid"
		}
	}
}

// Create registers a customer. An empty account number is claimed from the sequence.
func (s *CustomerService) Create(ctx context.Context, input CustomerInput) (*domain.Customer, error) {
	if input.ServicePackage == "" {
		input.ServicePackage = domain.PackageStandard
	}
	if input.Status == "" {
		input.Status = domain.CustomerStatusActive
	}
	errs := fieldErrors{}
	errs.require("customer_name", input.CustomerName)
	errs.require("primary_phone", input.PrimaryPhone)
	validateCustomerEnums(errs, &input.ServicePackage, &input.Status)
	if err := errs.err(); err != nil {
		return nil, err
	}

	now := s.now()
	customer := &domain.Customer{
		CustomerName:     strings.TrimSpace(input.CustomerName),
		AccountNumber:    strings.TrimSpace(input.AccountNumber),
		PrimaryPhone:     strings.TrimSpace(input.PrimaryPhone),
		EmailAddress:     trimmed(input.EmailAddress),
		PhysicalAddress:  trimmed(input.PhysicalAddress),
		ServicePackage:   input.ServicePackage,
		Status:           input.Status,
		InstallationDate: now,
		CreatedAt:        now,
	}
	if input.InstallationDate != nil {
		customer.InstallationDate = *input.InstallationDate
	}

	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if customer.AccountNumber == "" {
			number, err := claimAccountNumber(ctx, r)
			if err != nil {
				return err
			}
			customer.AccountNumber = number
		} else if err := ensureAccountNumberFree(ctx, r, customer.AccountNumber); err != nil {
			return err
		}
		return r.Customers.Create(ctx, customer)
	})
	if repository.IsUniqueViolation(err) {
		return nil, duplicateAccount(customer.AccountNumber)
	}
	if err != nil {
		return nil, failure(s.logger, "create customer", err)
	}
	s.publish(ctx, events.EventCustomerCreated, customer)
	return customer, nil
}

func claimAccountNumber(ctx context.Context, r repository.Repositories) (string, error) {
	for i := 0; i < accountNumberAttempts; i++ {
		n, err := r.Sequences.Next(ctx, repository.AccountNumberSeq)
		if err != nil {
			return "", err
		}
		number := domain.FormatAccountNumber(n)
		_, err = r.Customers.GetByAccountNumber(ctx, number)
		if isNoRows(err) {
			return number, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", apperrors.NewConflict("could not allocate an account number", nil)
}

func ensureAccountNumberFree(ctx context.Context, r repository.Repositories, number string) error {
	_, err := r.Customers.GetByAccountNumber(ctx, number)
	if isNoRows(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return duplicateAccount(number)
}

func duplicateAccount(number string) error {
	return apperrors.NewConflict("account number already exists", map[string]any{"account_number": number})
}

// Get returns the customer with its tickets, newest first.
func (s *CustomerService) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	customer, err := s.repos.Customers.GetByID(ctx, id)
	if err != nil {
		return nil, failure(s.logger, "get customer", notFound(err, "customer", map[string]any{"id": id}))
	}
	tickets, err := s.repos.Tickets.ListByCustomer(ctx, id)
	if err != nil {
		return nil, failure(s.logger, "list customer tickets", err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	customer.Tickets = tickets
	return customer, nil
}

// List returns one page of customers.
func (s *CustomerService) List(ctx context.Context, query CustomerListQuery) (*Page[domain.Customer], error) {
	filter := query.Filter
	var page, perPage int
	filter.Page, page, perPage = Pagination(query.Page, query.PerPage)
	items, total, err := s.repos.Customers.List(ctx, filter)
	if err != nil {
		return nil, failure(s.logger, "list customers", err)
	}
	if items == nil {
		items = []domain.Customer{}
	}
	return &Page[domain.Customer]{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// Update applies a partial edit.
func (s *CustomerService) Update(ctx context.Context, id int64, patch CustomerPatch) (*domain.Customer, error) {
	errs := fieldErrors{}
	if patch.CustomerName != nil {
		errs.require("customer_name", *patch.CustomerName)
	}
	if patch.PrimaryPhone != nil {
		errs.require("primary_phone", *patch.PrimaryPhone)
	}
	validateCustomerEnums(errs, patch.ServicePackage, patch.Status)
	if err := errs.err(); err != nil {
		return nil, err
	}

	customer, err := s.repos.Customers.GetByID(ctx, id)
	if err != nil {
		return nil, failure(s.logger, "get customer", notFound(err, "customer", map[string]any{"id": id}))
	}
	if patch.CustomerName != nil {
		customer.CustomerName = strings.TrimSpace(*patch.CustomerName)
	}
	if patch.PrimaryPhone != nil {
		customer.PrimaryPhone = strings.TrimSpace(*patch.PrimaryPhone)
	}
	if patch.EmailAddress != nil {
		customer.EmailAddress = trimmed(patch.EmailAddress)
	}
	if patch.PhysicalAddress != nil {
		customer.PhysicalAddress = trimmed(patch.PhysicalAddress)
	}
	if patch.ServicePackage != nil {
		customer.ServicePackage = *patch.ServicePackage
	}
	if patch.Status != nil {
		customer.Status = *patch.Status
	}
	if patch.InstallationDate != nil {
		customer.InstallationDate = *patch.InstallationDate
	}
	customer.UpdatedAt = s.now()
	if err := s.repos.Customers.Update(ctx, customer); err != nil {
		return nil, failure(s.logger, "update customer", notFound(err, "customer", map[string]any{"id": id}))
	}
	s.publish(ctx, events.EventCustomerUpdated, customer)
	return customer, nil
}

// Suspend marks the account as suspended.
func (s *CustomerService) Suspend(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.setStatus(ctx, id, domain.CustomerStatusSuspended)
}

// Activate restores the account to active.
func (s *CustomerService) Activate(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.setStatus(ctx, id, domain.CustomerStatusActive)
}

// Deactivate marks the account as inactive.
func (s *CustomerService) Deactivate(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.setStatus(ctx, id, domain.CustomerStatusInactive)
}

func (s *CustomerService) setStatus(ctx context.Context, id int64, status domain.CustomerStatus) (*domain.Customer, error) {
	return s.Update(ctx, id, CustomerPatch{Status: &status})
}

func (s *CustomerService) publish(ctx context.Context, eventType events.EventType, customer *domain.Customer) {
	if s.dispatcher == nil {
		return
	}
	event := events.NewCustomerEvent(eventType, customer, events.Actor{Name: domain.SystemAuthor}, s.now())
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
