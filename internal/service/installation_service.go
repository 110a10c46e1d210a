package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/isp-support/internal/analytics"
	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/observability"
	"github.com/spec-kit/isp-support/internal/repository"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// InstallationService manages field installation visits.
type InstallationService struct {
	repos   repository.Repositories
	tx      repository.TxRunner
	metrics *observability.Metrics
	logger  *zap.Logger
	now     Clock
}

// InstallationDependencies bundles collaborators for the installation service.
type InstallationDependencies struct {
	Repos   repository.Repositories
	Tx      repository.TxRunner
	Metrics *observability.Metrics
	Logger  *zap.Logger
	Clock   Clock
}

// NewInstallationService constructs the service.
func NewInstallationService(deps InstallationDependencies) *InstallationService {
	s := &InstallationService{repos: deps.Repos, tx: deps.Tx, metrics: deps.Metrics, logger: deps.Logger, now: deps.Clock}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// InstallationInput is the create payload.
type InstallationInput struct {
	CustomerID           *int64
	CustomerName         string
	Address              string
	ContactNumber        string
	ScheduledDate        time.Time
	Technician           string
	AssignedTechnicianID *int64
	Equipment            *string
	Notes                *string
}

// InstallationPatch carries editable installation fields. Status is changed
// only through the transition operations.
type InstallationPatch struct {
	CustomerName         *string
	Address              *string
	ContactNumber        *string
	ScheduledDate        *time.Time
	Technician           *string
	AssignedTechnicianID *int64
	Equipment            *string
	Notes                *string
}

// InstallationListQuery is the list request after HTTP parsing.
type InstallationListQuery struct {
	Filter  repository.InstallationFilter
	Page    int
	PerPage int
}

// InstallationStatistics reports status counts and the completion rate.
type InstallationStatistics struct {
	Total          int                               `json:"total"`
	ByStatus       map[domain.InstallationStatus]int `json:"by_status"`
	CompletionRate float64                           `json:"completion_rate"`
}

// Create books a new pending installation.
func (s *InstallationService) Create(ctx context.Context, input InstallationInput) (*domain.Installation, error) {
	errs := fieldErrors{}
	errs.require("customer_name", input.CustomerName)
	errs.require("address", input.Address)
	errs.require("contact_number", input.ContactNumber)
	if input.ScheduledDate.IsZero() {
		errs["scheduled_date"] = "scheduled_date is required"
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	now := s.now()
	inst := &domain.Installation{
		CustomerID:           input.CustomerID,
		CustomerName:         strings.TrimSpace(input.CustomerName),
		Address:              strings.TrimSpace(input.Address),
		ContactNumber:        strings.TrimSpace(input.ContactNumber),
		ScheduledDate:        input.ScheduledDate,
		Technician:           strings.TrimSpace(input.Technician),
		AssignedTechnicianID: input.AssignedTechnicianID,
		Equipment:            trimmed(input.Equipment),
		Notes:                trimmed(input.Notes),
		Status:               domain.InstallationStatusPending,
		CreatedAt:            now,
	}
	if inst.Technician == "" {
		inst.Technician = domain.UnassignedTechnician
	}

	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if inst.CustomerID != nil {
			if _, err := r.Customers.GetByID(ctx, *inst.CustomerID); err != nil {
				if isNoRows(err) {
					return apperrors.NewFieldError("customer_id", "customer_id does not reference an existing customer")
				}
				return err
			}
		}
		if inst.AssignedTechnicianID != nil {
			tech, err := activeAssignee(ctx, r, *inst.AssignedTechnicianID)
			if err != nil {
				return err
			}
			inst.Technician = tech.Name
		}
		n, err := r.Sequences.Next(ctx, repository.InstallationNumberSeq)
		if err != nil {
			return err
		}
		inst.InstallationNumber = domain.FormatInstallationNumber(n)
		return r.Installations.Create(ctx, inst)
	})
	if err != nil {
		return nil, failure(s.logger, "create installation", err)
	}
	return inst, nil
}

// Get returns one installation.
func (s *InstallationService) Get(ctx context.Context, id int64) (*domain.Installation, error) {
	inst, err := s.repos.Installations.GetByID(ctx, id)
	if err != nil {
		return nil, failure(s.logger, "get installation", notFound(err, "installation", map[string]any{"id": id}))
	}
	return inst, nil
}

// List returns one page of installations ordered by scheduled date.
func (s *InstallationService) List(ctx context.Context, query InstallationListQuery) (*Page[domain.Installation], error) {
	filter := query.Filter
	var page, perPage int
	filter.Page, page, perPage = Pagination(query.Page, query.PerPage)
	items, total, err := s.repos.Installations.List(ctx, filter)
	if err != nil {
		return nil, failure(s.logger, "list installations", err)
	}
	if items == nil {
		items = []domain.Installation{}
	}
	return &Page[domain.Installation]{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// Update applies a partial edit.
func (s *InstallationService) Update(ctx context.Context, id int64, patch InstallationPatch) (*domain.Installation, error) {
	errs := fieldErrors{}
	if patch.CustomerName != nil {
		errs.require("customer_name", *patch.CustomerName)
	}
	if patch.Address != nil {
		errs.require("address", *patch.Address)
	}
	if patch.ContactNumber != nil {
		errs.require("contact_number", *patch.ContactNumber)
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "", func(inst *domain.Installation) error {
		if patch.CustomerName != nil {
			inst.CustomerName = strings.TrimSpace(*patch.CustomerName)
		}
		if patch.Address != nil {
			inst.Address = strings.TrimSpace(*patch.Address)
		}
		if patch.ContactNumber != nil {
			inst.ContactNumber = strings.TrimSpace(*patch.ContactNumber)
		}
		if patch.ScheduledDate != nil {
			inst.ScheduledDate = *patch.ScheduledDate
		}
		if patch.Technician != nil {
			inst.Technician = strings.TrimSpace(*patch.Technician)
			if inst.Technician == "" {
				inst.Technician = domain.UnassignedTechnician
			}
		}
		if patch.AssignedTechnicianID != nil {
			inst.AssignedTechnicianID = patch.AssignedTechnicianID
		}
		if patch.Equipment != nil {
			inst.Equipment = trimmed(patch.Equipment)
		}
		if patch.Notes != nil {
			inst.Notes = trimmed(patch.Notes)
		}
		return nil
	})
}

// Schedule books the visit date and technician.
func (s *InstallationService) Schedule(ctx context.Context, id int64, at time.Time, technician string, technicianID *int64) (*domain.Installation, error) {
	if at.IsZero() {
		return nil, apperrors.NewFieldError("scheduled_date", "scheduled_date is required")
	}
	return s.mutate(ctx, id, domain.TransitionSchedule, func(inst *domain.Installation) error {
		return inst.Schedule(at, technician, technicianID)
	})
}

// Start marks the visit as in progress.
func (s *InstallationService) Start(ctx context.Context, id int64) (*domain.Installation, error) {
	return s.mutate(ctx, id, domain.TransitionStart, func(inst *domain.Installation) error {
		return inst.Start()
	})
}

// Complete finishes the visit, appending optional completion notes.
func (s *InstallationService) Complete(ctx context.Context, id int64, notes string) (*domain.Installation, error) {
	return s.mutate(ctx, id, domain.TransitionComplete, func(inst *domain.Installation) error {
		return inst.Complete(notes)
	})
}

// Cancel aborts a non-terminal visit.
func (s *InstallationService) Cancel(ctx context.Context, id int64, reason string) (*domain.Installation, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewFieldError("reason", "reason is required")
	}
	return s.mutate(ctx, id, domain.TransitionCancel, func(inst *domain.Installation) error {
		return inst.Cancel(reason)
	})
}

// Delete soft-deletes the installation.
func (s *InstallationService) Delete(ctx context.Context, id int64) error {
	if err := s.repos.Installations.SoftDelete(ctx, id, s.now()); err != nil {
		return failure(s.logger, "delete installation", notFound(err, "installation", map[string]any{"id": id}))
	}
	return nil
}

// Statistics counts installations per status.
func (s *InstallationService) Statistics(ctx context.Context) (*InstallationStatistics, error) {
	counts, err := s.repos.Installations.CountByStatus(ctx)
	if err != nil {
		return nil, failure(s.logger, "installation statistics", err)
	}
	byStatus := make(map[domain.InstallationStatus]int, len(domain.InstallationStatuses))
	total := 0
	for _, st := range domain.InstallationStatuses {
		byStatus[st] = counts[st]
		total += counts[st]
	}
	return &InstallationStatistics{
		Total:          total,
		ByStatus:       byStatus,
		CompletionRate: analytics.Percent(byStatus[domain.InstallationStatusCompleted], total, 2, 0),
	}, nil
}

func (s *InstallationService) mutate(ctx context.Context, id int64, transition string, apply func(*domain.Installation) error) (*domain.Installation, error) {
	inst, err := s.repos.Installations.GetByID(ctx, id)
	if err != nil {
		return nil, failure(s.logger, "get installation", notFound(err, "installation", map[string]any{"id": id}))
	}
	if err := apply(inst); err != nil {
		return nil, err
	}
	inst.UpdatedAt = s.now()
	if err := s.repos.Installations.Update(ctx, inst); err != nil {
		return nil, failure(s.logger, "update installation", notFound(err, "installation", map[string]any{"id": id}))
	}
	if transition != "" {
		s.metrics.RecordTransition("installation_" + transition)
	}
	return inst, nil
}
