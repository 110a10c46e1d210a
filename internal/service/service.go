package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/isp-support/internal/domain"
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/repository"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// Clock returns the current time. Services never call time.Now directly.
type Clock func() time.Time

// Actor is the operator performing a mutation. A zero Actor is the system.
type Actor struct {
	UserID *int64
	Name   string
}

// ActorFromUser builds an Actor for an authenticated user.
func ActorFromUser(u *domain.User) Actor {
	if u == nil {
		return Actor{}
	}
	id := u.ID
	return Actor{UserID: &id, Name: u.Name}
}

func (a Actor) authorName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return domain.SystemAuthor
}

func (a Actor) eventActor() events.Actor {
	return events.Actor{UserID: a.UserID, Name: a.authorName()}
}

// Page is a list result with its total row count.
type Page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultPerPage is used when a list request does not name a page size.
const DefaultPerPage = 15

// MaxPerPage caps list requests.
const MaxPerPage = 100

// Pagination converts 1-based page numbers into a repository page.
func Pagination(page, perPage int) (repository.Page, int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return repository.Page{Limit: perPage, Offset: (page - 1) * perPage}, page, perPage
}

// failure converts repository errors into domain errors. Domain errors pass
// through untouched; anything unexpected is logged and reported as a
// persistence failure.
func failure(logger *zap.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, repository.ErrStaleVersion) {
		return apperrors.NewConflict("record was modified by another request, reload and retry", nil)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewInternalError(err)
	}
	logger.Error("persistence failure", zap.String("operation", op), zap.Error(err))
	return apperrors.NewPersistenceError(err)
}

// notFound maps pgx.ErrNoRows to a NotFound for resource.
func notFound(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// fieldErrors accumulates per-field validation messages.
type fieldErrors map[string]any

func (f fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = field + " is required"
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError("validation failed", map[string]any(f))
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
