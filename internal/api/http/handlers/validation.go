package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spec-kit/isp-support/internal/domain"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

// dateLayouts are accepted for date and datetime inputs, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

type enumTag struct {
	tag    string
	values []string
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

var enumTags = []enumTag{
	{"ticket_status", enumValues(domain.TicketStatuses)},
	{"ticket_priority", enumValues(domain.TicketPriorities)},
	{"ticket_category", enumValues(domain.TicketCategories)},
	{"ticket_type", enumValues(domain.TicketTypes)},
	{"escalation_level", enumValues(domain.EscalationLevels)},
	{"service_package", enumValues(domain.ServicePackages)},
	{"customer_status", enumValues(domain.CustomerStatuses)},
	{"installation_status", enumValues(domain.InstallationStatuses)},
	{"user_role", enumValues(domain.UserRoles)},
	{"user_status", []string{string(domain.UserStatusActive), string(domain.UserStatusInactive)}},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	for _, e := range enumTags {
		allowed := e.values
		mustRegister(v, e.tag, func(fl validator.FieldLevel) bool {
			return contains(allowed, fl.Field().String())
		})
	}
	mustRegister(v, "datetime_any", func(fl validator.FieldLevel) bool {
		_, err := parseDateTime(fl.Field().String(), time.UTC)
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// bind parses the JSON body into dst and validates it.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return validateStruct(dst)
}

func validateStruct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		if _, seen := details[fe.Field()]; !seen {
			details[fe.Field()] = fieldMessage(fe)
		}
	}
	return apperrors.NewValidationError("validation failed", details)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
	case "datetime_any":
		return field + " must be a valid date"
	}
	for _, e := range enumTags {
		if e.tag == fe.Tag() {
			return fmt.Sprintf("%s must be one of: %s", field, strings.Join(e.values, ", "))
		}
	}
	return field + " is invalid"
}

// normalizeSlug maps URL-friendly values such as "in-progress" or "critical"
// onto the title-cased enum spelling.
func normalizeSlug(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = strings.NewReplacer("-", " ", "_", " ").Replace(raw)
	return cases.Title(language.English).String(raw)
}

// enumQuery reads an optional enum filter from the query string. Empty and
// "all" mean no filter.
func enumQuery[T ~string](c *fiber.Ctx, key string, parse func(string) (T, bool)) (*T, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" || strings.EqualFold(raw, "all") {
		return nil, nil
	}
	if v, ok := parse(raw); ok {
		return &v, nil
	}
	if v, ok := parse(normalizeSlug(raw)); ok {
		return &v, nil
	}
	return nil, apperrors.NewFieldError(key, key+" is invalid")
}

func parseDateTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
