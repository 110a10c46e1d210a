package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/isp-support/internal/api/dto"
	"github.com/spec-kit/isp-support/internal/auth"
	"github.com/spec-kit/isp-support/internal/service"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.Envelope{Success: true, Message: message, Data: data})
}

func ok(c *fiber.Ctx, data any) error {
	return respond(c, fiber.StatusOK, "", data)
}

func created(c *fiber.Ctx, message string, data any) error {
	return respond(c, fiber.StatusCreated, message, data)
}

func paged[T any](c *fiber.Ctx, items []T, page, perPage, total int, stats any) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(dto.Envelope{
		Success: true,
		Data:    items,
		Meta:    &dto.Meta{Page: page, PerPage: perPage, Total: total},
		Stats:   stats,
	})
}

// actor returns the authenticated operator as a service actor.
func actor(c *fiber.Ctx) service.Actor {
	if principal, found := auth.PrincipalFromContext(c); found {
		return service.ActorFromUser(principal.User)
	}
	return service.Actor{}
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewFieldError("id", "id must be a positive integer")
	}
	return id, nil
}

func queryInt64(c *fiber.Ctx, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.NewFieldError(key, key+" must be an integer")
	}
	return &v, nil
}

func pageQuery(c *fiber.Ctx) (page, perPage int) {
	return c.QueryInt("page", 1), c.QueryInt("per_page", service.DefaultPerPage)
}
