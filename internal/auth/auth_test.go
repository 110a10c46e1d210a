package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/isp-support/internal/domain"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

type stubUsers map[int64]*domain.User

func (s stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	user := &domain.User{ID: 12, Role: domain.UserRoleAgent}

	token, exp, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(12), claims.UserID)
	assert.Equal(t, domain.UserRoleAgent, claims.Role)
	assert.Equal(t, "12", claims.Subject)
}

func TestTokenRejectsExpiredAndForeign(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	token, _, err := tm.GenerateToken(&domain.User{ID: 1, Role: domain.UserRoleAdmin})
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	other := NewTokenManager("other-secret", time.Hour)
	fresh, _, err := other.GenerateToken(&domain.User{ID: 1})
	require.NoError(t, err)
	_, err = NewTokenManager("secret", time.Hour).ParseToken(fresh)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret-pass"))
	assert.Error(t, ComparePassword(hash, "wrong-pass"))
}

func newApp(m *AuthMiddleware, guards ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	handlers := append([]fiber.Handler{m.Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Name)
	})
	app.Get("/me", handlers...)
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	users := stubUsers{
		1: {ID: 1, Name: "Admin", Role: domain.UserRoleAdmin, Status: domain.UserStatusActive},
		2: {ID: 2, Name: "Agent", Role: domain.UserRoleAgent, Status: domain.UserStatusActive},
		3: {ID: 3, Name: "Gone", Role: domain.UserRoleAgent, Status: domain.UserStatusInactive},
	}
	m := NewAuthMiddleware(tm, users)
	tokenFor := func(id int64) string {
		tok, _, err := tm.GenerateToken(users[id])
		require.NoError(t, err)
		return "Bearer " + tok
	}

	tests := []struct {
		name   string
		header string
		guards []fiber.Handler
		status int
	}{
		{"missing header", "", nil, http.StatusUnauthorized},
		{"malformed header", "Token abc", nil, http.StatusUnauthorized},
		{"bad token", "Bearer nope", nil, http.StatusUnauthorized},
		{"active agent", tokenFor(2), nil, http.StatusOK},
		{"inactive user", tokenFor(3), nil, http.StatusUnauthorized},
		{"agent on admin route", tokenFor(2), []fiber.Handler{RequireRole(domain.UserRoleAdmin)}, http.StatusForbidden},
		{"admin on admin route", tokenFor(1), []fiber.Handler{RequireRole(domain.UserRoleAdmin)}, http.StatusOK},
		{"any authenticated", tokenFor(2), []fiber.Handler{RequireAuthenticated()}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := newApp(m, tt.guards...).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
