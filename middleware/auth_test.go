package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Barista/Auth"
	"Barista/Models"
)

type tokenProvider map[string]string

func (p tokenProvider) VerifyToken(_ context.Context, token string) (string, error) {
	if uid, ok := p[token]; ok {
		return uid, nil
	}
	return "", Auth.ErrInvalidToken
}

func (p tokenProvider) CreateAccount(context.Context, string, string, string) (string, error) {
	return "", errors.New("not supported")
}

func (p tokenProvider) DeleteAccount(context.Context, string) error { return nil }

type profileMap map[string]Models.UserProfile

func (m profileMap) GetProfile(_ context.Context, uid string) (Models.UserProfile, error) {
	if p, ok := m[uid]; ok {
		return p, nil
	}
	return Models.UserProfile{}, errors.New("not found")
}

func newTestApp(required Models.Role) *fiber.App {
	shop := "shop1"
	authn := NewAuthenticator(
		tokenProvider{"admin-token": "admin", "staff-token": "staff", "ghost-token": "ghost", "odd-token": "odd"},
		profileMap{
			"admin": {ID: "admin", Role: Models.RoleAdmin, CoffeeshopID: &shop},
			"staff": {ID: "staff", Role: Models.RoleStaff, CoffeeshopID: &shop},
			"odd":   {ID: "odd", Role: Models.Role("owner")},
		},
		nil,
	)
	app := fiber.New()
	app.Get("/", authn.Verify(required), func(c *fiber.Ctx) error {
		profile, _ := CurrentProfile(c)
		return c.JSON(profile)
	})
	return app
}

func call(t *testing.T, app *fiber.App, token, cookie string) (int, map[string]interface{}) {
	req := httptest.NewRequest("GET", "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cookie != "" {
		req.Header.Set("Cookie", "jwt="+cookie)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestVerify_Unauthenticated(t *testing.T) {
	app := newTestApp(Models.RoleStaff)

	status, body := call(t, app, "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", body["code"])

	status, _ = call(t, app, "forged", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestVerify_RoleLevels(t *testing.T) {
	app := newTestApp(Models.RoleAdmin)

	status, body := call(t, app, "admin-token", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "admin", body["role"])

	status, body = call(t, app, "staff-token", "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "permission-denied", body["code"])
}

func TestVerify_MissingProfileFallsBackToStaff(t *testing.T) {
	status, body := call(t, newTestApp(Models.RoleStaff), "ghost-token", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ghost", body["id"])
	assert.Equal(t, "staff", body["role"])

	status, _ = call(t, newTestApp(Models.RoleAdmin), "ghost-token", "")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestVerify_UnknownRoleIsStaff(t *testing.T) {
	status, body := call(t, newTestApp(Models.RoleStaff), "odd-token", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "staff", body["role"])
}

func TestVerify_CookieToken(t *testing.T) {
	status, body := call(t, newTestApp(Models.RoleStaff), "", "staff-token")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "staff", body["id"])
}
