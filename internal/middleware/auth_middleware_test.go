package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-cyclecount-ws/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	token string
	user  *model.User
}

func (f fakeAuthenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token != f.token {
		return nil, errors.New("invalid token")
	}
	return f.user, nil
}

func newAuthApp(t *testing.T, privileges ...string) (*fiber.App, *model.User) {
	t.Helper()
	user := &model.User{Username: "ana", FullName: "Ana Novak", IsActive: true}
	user.ID = uuid.New()
	for _, code := range privileges {
		user.Privileges = append(user.Privileges, model.Privilege{Code: code})
	}
	auth := fakeAuthenticator{token: "good", user: user}

	app := fiber.New()
	app.Get("/page", RequireAuth(auth, nil, RedirectToLogin), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(LocalUserID).(string) + "|" + c.Locals(LocalUserName).(string))
	})
	app.Get("/api", RequireAuth(auth, nil, JSONUnauthorized), RequirePrivilege(model.PrivilegeSessionFinalize), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, user
}

func TestRequireAuthRedirectsPages(t *testing.T) {
	app, _ := newAuthApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/page?x=1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fpage%3Fx%3D1", resp.Header.Get("Location"))
}

func TestRequireAuthAcceptsCookieAndBearer(t *testing.T) {
	app, user := newAuthApp(t)

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Cookie", TokenCookie+"=good")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String()+"|Ana Novak", string(body))
}

func TestRequireAuthRejectsBadTokenAsJSON(t *testing.T) {
	app, _ := newAuthApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer bad")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequirePrivilege(t *testing.T) {
	app, _ := newAuthApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	app, _ = newAuthApp(t, model.PrivilegeSessionFinalize)
	req = httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
