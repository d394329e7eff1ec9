package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/productsvc"
	"go-cyclecount-ws/internal/repository"
	"go-cyclecount-ws/internal/service"
	"go-cyclecount-ws/internal/testdb"
	"go-cyclecount-ws/internal/view"
	"go-cyclecount-ws/pkg/jwt"
	"go-cyclecount-ws/web"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	app   *fiber.App
	db    *gorm.DB
	fx    *testdb.Fixture
	auth  service.AuthService
	repos *repository.Repositories
}

func newTestServer(t *testing.T, productBaseURL string) *testServer {
	t.Helper()
	db := testdb.New(t)
	repos := repository.NewRepositories(db)
	require.NoError(t, service.SeedDefaults(context.Background(), repos, service.SeedOptions{}, nil))

	tokens, err := jwt.NewManager("handler-test-secret", "cyclecount-test", time.Hour)
	require.NoError(t, err)
	auth := service.NewAuthService(repos.Users, tokens, nil)

	app := NewApp("Cycle Count", view.New(web.TemplatesFS(), "Cycle Count"), nil)
	RegisterRoutes(app, Services{
		Auth:       auth,
		CycleCount: service.NewCycleCountService(db, repos, nil, nil, nil),
		Inventory:  service.NewInventoryService(repos.Inventory, 4),
		Dashboard:  service.NewDashboardService(repos),
		Products:   productsvc.NewClient(productBaseURL),
		Roles:      repos.Roles,
		Privileges: repos.Privileges,
	}, RouteOptions{})

	return &testServer{app: app, db: db, fx: testdb.NewFixture(t, db), auth: auth, repos: repos}
}

// login creates a user with the given role and returns a session cookie for it.
func (s *testServer) login(t *testing.T, username, roleCode string) (*model.User, string) {
	t.Helper()
	user := s.fx.User(username)
	if roleCode != "" {
		role, err := s.repos.Roles.FindByCode(context.Background(), roleCode)
		require.NoError(t, err)
		require.NoError(t, s.db.Model(&model.User{}).Where("id = ?", user.ID).Update("role_id", role.ID).Error)
	}
	result, err := s.auth.Login(context.Background(), username, "password")
	require.NoError(t, err)
	return user, "token=" + result.Token
}

func (s *testServer) do(t *testing.T, method, target, cookie string, form url.Values) *http.Response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestUnauthenticatedPageRedirectsToLogin(t *testing.T) {
	s := newTestServer(t, "")

	resp := s.do(t, http.MethodGet, "/cycle-count/sessions", "", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fcycle-count%2Fsessions", resp.Header.Get("Location"))

	resp = s.do(t, http.MethodGet, "/api/v1/dashboard/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "error")
}

func TestLoginForm(t *testing.T) {
	s := newTestServer(t, "")
	s.fx.User("ana")

	resp := s.do(t, http.MethodGet, "/login?next=/cycle-count/sessions", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `value="/cycle-count/sessions"`)

	resp = s.do(t, http.MethodPost, "/login", "", url.Values{"username": {"ana"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), service.ErrInvalidCredentials.Error())

	resp = s.do(t, http.MethodPost, "/login", "", url.Values{
		"username": {"ana"},
		"password": {"password"},
		"next":     {"//evil.example"},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, defaultLanding, resp.Header.Get("Location"))
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "token=")
}

func TestScanWorkflow(t *testing.T) {
	s := newTestServer(t, "")
	loc := s.fx.Location("A-01")
	product := s.fx.Product("SKU-1", "Widget")
	_, cookie := s.login(t, "ana", model.RoleAssociate)

	resp := s.do(t, http.MethodPost, "/cycle-count/sessions", cookie, url.Values{})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	locationURL := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(locationURL, "/cycle-count/sessions/"))
	require.True(t, strings.HasSuffix(locationURL, "/location"))
	sessionID := strings.TrimSuffix(strings.TrimPrefix(locationURL, "/cycle-count/sessions/"), "/location")

	resp = s.do(t, http.MethodGet, locationURL, cookie, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `name="location-barcode"`)

	resp = s.do(t, http.MethodPost, locationURL, cookie, url.Values{"location-barcode": {"Z-99"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Invalid location")

	resp = s.do(t, http.MethodPost, locationURL, cookie, url.Values{"location-barcode": {"A-01"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	productURL := resp.Header.Get("Location")
	assert.Equal(t, productPromptURL(uuid.MustParse(sessionID), loc.ID), productURL)

	resp = s.do(t, http.MethodPost, productURL, cookie, url.Values{"sku": {"NOPE"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Invalid product")

	for i := 0; i < 2; i++ {
		resp = s.do(t, http.MethodPost, productURL, cookie, url.Values{"sku": {"SKU-1"}})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, productURL+"?scanned=SKU-1", resp.Header.Get("Location"))
	}

	var counts []model.IndividualCount
	require.NoError(t, s.db.Where("session_id = ?", sessionID).Find(&counts).Error)
	require.Len(t, counts, 2)
	assert.Equal(t, product.ID, counts[0].ProductID)

	resp = s.do(t, http.MethodGet, "/cycle-count/sessions", cookie, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), sessionID)

	resp = s.do(t, http.MethodGet, "/cycle-count/sessions/"+sessionID+"/review", cookie, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = s.do(t, http.MethodPost, "/cycle-count/sessions/"+sessionID+"/finalize", cookie, url.Values{"choice": {"Accepted"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReviewAndFinalize(t *testing.T) {
	s := newTestServer(t, "")
	associate, _ := s.login(t, "ana", model.RoleAssociate)
	_, supCookie := s.login(t, "sam", model.RoleSupervisor)

	loc := s.fx.Location("A-01")
	product := s.fx.Product("SKU-1", "Widget")
	s.fx.Inventory(loc, product, 5)
	session := s.fx.Session(associate)
	s.fx.Count(session, associate, loc, product, 1, model.CountStateActive)
	base := "/cycle-count/sessions/" + session.ID.String()

	resp := s.do(t, http.MethodGet, base+"/review", supCookie, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "SKU-1")
	assert.Contains(t, body, `<span class="role">SUPERVISOR</span>`)
	assert.Contains(t, body, `value="Accepted"`)
	assert.Contains(t, body, "-4")

	resp = s.do(t, http.MethodPost, base+"/finalize", supCookie, url.Values{"choice": {"Maybe"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, base+"/finalize", supCookie, url.Values{"choice": {"Accepted"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/cycle-count/sessions", resp.Header.Get("Location"))

	var entry model.InventoryEntry
	require.NoError(t, s.db.Where("location_id = ? AND product_id = ?", loc.ID, product.ID).First(&entry).Error)
	assert.Equal(t, 1, entry.Qty)

	resp = s.do(t, http.MethodPost, base+"/finalize", supCookie, url.Values{"choice": {"Canceled"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "already finalized")

	resp = s.do(t, http.MethodGet, base+"/location", supCookie, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = s.do(t, http.MethodPost, base+"/locations/"+loc.ID.String()+"/product", supCookie, url.Values{"sku": {"SKU-1"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodGet, base+"/review", supCookie, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = readBody(t, resp)
	assert.NotContains(t, body, `value="Accepted"`)
	assert.Contains(t, body, "Applied adjustments")

	resp = s.do(t, http.MethodGet, "/cycle-count/sessions/"+uuid.NewString()+"/review", supCookie, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = s.do(t, http.MethodGet, "/cycle-count/sessions/not-a-uuid/location", supCookie, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type staleInventory struct {
	repository.InventoryRepository
}

func (staleInventory) FindForUpdate(tx *gorm.DB, key model.PairKey) (*model.InventoryEntry, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestFinalizeConflictReturns409(t *testing.T) {
	s := newTestServer(t, "")
	associate, _ := s.login(t, "ana", model.RoleAssociate)
	_, supCookie := s.login(t, "sam", model.RoleSupervisor)

	loc := s.fx.Location("A-01")
	product := s.fx.Product("SKU-1", "Widget")
	session := s.fx.Session(associate)
	s.fx.Count(session, associate, loc, product, 3, model.CountStateActive)
	s.fx.Inventory(loc, product, 5)
	s.repos.Inventory = staleInventory{s.repos.Inventory}

	resp := s.do(t, http.MethodPost, "/cycle-count/sessions/"+session.ID.String()+"/finalize", supCookie, url.Values{"choice": {"Accepted"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Inventory changed while finalizing")

	var stored model.CountSession
	require.NoError(t, s.db.First(&stored, "id = ?", session.ID).Error)
	assert.True(t, stored.IsOpen())
	var mods int64
	require.NoError(t, s.db.Model(&model.CycleCountModification{}).Count(&mods).Error)
	assert.Zero(t, mods)
}

func TestInventoryTables(t *testing.T) {
	var remoteHits atomic.Int32
	var knownID atomic.Value
	knownID.Store("")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remoteHits.Add(1)
		id := knownID.Load().(string)
		if r.URL.Path != "/products/"+id {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"`+id+`","description":"Widget","sku":"REMOTE-1"}`)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	resp := s.do(t, http.MethodGet, "/inventory/table-db", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"last_page":0,"data":[]}`, readBody(t, resp))

	loc := s.fx.Location("A-01")
	known := s.fx.Product("SKU-1", "Widget")
	knownID.Store(known.ID.String())
	unknown := s.fx.Product("SKU-2", "Gadget")
	s.fx.Inventory(loc, known, 2)
	s.fx.Inventory(loc, unknown, 3)

	resp = s.do(t, http.MethodGet, "/inventory/table-db?page=1&size=1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dbPage service.InventoryPage
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &dbPage))
	assert.Equal(t, 2, dbPage.LastPage)
	require.Len(t, dbPage.Data, 1)
	assert.Equal(t, "SKU-1", *dbPage.Data[0].SKU)

	resp = s.do(t, http.MethodGet, "/inventory/table-api", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var apiPage service.InventoryPage
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &apiPage))
	require.Len(t, apiPage.Data, 2)
	require.NotNil(t, apiPage.Data[0].SKU)
	assert.Equal(t, "REMOTE-1", *apiPage.Data[0].SKU)
	assert.Nil(t, apiPage.Data[1].SKU)
	assert.Equal(t, int32(2), remoteHits.Load())

	resp = s.do(t, http.MethodGet, "/inventory", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "A-01")
}

func TestDashboardRequiresPrivilege(t *testing.T) {
	s := newTestServer(t, "")
	_, assocCookie := s.login(t, "ana", model.RoleAssociate)
	_, supCookie := s.login(t, "sam", model.RoleSupervisor)

	resp := s.do(t, http.MethodGet, "/api/v1/dashboard/stats", assocCookie, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"error"`)

	resp = s.do(t, http.MethodGet, "/api/v1/dashboard/stats", supCookie, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats service.DashboardStats
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &stats))
	assert.Equal(t, int64(0), stats.OpenSessions)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/inventory", safeNext("/inventory"))
	assert.Equal(t, defaultLanding, safeNext(""))
	assert.Equal(t, defaultLanding, safeNext("https://evil.example"))
	assert.Equal(t, defaultLanding, safeNext("//evil.example"))
}

func TestRolesAndPrivileges(t *testing.T) {
	s := newTestServer(t, "")
	_, cookie := s.login(t, "sam", model.RoleSupervisor)

	resp := s.do(t, http.MethodGet, "/api/v1/roles", cookie, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var roles []model.Role
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &roles))
	require.Len(t, roles, len(model.DefaultRoles))

	resp = s.do(t, http.MethodGet, "/api/v1/privileges", cookie, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), model.PrivilegeSessionFinalize)
}
