package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/mocks"
	"github.com/seu-repo/fuel-control/internal/ports"
)

type testServices struct {
	auth       *mocks.MockAuthService
	tank       *mocks.MockTankService
	refuelings *mocks.MockRefuelingService
	intakes    *mocks.MockIntakeService
	dashboard  *mocks.MockDashboardService
	reports    *mocks.MockReportService
	dispatcher *mocks.MockEventDispatcher
}

func testUser(id uint, roles ...domain.UserRole) *domain.User {
	u := &domain.User{ID: id, Name: "user", Active: true}
	u.SetRoles(roles...)
	return u
}

// newTestApp resolves the bearer tokens "admin", "operator" and "analyst"
// to users holding that role.
func newTestApp(t *testing.T) (*fiber.App, *testServices) {
	t.Helper()
	log := zap.NewNop()

	users := map[string]*domain.User{
		"admin":    testUser(1, domain.UserRoleAdmin),
		"operator": testUser(2, domain.UserRoleOperator),
		"analyst":  testUser(3, domain.UserRoleAnalyst),
	}

	s := &testServices{
		auth: &mocks.MockAuthService{
			ValidateTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
				if u, ok := users[token]; ok {
					return u, nil
				}
				return nil, domain.ErrUnauthenticated
			},
		},
		tank:       &mocks.MockTankService{},
		refuelings: &mocks.MockRefuelingService{},
		intakes:    &mocks.MockIntakeService{},
		dashboard:  &mocks.MockDashboardService{},
		reports:    &mocks.MockReportService{},
		dispatcher: &mocks.MockEventDispatcher{},
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(log)})
	RegisterRoutes(app, s.auth, Routes{
		Auth:       NewAuthHandler(s.auth, log),
		Tank:       NewTankHandler(s.tank, s.dispatcher, log),
		Refuelings: NewRefuelingHandler(s.refuelings, s.reports, time.UTC, 1024, log),
		Intakes:    NewIntakeHandler(s.intakes, time.UTC, log),
		Dashboard:  NewDashboardHandler(s.dashboard, time.UTC, log),
	})
	return app, s
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestLogin_SetsCookieAndReturnsToken(t *testing.T) {
	// Arrange
	app, s := newTestApp(t)
	s.auth.LoginFunc = func(ctx context.Context, email, password string) (string, error) {
		if email == "ops@fleet.test" && password == "secret-pass" {
			return "operator", nil
		}
		return "", domain.ErrUnauthenticated
	}

	// Act
	resp := doRequest(t, app, "POST", "/api/v1/auth/login", "", LoginRequest{Email: "ops@fleet.test", Password: "secret-pass"})

	// Assert
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Set-Cookie"), middleware.TokenCookie+"=operator") {
		t.Errorf("expected token cookie, got %q", resp.Header.Get("Set-Cookie"))
	}
	body := decode(t, resp)
	if body["access_token"] != "operator" {
		t.Errorf("unexpected token %v", body["access_token"])
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	app, s := newTestApp(t)
	s.auth.LoginFunc = func(ctx context.Context, email, password string) (string, error) {
		return "", domain.ErrUnauthenticated
	}

	resp := doRequest(t, app, "POST", "/api/v1/auth/login", "", LoginRequest{Email: "x@fleet.test", Password: "nope"})

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "GET", "/api/v1/refuelings", "", nil)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = doRequest(t, app, "GET", "/api/v1/refuelings", "forged", nil)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401 with unknown token, got %d", resp.StatusCode)
	}
}

func TestCreateRefueling(t *testing.T) {
	app, s := newTestApp(t)
	var gotActor *domain.User
	s.refuelings.CreateFunc = func(ctx context.Context, actor *domain.User, in ports.RefuelingInput) (*domain.Refueling, error) {
		gotActor = actor
		return &domain.Refueling{ID: 5, VehicleID: in.VehicleID, Quantity: in.Quantity, State: domain.StateDraft}, nil
	}

	resp := doRequest(t, app, "POST", "/api/v1/refuelings", "operator",
		ports.RefuelingInput{VehicleID: 4, Quantity: 20, UnitPrice: 5.5, ReadingKind: domain.ReadingOdometer})

	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if gotActor == nil || gotActor.ID != 2 {
		t.Errorf("expected operator as actor, got %+v", gotActor)
	}
	if body := decode(t, resp); body["quantity"] != 20.0 {
		t.Errorf("unexpected body %v", body)
	}
}

func TestCreateRefueling_AnalystDenied(t *testing.T) {
	app, s := newTestApp(t)
	called := false
	s.refuelings.CreateFunc = func(ctx context.Context, actor *domain.User, in ports.RefuelingInput) (*domain.Refueling, error) {
		called = true
		return nil, nil
	}

	resp := doRequest(t, app, "POST", "/api/v1/refuelings", "analyst", ports.RefuelingInput{VehicleID: 4})

	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
	if called {
		t.Error("service should not be reached")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &domain.ValidationError{Fields: []domain.FieldError{{Field: "quantity", Message: "must be greater than zero"}}}, fiber.StatusUnprocessableEntity},
		{"insufficient stock", &domain.InsufficientStockError{Available: 5000, Requested: 6000}, fiber.StatusConflict},
		{"capacity", &domain.CapacityExceededError{Capacity: 6000, Current: 5000, Requested: 1500}, fiber.StatusConflict},
		{"authorization", &domain.AuthorizationError{Action: "cancel"}, fiber.StatusForbidden},
		{"configuration", &domain.ConfigurationError{Message: "no tank"}, fiber.StatusInternalServerError},
		{"conflict", &domain.ConflictError{Message: "confirmed records cannot be deleted"}, fiber.StatusConflict},
		{"not found", domain.ErrNotFound, fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, s := newTestApp(t)
			s.refuelings.ConfirmFunc = func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error) {
				return nil, tt.err
			}

			resp := doRequest(t, app, "POST", "/api/v1/refuelings/confirm", "operator", idsRequest{IDs: []uint{1}})

			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestConfirm_InsufficientStockBody(t *testing.T) {
	app, s := newTestApp(t)
	s.refuelings.ConfirmFunc = func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error) {
		return nil, &domain.InsufficientStockError{Available: 5000, Requested: 6000}
	}

	resp := doRequest(t, app, "POST", "/api/v1/refuelings/confirm", "operator", idsRequest{IDs: []uint{1}})
	body := decode(t, resp)

	if body["available"] != 5000.0 || body["requested"] != 6000.0 {
		t.Errorf("unexpected body %v", body)
	}
	if !strings.Contains(body["error"].(string), "available 5000") {
		t.Errorf("unexpected message %v", body["error"])
	}
}

func TestConfirm_PassesIDs(t *testing.T) {
	app, s := newTestApp(t)
	var got []uint
	s.refuelings.ConfirmFunc = func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error) {
		got = ids
		return &domain.RefuelingResult{Skipped: []uint{3}}, nil
	}

	resp := doRequest(t, app, "POST", "/api/v1/refuelings/confirm", "operator", idsRequest{IDs: []uint{2, 3}})

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("unexpected ids %v", got)
	}

	resp = doRequest(t, app, "POST", "/api/v1/refuelings/confirm", "operator", idsRequest{})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for empty ids, got %d", resp.StatusCode)
	}
}

func TestListRefuelings_ParsesFilter(t *testing.T) {
	app, s := newTestApp(t)
	var got domain.RefuelingFilter
	s.refuelings.ListFunc = func(ctx context.Context, filter domain.RefuelingFilter) ([]domain.Refueling, error) {
		got = filter
		return nil, nil
	}

	resp := doRequest(t, app, "GET", "/api/v1/refuelings?from=2026-10-01&to=2026-10-15&vehicle_id=4&state=confirmed", "analyst", nil)

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got.VehicleID == nil || *got.VehicleID != 4 || got.State != domain.StateConfirmed {
		t.Errorf("unexpected filter %+v", got)
	}
	if !got.From.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected from %v", got.From)
	}
	if !got.To.Equal(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)) {
		t.Errorf("unexpected to %v", got.To)
	}

	resp = doRequest(t, app, "GET", "/api/v1/refuelings?from=01/10/2026", "analyst", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", resp.StatusCode)
	}
}

func TestExportRefuelings(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "GET", "/api/v1/refuelings/export.xlsx", "analyst", nil)

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != xlsxContentType {
		t.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "refuelings.xlsx") {
		t.Errorf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}
}

func TestAttachReceipt(t *testing.T) {
	app, s := newTestApp(t)
	var gotName string
	var gotData []byte
	s.refuelings.AttachReceiptFunc = func(ctx context.Context, actor *domain.User, id uint, filename, contentType string, data []byte) (*domain.Refueling, error) {
		gotName, gotData = filename, data
		return &domain.Refueling{ID: id}, nil
	}

	upload := func(size int) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, _ := w.CreateFormFile("file", "receipt.pdf")
		part.Write(bytes.Repeat([]byte("x"), size))
		w.Close()

		req := httptest.NewRequest("POST", "/api/v1/refuelings/7/receipt", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer operator")
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return resp
	}

	resp := upload(3)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotName != "receipt.pdf" || len(gotData) != 3 {
		t.Errorf("unexpected upload %q %d bytes", gotName, len(gotData))
	}

	resp = upload(2048)
	if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", resp.StatusCode)
	}
}

func TestDashboardData_RequiresAnalyst(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "GET", "/api/v1/dashboard/data", "operator", nil)

	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["error"] != "access denied" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestDashboardData_PassesQuery(t *testing.T) {
	app, s := newTestApp(t)
	var got domain.DashboardQuery
	s.dashboard.SummaryFunc = func(ctx context.Context, q domain.DashboardQuery) (*domain.DashboardSummary, error) {
		got = q
		return &domain.DashboardSummary{PeriodLabel: "October/2026", Filter: q}, nil
	}

	resp := doRequest(t, app, "GET", "/api/v1/dashboard/data?driver_id=9", "analyst", nil)

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got.DriverID == nil || *got.DriverID != 9 || !got.From.IsZero() {
		t.Errorf("unexpected query %+v", got)
	}
	if body := decode(t, resp); body["period_label"] != "October/2026" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestDashboardPage(t *testing.T) {
	app, s := newTestApp(t)
	s.dashboard.SummaryFunc = func(ctx context.Context, q domain.DashboardQuery) (*domain.DashboardSummary, error) {
		return &domain.DashboardSummary{
			PeriodLabel: "October/2026",
			Tank:        domain.TankGauge{Name: "Main Tank", Capacity: 6000, Stock: 3000, Percentage: 50, Status: domain.TankStatusWarning, ColorClass: "warning"},
			Daily:       []domain.DailyPoint{{Label: "16/10", Liters: 20, Height: 40}},
		}, nil
	}

	t.Run("operator is redirected", func(t *testing.T) {
		resp := doRequest(t, app, "GET", "/dashboard", "operator", nil)
		if resp.StatusCode != fiber.StatusFound {
			t.Fatalf("expected 302, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Location") != "/" {
			t.Errorf("unexpected location %q", resp.Header.Get("Location"))
		}
	})

	t.Run("anonymous is redirected", func(t *testing.T) {
		resp := doRequest(t, app, "GET", "/dashboard", "", nil)
		if resp.StatusCode != fiber.StatusFound {
			t.Errorf("expected 302, got %d", resp.StatusCode)
		}
	})

	t.Run("analyst via cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: "analyst"})
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		raw, _ := io.ReadAll(resp.Body)
		html := string(raw)
		for _, want := range []string{"October/2026", "Main Tank", "bg-warning", "16/10"} {
			if !strings.Contains(html, want) {
				t.Errorf("page missing %q", want)
			}
		}
	})
}

func TestTankBaseline_AdminOnly(t *testing.T) {
	app, s := newTestApp(t)
	var got float64
	s.tank.AdjustBaselineFunc = func(ctx context.Context, actor *domain.User, tankID uint, baseline float64) (*domain.Tank, error) {
		got = baseline
		return &domain.Tank{ID: tankID, ManualBaseline: baseline}, nil
	}

	resp := doRequest(t, app, "PUT", "/api/v1/tank/baseline", "operator", BaselineRequest{Baseline: floatPtr(100)})
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("expected 403 for operator, got %d", resp.StatusCode)
	}

	resp = doRequest(t, app, "PUT", "/api/v1/tank/baseline", "admin", BaselineRequest{Baseline: floatPtr(250)})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.StatusCode)
	}
	if got != 250 {
		t.Errorf("expected baseline 250, got %v", got)
	}
	if len(s.dispatcher.Subjects()) != 1 {
		t.Errorf("expected one event, got %v", s.dispatcher.Subjects())
	}
}

func TestIntakeCapacityExceeded(t *testing.T) {
	app, s := newTestApp(t)
	s.intakes.ConfirmFunc = func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error) {
		return nil, &domain.CapacityExceededError{Capacity: 6000, Current: 5000, Requested: 1500}
	}

	resp := doRequest(t, app, "POST", "/api/v1/intakes/confirm", "operator", idsRequest{IDs: []uint{1}})

	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["capacity"] != 6000.0 {
		t.Errorf("unexpected body %v", body)
	}
}

func TestGetIntake_NotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, "GET", "/api/v1/intakes/99", "operator", nil)

	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func floatPtr(v float64) *float64 { return &v }
