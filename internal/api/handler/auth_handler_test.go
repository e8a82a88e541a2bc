package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/researchmatch/identity-service/internal/api"
	"github.com/researchmatch/identity-service/internal/api/handler"
	"github.com/researchmatch/identity-service/internal/core/domain"
	"github.com/researchmatch/identity-service/internal/core/ports"
)

// stubIdentity lets each test script the orchestrator's behavior and inspect
// what the handler passed down.
type stubIdentity struct {
	registerFn func(ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(email, password string) (*ports.AuthResult, error)
	resolveFn  func(token string) (*domain.Identity, error)
	recentFn   func(accountID string, limit int) ([]domain.LoginAuditRecord, error)
}

func (s *stubIdentity) Register(_ context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(in)
}

func (s *stubIdentity) Login(_ context.Context, email, password string, _ domain.ClientContext) (*ports.AuthResult, error) {
	return s.loginFn(email, password)
}

func (s *stubIdentity) ResolveCurrentIdentity(_ context.Context, token string) (*domain.Identity, error) {
	return s.resolveFn(token)
}

func (s *stubIdentity) RecentLogins(_ context.Context, accountID string, limit int) ([]domain.LoginAuditRecord, error) {
	return s.recentFn(accountID, limit)
}

// identityBody mirrors the wire shape of GET /auth/me responses.
type identityBody struct {
	Authenticated bool `json:"authenticated"`
	User          *struct {
		ID    string `json:"id"`
		Role  string `json:"role"`
		Email string `json:"email"`
	} `json:"user"`
	Profile map[string]any `json:"profile"`
}

func newTestEcho(svc ports.IdentityService) *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(zerolog.Nop())

	h := handler.NewAuthHandler(svc)
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.GET("/auth/me", h.Me)
	e.GET("/auth/logins", h.RecentLogins)
	return e
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sampleResult() *ports.AuthResult {
	return &ports.AuthResult{
		Token:     "signed.jwt.token",
		ExpiresAt: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
		Identity: domain.Identity{
			Account: domain.Account{
				ID:        "64f000000000000000000001",
				Role:      domain.RoleFaculty,
				FirstName: "Grace",
				LastName:  "Hopper",
				Email:     "a@x.edu",
			},
			Profile: domain.FacultyProfile{
				FacultyID:      "F1",
				Department:     "CS",
				Specialization: "AI",
				DateOfJoining:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				DateOfBirth:    time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestRegisterHandler_Created(t *testing.T) {
	var captured ports.RegisterInput
	svc := &stubIdentity{
		registerFn: func(in ports.RegisterInput) (*ports.AuthResult, error) {
			captured = in
			return sampleResult(), nil
		},
	}
	e := newTestEcho(svc)

	body := `{
		"role": "faculty",
		"first_name": "Grace",
		"last_name": "Hopper",
		"email": "a@x.edu",
		"password": "Secret123!",
		"faculty_id": "F1",
		"department": "CS",
		"specialization": "AI",
		"date_of_joining": "2020-01-01",
		"date_of_birth": "1980-01-01"
	}`
	rec := doJSON(e, http.MethodPost, "/auth/register", body, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Role != domain.RoleFaculty || captured.Faculty == nil {
		t.Fatalf("unexpected input: %+v", captured)
	}
	if captured.Faculty.DateOfJoining != time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("date not parsed: %v", captured.Faculty.DateOfJoining)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp["token"] != "signed.jwt.token" {
		t.Fatalf("unexpected token: %v", resp["token"])
	}
	if user, _ := resp["user"].(map[string]any); user["email"] != "a@x.edu" {
		t.Fatalf("unexpected user: %v", resp["user"])
	}
	if profile, _ := resp["profile"].(map[string]any); profile["faculty_id"] != "F1" {
		t.Fatalf("unexpected profile: %v", resp["profile"])
	}
}

func TestRegisterHandler_ValidatesPayload(t *testing.T) {
	svc := &stubIdentity{
		registerFn: func(ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatal("service must not be called on invalid payload")
			return nil, nil
		},
	}
	e := newTestEcho(svc)

	cases := []struct {
		name string
		body string
	}{
		{"bad role", `{"role":"admin","first_name":"A","last_name":"B","email":"a@x.edu","password":"Secret123!"}`},
		{"bad email", `{"role":"student","first_name":"A","last_name":"B","email":"nope","password":"Secret123!"}`},
		{"short password", `{"role":"student","first_name":"A","last_name":"B","email":"a@x.edu","password":"short"}`},
		{"not json", `{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/auth/register", tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegisterHandler_BadDateFormat(t *testing.T) {
	svc := &stubIdentity{
		registerFn: func(ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatal("service must not be called on invalid date")
			return nil, nil
		},
	}
	e := newTestEcho(svc)

	body := `{"role":"faculty","first_name":"A","last_name":"B","email":"a@x.edu","password":"Secret123!","date_of_joining":"01/02/2020"}`
	rec := doJSON(e, http.MethodPost, "/auth/register", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "date_of_joining") {
		t.Fatalf("expected field name in error, got %s", rec.Body.String())
	}
}

func TestRegisterHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrEmailInUse, http.StatusConflict},
		{domain.ErrDuplicateProfileKey, http.StatusConflict},
		{&domain.ValidationError{Missing: []string{"faculty_id"}}, http.StatusBadRequest},
		{domain.ErrStoreTimeout, http.StatusServiceUnavailable},
		{domain.ErrStoreFailure, http.StatusInternalServerError},
	}

	body := `{"role":"student","first_name":"A","last_name":"B","email":"a@x.edu","password":"Secret123!","registration_number":"R1","department":"CS","year":2}`
	for _, tc := range cases {
		svc := &stubIdentity{
			registerFn: func(ports.RegisterInput) (*ports.AuthResult, error) { return nil, tc.err },
		}
		rec := doJSON(newTestEcho(svc), http.MethodPost, "/auth/register", body, nil)
		if rec.Code != tc.code {
			t.Fatalf("for %v expected %d, got %d: %s", tc.err, tc.code, rec.Code, rec.Body.String())
		}
	}
}

func TestLoginHandler_OK(t *testing.T) {
	svc := &stubIdentity{
		loginFn: func(email, password string) (*ports.AuthResult, error) {
			if email != "a@x.edu" || password != "Secret123!" {
				t.Fatalf("unexpected credentials: %s / %s", email, password)
			}
			return sampleResult(), nil
		},
	}
	rec := doJSON(newTestEcho(svc), http.MethodPost, "/auth/login",
		`{"email":" a@x.edu ","password":"Secret123!"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
		{domain.ErrStoreTimeout, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		svc := &stubIdentity{
			loginFn: func(string, string) (*ports.AuthResult, error) { return nil, tc.err },
		}
		rec := doJSON(newTestEcho(svc), http.MethodPost, "/auth/login",
			`{"email":"a@x.edu","password":"nope"}`, nil)
		if rec.Code != tc.code {
			t.Fatalf("for %v expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}

func TestLoginHandler_InvalidCredentialsBodyIsGeneric(t *testing.T) {
	svc := &stubIdentity{
		loginFn: func(string, string) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	rec := doJSON(newTestEcho(svc), http.MethodPost, "/auth/login",
		`{"email":"a@x.edu","password":"nope"}`, nil)

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp["error"] != "invalid credentials" {
		t.Fatalf("expected generic message, got %q", resp["error"])
	}
}

func TestMeHandler_Authenticated(t *testing.T) {
	svc := &stubIdentity{
		resolveFn: func(token string) (*domain.Identity, error) {
			if token != "the-token" {
				t.Fatalf("unexpected token: %s", token)
			}
			r := sampleResult()
			return &r.Identity, nil
		},
	}
	rec := doJSON(newTestEcho(svc), http.MethodGet, "/auth/me", "",
		map[string]string{echo.HeaderAuthorization: "Bearer the-token"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp identityBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if !resp.Authenticated || resp.User == nil || resp.User.Email != "a@x.edu" {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}
	if resp.Profile["faculty_id"] != "F1" {
		t.Fatalf("unexpected profile: %v", resp.Profile)
	}
}

func TestMeHandler_AnonymousVariants(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		resolve func(string) (*domain.Identity, error)
	}{
		{
			name: "no header",
			resolve: func(token string) (*domain.Identity, error) {
				if token != "" {
					t.Fatalf("expected empty token, got %q", token)
				}
				return nil, nil
			},
		},
		{
			name:    "rejected token",
			headers: map[string]string{echo.HeaderAuthorization: "Bearer expired"},
			resolve: func(string) (*domain.Identity, error) { return nil, nil },
		},
		{
			name:    "vanished account",
			headers: map[string]string{echo.HeaderAuthorization: "Bearer stale"},
			resolve: func(string) (*domain.Identity, error) { return nil, domain.ErrAccountNotFound },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubIdentity{resolveFn: tc.resolve}
			rec := doJSON(newTestEcho(svc), http.MethodGet, "/auth/me", "", tc.headers)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var resp identityBody
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if resp.Authenticated || resp.User != nil {
				t.Fatalf("expected anonymous response, got %s", rec.Body.String())
			}
		})
	}
}

func TestMeHandler_IntegrityErrorIsNotAnonymous(t *testing.T) {
	svc := &stubIdentity{
		resolveFn: func(string) (*domain.Identity, error) {
			return nil, domain.ErrProfileIntegrity
		},
	}
	rec := doJSON(newTestEcho(svc), http.MethodGet, "/auth/me", "",
		map[string]string{echo.HeaderAuthorization: "Bearer t"})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRecentLoginsHandler(t *testing.T) {
	svc := &stubIdentity{
		recentFn: func(accountID string, limit int) ([]domain.LoginAuditRecord, error) {
			if accountID != "acct-1" {
				t.Fatalf("unexpected account id: %s", accountID)
			}
			return []domain.LoginAuditRecord{
				{AccountID: accountID, Success: true, Device: domain.DeviceDesktop},
			}, nil
		},
	}

	e := echo.New()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(zerolog.Nop())
	h := handler.NewAuthHandler(svc)
	// Simulate the auth middleware having run.
	e.GET("/auth/logins", h.RecentLogins, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("account_id", "acct-1")
			c.Set("role", "faculty")
			return next(c)
		}
	})

	rec := doJSON(e, http.MethodGet, "/auth/logins", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var records []domain.LoginAuditRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(records) != 1 || !records[0].Success {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestRecentLoginsHandler_Unauthenticated(t *testing.T) {
	svc := &stubIdentity{
		recentFn: func(string, int) ([]domain.LoginAuditRecord, error) {
			t.Fatal("service must not be called without claims")
			return nil, nil
		},
	}
	rec := doJSON(newTestEcho(svc), http.MethodGet, "/auth/logins", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
