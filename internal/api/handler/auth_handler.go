package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/researchmatch/identity-service/internal/core/domain"
	"github.com/researchmatch/identity-service/internal/core/ports"
)

const dateLayout = "2006-01-02"

type AuthHandler struct {
	identity ports.IdentityService
}

func NewAuthHandler(identity ports.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

type registerRequest struct {
	Role      string `json:"role" validate:"required,oneof=faculty student"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`

	// Faculty fields.
	FacultyID      string `json:"faculty_id,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	DateOfJoining  string `json:"date_of_joining,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`

	// Student fields.
	RegistrationNumber string  `json:"registration_number,omitempty"`
	Year               int     `json:"year,omitempty"`
	CGPA               float64 `json:"cgpa,omitempty" validate:"gte=0,lte=10"`

	// Shared by both profiles.
	Department string `json:"department,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type accountResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type authResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      accountResponse `json:"user"`
	Profile   any             `json:"profile"`
}

type identityResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          *accountResponse `json:"user,omitempty"`
	Profile       any              `json:"profile,omitempty"`
}

// Register creates a new account with its role profile and returns an
// initial session token.
//
// @Summary      Register a faculty or student account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account and profile details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in, err := registerInputFrom(req, clientContext(c))
	if err != nil {
		return err
	}

	result, err := h.identity.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponseFrom(result))
}

// Login verifies credentials and returns a session token.
//
// @Summary      Login with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.identity.Login(c.Request().Context(), strings.TrimSpace(req.Email), req.Password, clientContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponseFrom(result))
}

// Me resolves the bearer token to the current identity. An absent, expired
// or otherwise rejected token yields an anonymous response, never an error.
//
// @Summary      Resolve the current identity
// @Tags         auth
// @Produce      json
// @Success      200  {object}  identityResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	identity, err := h.identity.ResolveCurrentIdentity(c.Request().Context(), bearerToken(c))
	if err != nil {
		// A token pointing at a vanished account renders as anonymous at
		// the transport boundary; integrity and store errors do not.
		if errors.Is(err, domain.ErrAccountNotFound) {
			return c.JSON(http.StatusOK, identityResponse{Authenticated: false})
		}
		return err
	}
	if identity == nil {
		return c.JSON(http.StatusOK, identityResponse{Authenticated: false})
	}

	acct := accountResponseFrom(&identity.Account)
	return c.JSON(http.StatusOK, identityResponse{
		Authenticated: true,
		User:          &acct,
		Profile:       profileResponseFrom(identity.Profile),
	})
}

// RecentLogins returns the caller's own login activity, newest first.
// Requires the auth middleware.
//
// @Summary      List recent login activity for the current account
// @Tags         auth
// @Produce      json
// @Success      200  {array}   domain.LoginAuditRecord
// @Failure      401  {object}  map[string]string
// @Router       /auth/logins [get]
func (h *AuthHandler) RecentLogins(c echo.Context) error {
	accountID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	records, err := h.identity.RecentLogins(c.Request().Context(), accountID, 0)
	if err != nil {
		return err
	}
	if records == nil {
		records = []domain.LoginAuditRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func registerInputFrom(req registerRequest, client domain.ClientContext) (ports.RegisterInput, error) {
	in := ports.RegisterInput{
		Role:      domain.Role(req.Role),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		Client:    client,
	}

	switch in.Role {
	case domain.RoleFaculty:
		doj, err := parseDate(req.DateOfJoining, "date_of_joining")
		if err != nil {
			return ports.RegisterInput{}, err
		}
		dob, err := parseDate(req.DateOfBirth, "date_of_birth")
		if err != nil {
			return ports.RegisterInput{}, err
		}
		in.Faculty = &domain.FacultyProfile{
			FacultyID:      strings.TrimSpace(req.FacultyID),
			Department:     strings.TrimSpace(req.Department),
			Specialization: strings.TrimSpace(req.Specialization),
			DateOfJoining:  doj,
			DateOfBirth:    dob,
		}
	case domain.RoleStudent:
		in.Student = &domain.StudentProfile{
			RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
			Department:         strings.TrimSpace(req.Department),
			Year:               req.Year,
			CGPA:               req.CGPA,
		}
	}
	return in, nil
}

// parseDate accepts YYYY-MM-DD; empty stays zero so the orchestrator can
// report it as a missing field.
func parseDate(value, field string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, field+" must be formatted YYYY-MM-DD")
	}
	return t, nil
}

func clientContext(c echo.Context) domain.ClientContext {
	return domain.ClientContext{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// bearerToken extracts the token from the Authorization header; empty when
// absent or not a bearer scheme.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func accountResponseFrom(a *domain.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Role:      string(a.Role),
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
	}
}

func authResponseFrom(r *ports.AuthResult) authResponse {
	return authResponse{
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt,
		User:      accountResponseFrom(&r.Identity.Account),
		Profile:   profileResponseFrom(r.Identity.Profile),
	}
}

type facultyProfileResponse struct {
	FacultyID      string `json:"faculty_id"`
	Department     string `json:"department"`
	Specialization string `json:"specialization"`
	DateOfJoining  string `json:"date_of_joining"`
	DateOfBirth    string `json:"date_of_birth"`
}

type studentProfileResponse struct {
	RegistrationNumber string  `json:"registration_number"`
	Department         string  `json:"department"`
	Year               int     `json:"year"`
	CGPA               float64 `json:"cgpa"`
}

func profileResponseFrom(p domain.RoleProfile) any {
	switch v := p.(type) {
	case domain.FacultyProfile:
		return facultyProfileResponse{
			FacultyID:      v.FacultyID,
			Department:     v.Department,
			Specialization: v.Specialization,
			DateOfJoining:  v.DateOfJoining.Format(dateLayout),
			DateOfBirth:    v.DateOfBirth.Format(dateLayout),
		}
	case domain.StudentProfile:
		return studentProfileResponse{
			RegistrationNumber: v.RegistrationNumber,
			Department:         v.Department,
			Year:               v.Year,
			CGPA:               v.CGPA,
		}
	default:
		return nil
	}
}
