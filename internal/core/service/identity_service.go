package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchmatch/identity-service/internal/api/metrics"
	"github.com/researchmatch/identity-service/internal/core/crypto"
	"github.com/researchmatch/identity-service/internal/core/domain"
	"github.com/researchmatch/identity-service/internal/core/ports"
)

const (
	defaultRecentLogins = 20
	maxRecentLogins     = 100
)

type identityService struct {
	store    ports.AccountStore
	audit    ports.AuditRecorder
	tokens   ports.TokenService
	hasher   crypto.PasswordHasher
	throttle ports.LoginThrottle // nil disables throttling
	tokenTTL time.Duration
	log      zerolog.Logger
}

// NewIdentityService returns the IdentityService implementation. throttle may
// be nil.
func NewIdentityService(
	store ports.AccountStore,
	audit ports.AuditRecorder,
	tokens ports.TokenService,
	hasher crypto.PasswordHasher,
	throttle ports.LoginThrottle,
	tokenTTL time.Duration,
	log zerolog.Logger,
) ports.IdentityService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &identityService{
		store:    store,
		audit:    audit,
		tokens:   tokens,
		hasher:   hasher,
		throttle: throttle,
		tokenTTL: tokenTTL,
		log:      log,
	}
}

// Register creates the account and its role profile atomically, records an
// implicit successful login, and issues a session token.
func (s *identityService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if missing := missingFields(in); len(missing) > 0 {
		return nil, &domain.ValidationError{Missing: missing}
	}

	// Pre-check for a friendlier failure; the unique index remains the
	// real guard under concurrent registration.
	_, err := s.store.FindAccountByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, domain.ErrEmailInUse
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, storeErr("check email", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		Role:         in.Role,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var profile domain.RoleProfile
	if in.Role == domain.RoleFaculty {
		profile = *in.Faculty
	} else {
		profile = *in.Student
	}

	created, err := s.store.CreateAccountWithProfile(ctx, account, profile)
	if err != nil {
		if errors.Is(err, domain.ErrEmailInUse) || errors.Is(err, domain.ErrDuplicateProfileKey) {
			return nil, err
		}
		return nil, storeErr("create account", err)
	}
	metrics.RegistrationsTotal.WithLabelValues(string(in.Role)).Inc()

	// Registration implies an initial authenticated session.
	s.recordAudit(ctx, created.ID, in.Client, true)

	return s.issueFor(created, profile)
}

// Login verifies credentials, writes one audit record per attempt against an
// existing account, and issues a session token on success. Unknown emails
// short-circuit before any audit write.
func (s *identityService) Login(ctx context.Context, email, password string, client domain.ClientContext) (*ports.AuthResult, error) {
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		ok, err := s.throttle.Allow(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Msg("login throttle check failed, allowing attempt")
		} else if !ok {
			metrics.LoginsTotal.WithLabelValues("throttled").Inc()
			return nil, domain.ErrTooManyAttempts
		}
	}

	account, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, storeErr("find account", err)
	}

	valid := s.hasher.Verify(password, account.PasswordHash)

	// One audit record per attempt against a known account, success or not.
	s.recordAudit(ctx, account.ID, client, valid)

	if !valid {
		if s.throttle != nil {
			if err := s.throttle.RecordFailure(ctx, email); err != nil {
				s.log.Warn().Err(err).Msg("login throttle record failed")
			}
		}
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("login throttle reset failed")
		}
	}

	profile, err := s.loadProfile(ctx, account)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return s.issueFor(account, profile)
}

// ResolveCurrentIdentity maps a bearer token to the current identity,
// reloading both the account and its profile. Token failures downgrade to
// anonymous.
func (s *identityService) ResolveCurrentIdentity(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues(tokenResult(err)).Inc()
		s.log.Debug().Err(err).Msg("token rejected, treating caller as anonymous")
		return nil, nil
	}
	metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()

	account, err := s.store.FindAccountByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Valid token for an account that no longer exists.
			return nil, domain.ErrAccountNotFound
		}
		return nil, storeErr("reload account", err)
	}

	profile, err := s.loadProfile(ctx, account)
	if err != nil {
		return nil, err
	}

	return &domain.Identity{Account: *account, Profile: profile}, nil
}

// RecentLogins returns the account's own audit trail, newest first.
func (s *identityService) RecentLogins(ctx context.Context, accountID string, limit int) ([]domain.LoginAuditRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLogins
	}
	if limit > maxRecentLogins {
		limit = maxRecentLogins
	}
	records, err := s.audit.ListRecentByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, storeErr("list logins", err)
	}
	return records, nil
}

// loadProfile fetches the profile matching the account's role. A missing
// profile here means the atomic-creation invariant was violated externally.
func (s *identityService) loadProfile(ctx context.Context, account *domain.Account) (domain.RoleProfile, error) {
	profile, err := s.store.FindProfile(ctx, account.ID, account.Role)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			s.log.Error().
				Str("account_id", account.ID).
				Str("role", string(account.Role)).
				Msg("account exists without role profile")
			return nil, fmt.Errorf("%w: account %s", domain.ErrProfileIntegrity, account.ID)
		}
		return nil, storeErr("load profile", err)
	}
	return profile, nil
}

// recordAudit appends one audit record, best-effort. Failures are logged and
// counted but never influence the caller's result.
func (s *identityService) recordAudit(ctx context.Context, accountID string, client domain.ClientContext, success bool) {
	rec := &domain.LoginAuditRecord{
		AccountID: accountID,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Success:   success,
		Device:    domain.DeviceTypeFromUserAgent(client.UserAgent),
		Browser:   domain.BrowserFromUserAgent(client.UserAgent),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		s.log.Error().Err(err).Str("account_id", accountID).Msg("failed to write login audit record")
	}
}

func (s *identityService) issueFor(account *domain.Account, profile domain.RoleProfile) (*ports.AuthResult, error) {
	token, claims, err := s.tokens.Issue(domain.SessionClaims{
		AccountID:   account.ID,
		Role:        account.Role,
		Email:       account.Email,
		DisplayName: account.DisplayName(),
	}, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		Identity:  domain.Identity{Account: *account, Profile: profile},
	}, nil
}

// missingFields lists the absent required fields for the chosen role.
func missingFields(in ports.RegisterInput) []string {
	var missing []string
	if in.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if in.LastName == "" {
		missing = append(missing, "last_name")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}

	switch in.Role {
	case domain.RoleFaculty:
		p := in.Faculty
		if p == nil {
			missing = append(missing, "faculty_id", "department", "specialization", "date_of_joining", "date_of_birth")
			break
		}
		if p.FacultyID == "" {
			missing = append(missing, "faculty_id")
		}
		if p.Department == "" {
			missing = append(missing, "department")
		}
		if p.Specialization == "" {
			missing = append(missing, "specialization")
		}
		if p.DateOfJoining.IsZero() {
			missing = append(missing, "date_of_joining")
		}
		if p.DateOfBirth.IsZero() {
			missing = append(missing, "date_of_birth")
		}
	case domain.RoleStudent:
		p := in.Student
		if p == nil {
			missing = append(missing, "registration_number", "department", "year")
			break
		}
		if p.RegistrationNumber == "" {
			missing = append(missing, "registration_number")
		}
		if p.Department == "" {
			missing = append(missing, "department")
		}
		if p.Year <= 0 {
			missing = append(missing, "year")
		}
	}
	return missing
}

// storeErr classifies persistence failures: deadline overruns surface as
// timeouts, everything else as a generic store failure.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreFailure, op, err)
}

func tokenResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
