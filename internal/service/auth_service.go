package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/xl-support/helpdesk/internal/auth"
	"github.com/xl-support/helpdesk/internal/config"
	"github.com/xl-support/helpdesk/internal/domain"
	"github.com/xl-support/helpdesk/internal/events"
	"github.com/xl-support/helpdesk/internal/repository"
	apperrors "github.com/xl-support/helpdesk/pkg/util/errorutil"
)

const invalidCredentials = "invalid credentials"

// LoginInput carries sign-in credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignUpInput carries a self-registration request.
type SignUpInput struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name" validate:"required"`
}

// UserUpdateInput is an administrator's partial edit. Nil fields are left
// untouched. An empty specialty clears it.
type UserUpdateInput struct {
	Name       *string
	Email      *string
	Password   *string
	Role       *string
	Department *string
	Specialty  *string
	StaffID    *string
}

// AuthResult is returned by flows that open a session.
type AuthResult struct {
	User    *domain.User
	Session *domain.Session
}

// AuthService coordinates registration, sign-in and account administration.
type AuthService struct {
	users      repository.UserRepository
	logs       repository.UserLogRepository
	sessions   auth.SessionStore
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	UserLogRepo repository.UserLogRepository
	Sessions    auth.SessionStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = auth.NewMemorySessionStore()
	}
	return &AuthService{
		users:      deps.UserRepo,
		logs:       deps.UserLogRepo,
		sessions:   sessions,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Tokens exposes the token manager for the auth middleware.
func (s *AuthService) Tokens() *auth.TokenManager {
	return s.tokenMgr
}

// Sessions exposes the revocation store for the auth middleware.
func (s *AuthService) Sessions() auth.SessionStore {
	return s.sessions
}

// Login authenticates a user and opens a session. Unknown accounts and wrong
// passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = trimmed(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.CompareAgainstDummy(in.Password, s.bcryptCost)
			return nil, apperrors.NewUnauthorized(invalidCredentials)
		}
		return nil, apperrors.NewStoreError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	entry, err := s.appendLog(ctx, user, domain.ActivityLogin)
	if err != nil {
		return nil, err
	}
	session, err := s.tokenMgr.Issue(user, entry.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventUserLoggedIn, user, events.SessionPayload{
		SessionID: session.ID,
		LogID:     entry.ID,
		StaffID:   entry.StaffID,
	})
	return &AuthResult{User: withoutPassword(user), Session: session}, nil
}

// SignUp registers a new account and opens a session for it.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	in.Email = trimmed(in.Email)
	in.Name = trimmed(in.Name)
	fields, err := fieldViolations(in)
	if err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		if len(fields) == 0 {
			return nil, apperrors.NewValidationError("passwords don't match", map[string]any{
				"confirmPassword": "passwords don't match",
			})
		}
		fields["confirmPassword"] = "passwords don't match"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError(fields)
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, emailTaken(in.Email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewStoreError(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	staffID := domain.StaffIDFromTime(s.now())
	user := &domain.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         domain.RoleForEmail(in.Email),
		Department:   domain.DefaultDepartment,
		StaffID:      &staffID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, emailTaken(in.Email)
		}
		return nil, apperrors.NewStoreError(err)
	}

	entry, err := s.appendLog(ctx, user, domain.ActivityAccountCreated)
	if err != nil {
		return nil, err
	}
	session, err := s.tokenMgr.Issue(user, entry.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("account created",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("staff_id", staffID),
	)
	s.publish(ctx, events.EventAccountCreated, user, events.SessionPayload{
		SessionID: session.ID,
		LogID:     entry.ID,
		StaffID:   staffID,
	})
	return &AuthResult{User: withoutPassword(user), Session: session}, nil
}

// Logout revokes the session until its natural expiry and stamps the
// sign-out time on the log row opened at sign-in.
func (s *AuthService) Logout(ctx context.Context, user *domain.User, session *domain.Session) error {
	if session == nil {
		return apperrors.NewUnauthorized("no active session")
	}
	if err := s.sessions.Revoke(ctx, session.ID, session.ExpiresAt); err != nil {
		return apperrors.NewStoreError(err)
	}
	if session.LogID > 0 {
		if err := s.logs.MarkSignedOut(ctx, session.LogID, s.now().UTC()); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewStoreError(err)
		}
	}
	s.publish(ctx, events.EventUserLoggedOut, user, events.SessionPayload{
		SessionID: session.ID,
		LogID:     session.LogID,
	})
	return nil
}

// CurrentUser returns the stored record for the session's user.
func (s *AuthService) CurrentUser(ctx context.Context, session *domain.Session) (*domain.User, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("no active session")
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("session user no longer exists")
		}
		return nil, apperrors.NewStoreError(err)
	}
	return withoutPassword(user), nil
}

// UpdateUser applies an administrator's patch to the user with the given id.
func (s *AuthService) UpdateUser(ctx context.Context, actor *domain.User, id int64, in UserUpdateInput) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	patch, err := s.buildPatch(in)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.NewStoreError(err)
	}

	if patch.Email != nil && *patch.Email != user.Email {
		other, err := s.users.GetByEmail(ctx, *patch.Email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, emailTaken(*patch.Email)
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewStoreError(err)
		}
	}

	changed := applyPatch(user, patch)
	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, emailTaken(user.Email)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.NewStoreError(err)
	}

	s.publish(ctx, events.EventUserUpdated, actor, events.UserUpdatedPayload{
		UserID: user.ID,
		Fields: changed,
	})
	return withoutPassword(user), nil
}

// ListUsers returns every account, newest first.
func (s *AuthService) ListUsers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	out := make([]domain.User, 0, len(users))
	for i := range users {
		out = append(out, *withoutPassword(&users[i]))
	}
	return out, nil
}

// ListLogs returns every sign-in record, newest first.
func (s *AuthService) ListLogs(ctx context.Context, actor *domain.User) ([]domain.UserLog, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	logs, err := s.logs.List(ctx)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	if logs == nil {
		logs = []domain.UserLog{}
	}
	return logs, nil
}

func (s *AuthService) appendLog(ctx context.Context, user *domain.User, activity string) (*domain.UserLog, error) {
	entry := &domain.UserLog{
		UserID:     user.ID,
		StaffID:    user.EffectiveStaffID(),
		Department: user.EffectiveDepartment(),
		Activity:   activity,
		SignInTime: s.now().UTC(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return entry, nil
}

func (s *AuthService) buildPatch(in UserUpdateInput) (domain.UserPatch, error) {
	var patch domain.UserPatch
	fields := map[string]string{}

	if in.Name != nil {
		v := trimmed(*in.Name)
		if v == "" {
			fields["name"] = "must not be empty"
		}
		patch.Name = &v
	}
	if in.Email != nil {
		v := trimmed(*in.Email)
		if err := validate.Var(v, "required,email"); err != nil {
			fields["email"] = "must be a valid email address"
		}
		patch.Email = &v
	}
	if in.Password != nil {
		if *in.Password == "" {
			fields["password"] = "must not be empty"
		} else {
			hash, err := auth.HashPassword(*in.Password, s.bcryptCost)
			if err != nil {
				return patch, apperrors.NewInternalError(err)
			}
			patch.Password = &hash
		}
	}
	if in.Role != nil {
		role, err := domain.ParseRole(*in.Role)
		if err != nil {
			fields["role"] = "must be one of: SupportAgent, Admin"
		}
		patch.Role = &role
	}
	if in.Department != nil {
		v := trimmed(*in.Department)
		if v == "" {
			fields["department"] = "must not be empty"
		}
		patch.Department = &v
	}
	if in.Specialty != nil {
		v := trimmed(*in.Specialty)
		patch.Specialty = &v
	}
	if in.StaffID != nil {
		v := trimmed(*in.StaffID)
		if v == "" {
			fields["staffId"] = "must not be empty"
		}
		patch.StaffID = &v
	}

	if len(fields) > 0 {
		return patch, apperrors.NewFieldValidationError(fields)
	}
	if patch.Empty() {
		return patch, apperrors.NewValidationError("no fields to update", nil)
	}
	return patch, nil
}

// applyPatch mutates user and returns the names of the fields it touched.
// patch.Password already holds a hash.
func applyPatch(user *domain.User, patch domain.UserPatch) []string {
	var changed []string
	if patch.Name != nil {
		user.Name = *patch.Name
		changed = append(changed, "name")
	}
	if patch.Email != nil {
		user.Email = *patch.Email
		changed = append(changed, "email")
	}
	if patch.Password != nil {
		user.PasswordHash = *patch.Password
		changed = append(changed, "password")
	}
	if patch.Role != nil {
		user.Role = *patch.Role
		changed = append(changed, "role")
	}
	if patch.Department != nil {
		user.Department = *patch.Department
		changed = append(changed, "department")
	}
	if patch.Specialty != nil {
		if *patch.Specialty == "" {
			user.Specialty = nil
		} else {
			v := *patch.Specialty
			user.Specialty = &v
		}
		changed = append(changed, "specialty")
	}
	if patch.StaffID != nil {
		v := *patch.StaffID
		user.StaffID = &v
		changed = append(changed, "staffId")
	}
	sort.Strings(changed)
	return changed
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, actor *domain.User, payload any) {
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      eventType,
		Actor:     events.ActorFromUser(actor),
		Timestamp: s.now().UTC(),
		Payload:   payload,
	})
}

func emailTaken(email string) error {
	return apperrors.NewConflict("email already registered", map[string]any{"email": email})
}

func withoutPassword(u *domain.User) *domain.User {
	out := *u
	out.PasswordHash = ""
	return &out
}
