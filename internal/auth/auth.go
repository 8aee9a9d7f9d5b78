// Package auth implements account registration and session handling on top
// of the storage layer. Outcomes are reported as Result values with a
// user-facing message; raw storage errors never cross this boundary.
package auth

import (
	"context"
	"errors"
	"time"

	"mindcash/internal/core"
	"mindcash/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// SessionTTL is how long an issued token stays valid.
	SessionTTL = 7 * 24 * time.Hour

	minPasswordLength = 6
)

// Fixed user-facing messages. Handlers render these verbatim.
const (
	MsgInvalidEmail     = "invalid email address"
	MsgPasswordTooShort = "password must be at least 6 characters"
	MsgEmailTaken       = "an account with this email already exists"
	MsgWrongCredentials = "wrong email or password"
	MsgSessionExpired   = "session expired, please sign in again"
	MsgInternal         = "something went wrong, please try again"
	MsgEmptyDisplayName = "name is required"
)

// Result reports the outcome of an auth operation.
type Result struct {
	OK      bool
	Message string
	User    core.User
	Token   string
}

func failure(msg string) Result {
	return Result{Message: msg}
}

// Store is the persistence surface auth needs.
type Store interface {
	CreateUser(ctx context.Context, u core.User, passwordHash string) error
	GetUserByEmail(ctx context.Context, email string) (core.User, string, error)
	GetUser(ctx context.Context, id string) (core.User, error)
	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (string, time.Time, error)
	DeleteSession(ctx context.Context, token string) error
}

// StateChangeFunc is notified after a successful sign-in or sign-out.
// signedIn is false on sign-out; user is zero-valued in that case.
type StateChangeFunc func(user core.User, signedIn bool)

type Service struct {
	store   Store
	now     func() time.Time
	onState StateChangeFunc
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// OnStateChange registers the session state callback. At most one callback
// is kept; a nil callback disables notifications.
func (s *Service) OnStateChange(fn StateChangeFunc) {
	s.onState = fn
}

// SignUp creates an account and signs it in. New accounts start with the
// default monthly goal and alert limit.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) Result {
	email = core.NormalizeEmail(email)
	if err := core.ValidateEmail(email); err != nil {
		return failure(MsgInvalidEmail)
	}
	if len(password) < minPasswordLength {
		return failure(MsgPasswordTooShort)
	}
	if displayName == "" {
		return failure(MsgEmptyDisplayName)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return failure(MsgInternal)
	}

	user := core.User{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		Email:       email,
		MonthlyGoal: core.Money{Cents: core.DefaultMonthlyGoalCents},
		AlertLimit:  core.Money{Cents: core.DefaultAlertLimitCents},
		Plan:        core.PlanTrial,
	}
	started := s.now()
	user.TrialStartedAt = &started

	if err := s.store.CreateUser(ctx, user, string(hash)); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return failure(MsgEmailTaken)
		}
		return failure(MsgInternal)
	}
	return s.issueSession(ctx, user)
}

// SignIn verifies credentials and issues a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) Result {
	user, hash, err := s.store.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failure(MsgWrongCredentials)
		}
		return failure(MsgInternal)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return failure(MsgWrongCredentials)
	}
	return s.issueSession(ctx, user)
}

// SignOut invalidates the token. Unknown tokens are not an error.
func (s *Service) SignOut(ctx context.Context, token string) Result {
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return failure(MsgInternal)
	}
	if s.onState != nil {
		s.onState(core.User{}, false)
	}
	return Result{OK: true, Message: "signed out"}
}

// Validate resolves a token to its user, rejecting expired sessions.
func (s *Service) Validate(ctx context.Context, token string) (core.User, error) {
	userID, expiresAt, err := s.store.GetSession(ctx, token)
	if err != nil {
		return core.User{}, errors.New(MsgSessionExpired)
	}
	if s.now().After(expiresAt) {
		// Expired rows are cleaned up lazily.
		_ = s.store.DeleteSession(ctx, token)
		return core.User{}, errors.New(MsgSessionExpired)
	}
	return s.store.GetUser(ctx, userID)
}

func (s *Service) issueSession(ctx context.Context, user core.User) Result {
	token := uuid.New().String()
	if err := s.store.CreateSession(ctx, token, user.ID, s.now().Add(SessionTTL)); err != nil {
		return failure(MsgInternal)
	}
	if s.onState != nil {
		s.onState(user, true)
	}
	return Result{OK: true, Message: "welcome, " + user.DisplayName, User: user, Token: token}
}
