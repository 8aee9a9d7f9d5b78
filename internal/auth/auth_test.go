package auth

import (
	"context"
	"testing"
	"time"

	"mindcash/internal/core"
	"mindcash/internal/storage"
)

type fakeStore struct {
	users    map[string]core.User // by id
	byEmail  map[string]string    // email -> id
	hashes   map[string]string    // id -> hash
	sessions map[string]fakeSession
}

type fakeSession struct {
	userID    string
	expiresAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]core.User{},
		byEmail:  map[string]string{},
		hashes:   map[string]string{},
		sessions: map[string]fakeSession{},
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u core.User, hash string) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return storage.ErrEmailTaken
	}
	f.users[u.ID] = u
	f.byEmail[u.Email] = u.ID
	f.hashes[u.ID] = hash
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (core.User, string, error) {
	id, ok := f.byEmail[email]
	if !ok {
		return core.User{}, "", storage.ErrNotFound
	}
	return f.users[id], f.hashes[id], nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateSession(_ context.Context, token, userID string, expiresAt time.Time) error {
	f.sessions[token] = fakeSession{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, token string) (string, time.Time, error) {
	s, ok := f.sessions[token]
	if !ok {
		return "", time.Time{}, storage.ErrNotFound
	}
	return s.userID, s.expiresAt, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func TestSignUpValidation(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		display  string
		wantMsg  string
	}{
		{"bad email", "not-an-email", "secret1", "Alice", MsgInvalidEmail},
		{"short password", "alice@example.com", "12345", "Alice", MsgPasswordTooShort},
		{"empty name", "alice@example.com", "secret1", "", MsgEmptyDisplayName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.SignUp(ctx, tt.email, tt.password, tt.display)
			if res.OK {
				t.Fatal("expected failure")
			}
			if res.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", res.Message, tt.wantMsg)
			}
		})
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	res := svc.SignUp(ctx, "Alice@Example.com", "secret1", "Alice")
	if !res.OK {
		t.Fatalf("SignUp failed: %s", res.Message)
	}
	if res.Token == "" {
		t.Error("SignUp should issue a session token")
	}
	if res.User.Plan != core.PlanTrial || res.User.TrialStartedAt == nil {
		t.Errorf("new account should be on trial with a start date: %+v", res.User)
	}
	if res.User.MonthlyGoal.Cents != core.DefaultMonthlyGoalCents {
		t.Errorf("monthly goal = %d, want default", res.User.MonthlyGoal.Cents)
	}
	if res.User.AlertLimit.Cents != core.DefaultAlertLimitCents {
		t.Errorf("alert limit = %d, want default", res.User.AlertLimit.Cents)
	}

	// Case-insensitive email on sign-in.
	in := svc.SignIn(ctx, "ALICE@example.com", "secret1")
	if !in.OK {
		t.Fatalf("SignIn failed: %s", in.Message)
	}
	if in.User.ID != res.User.ID {
		t.Error("SignIn should resolve the same account")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	if res := svc.SignUp(ctx, "alice@example.com", "secret1", "Alice"); !res.OK {
		t.Fatalf("first SignUp failed: %s", res.Message)
	}
	res := svc.SignUp(ctx, "alice@example.com", "other-pass", "Alice 2")
	if res.OK || res.Message != MsgEmailTaken {
		t.Errorf("duplicate SignUp = %+v, want MsgEmailTaken", res)
	}
}

func TestSignInWrongCredentials(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()
	svc.SignUp(ctx, "alice@example.com", "secret1", "Alice")

	for _, tt := range []struct {
		name, email, password string
	}{
		{"unknown email", "bob@example.com", "secret1"},
		{"wrong password", "alice@example.com", "nope123"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.SignIn(context.Background(), tt.email, tt.password)
			if res.OK || res.Message != MsgWrongCredentials {
				t.Errorf("got %+v, want MsgWrongCredentials", res)
			}
		})
	}
}

func TestValidateAndSignOut(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	res := svc.SignUp(ctx, "alice@example.com", "secret1", "Alice")
	if !res.OK {
		t.Fatalf("SignUp failed: %s", res.Message)
	}

	user, err := svc.Validate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("validated user = %+v", user)
	}

	out := svc.SignOut(ctx, res.Token)
	if !out.OK {
		t.Fatalf("SignOut failed: %s", out.Message)
	}
	if _, err := svc.Validate(ctx, res.Token); err == nil {
		t.Error("token should be invalid after sign-out")
	}
}

func TestValidateExpiredSession(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	res := svc.SignUp(ctx, "alice@example.com", "secret1", "Alice")
	if !res.OK {
		t.Fatalf("SignUp failed: %s", res.Message)
	}

	svc.now = func() time.Time { return time.Now().Add(SessionTTL + time.Hour) }
	if _, err := svc.Validate(ctx, res.Token); err == nil {
		t.Error("expired token should be rejected")
	}
	if _, ok := store.sessions[res.Token]; ok {
		t.Error("expired session row should be removed")
	}
}

func TestStateChangeCallback(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	var events []bool
	svc.OnStateChange(func(_ core.User, signedIn bool) {
		events = append(events, signedIn)
	})

	res := svc.SignUp(ctx, "alice@example.com", "secret1", "Alice")
	svc.SignIn(ctx, "alice@example.com", "secret1")
	svc.SignOut(ctx, res.Token)

	want := []bool{true, true, false}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}
