package backend

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"mindcash/internal/core"
	"mindcash/internal/kv"
	"mindcash/internal/storage"
)

const stateKey = "mindcash_state"

// MemoryStore keeps everything in process, snapshotting the full state as a
// JSON blob into the key-value store after each mutation. With a file-backed
// kv store the data survives restarts.
type MemoryStore struct {
	mu sync.Mutex
	kv kv.Store
	st memoryState
}

type memoryState struct {
	Users        map[string]memoryUser              `json:"users"`
	Sessions     map[string]memorySession           `json:"sessions"`
	Transactions map[string][]core.Transaction      `json:"transactions"`
	Alerts       map[string][]core.Alert            `json:"alerts"`
	Recurring    map[string][]core.RecurringExpense `json:"recurring"`
	Goals        map[string][]core.Goal             `json:"goals"`
}

type memoryUser struct {
	User         core.User `json:"user"`
	PasswordHash string    `json:"passwordHash"`
}

type memorySession struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds the store over the given kv store, restoring any
// previous snapshot found there.
func NewMemoryStore(store kv.Store) *MemoryStore {
	m := &MemoryStore{kv: store, st: newMemoryState()}
	if raw, ok := store.Get(stateKey); ok {
		var st memoryState
		if err := json.Unmarshal([]byte(raw), &st); err == nil {
			fillMemoryState(&st)
			m.st = st
		}
	}
	return m
}

func newMemoryState() memoryState {
	st := memoryState{}
	fillMemoryState(&st)
	return st
}

func fillMemoryState(st *memoryState) {
	if st.Users == nil {
		st.Users = map[string]memoryUser{}
	}
	if st.Sessions == nil {
		st.Sessions = map[string]memorySession{}
	}
	if st.Transactions == nil {
		st.Transactions = map[string][]core.Transaction{}
	}
	if st.Alerts == nil {
		st.Alerts = map[string][]core.Alert{}
	}
	if st.Recurring == nil {
		st.Recurring = map[string][]core.RecurringExpense{}
	}
	if st.Goals == nil {
		st.Goals = map[string][]core.Goal{}
	}
}

// flushLocked writes the snapshot; the caller holds the mutex. Snapshot
// failures are swallowed so a broken disk does not fail user actions.
func (m *MemoryStore) flushLocked() {
	data, err := json.Marshal(m.st)
	if err != nil {
		return
	}
	_ = m.kv.Set(stateKey, string(data))
}

func (m *MemoryStore) KV() kv.Store {
	return m.kv
}

func (m *MemoryStore) CreateUser(_ context.Context, u core.User, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.st.Users {
		if existing.User.Email == u.Email {
			return storage.ErrEmailTaken
		}
	}
	m.st.Users[u.ID] = memoryUser{User: u, PasswordHash: passwordHash}
	m.flushLocked()
	return nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (core.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.st.Users {
		if u.User.Email == core.NormalizeEmail(email) {
			return u.User, u.PasswordHash, nil
		}
	}
	return core.User{}, "", storage.ErrNotFound
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.st.Users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u.User, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.st.Users[u.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.User = u
	m.st.Users[u.ID] = existing
	m.flushLocked()
	return nil
}

func (m *MemoryStore) CreateSession(_ context.Context, token, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.Sessions[token] = memorySession{UserID: userID, ExpiresAt: expiresAt}
	m.flushLocked()
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, token string) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.st.Sessions[token]
	if !ok {
		return "", time.Time{}, storage.ErrNotFound
	}
	return s.UserID, s.ExpiresAt, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.st.Sessions, token)
	m.flushLocked()
	return nil
}

func (m *MemoryStore) CreateTransaction(_ context.Context, userID string, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Newest first, matching the SQLite ordering.
	m.st.Transactions[userID] = append([]core.Transaction{t}, m.st.Transactions[userID]...)
	m.flushLocked()
	return nil
}

func (m *MemoryStore) DeleteTransaction(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.st.Transactions[userID]
	for i, t := range list {
		if t.ID == id {
			m.st.Transactions[userID] = append(list[:i:i], list[i+1:]...)
			m.flushLocked()
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *MemoryStore) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.st.Transactions[userID]...), nil
}

func (m *MemoryStore) SaveAlert(_ context.Context, userID string, a core.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.Alerts[userID] = append([]core.Alert{a}, m.st.Alerts[userID]...)
	m.flushLocked()
	return nil
}

func (m *MemoryStore) ListAlerts(_ context.Context, userID string) ([]core.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Alert(nil), m.st.Alerts[userID]...), nil
}

func (m *MemoryStore) MarkAlertRead(_ context.Context, userID, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.st.Alerts[userID]
	for i := range list {
		if list[i].ID == alertID {
			list[i].Read = true
			m.flushLocked()
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *MemoryStore) UpsertRecurring(_ context.Context, userID string, re core.RecurringExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.st.Recurring[userID]
	for i := range list {
		if list[i].ID == re.ID {
			list[i] = re
			m.flushLocked()
			return nil
		}
	}
	m.st.Recurring[userID] = append(list, re)
	m.flushLocked()
	return nil
}

func (m *MemoryStore) ListRecurring(_ context.Context, userID string) ([]core.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.RecurringExpense(nil), m.st.Recurring[userID]...), nil
}

func (m *MemoryStore) UpsertGoal(_ context.Context, userID string, g core.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.st.Goals[userID]
	for i := range list {
		if list[i].ID == g.ID {
			list[i] = g
			m.flushLocked()
			return nil
		}
	}
	m.st.Goals[userID] = append(list, g)
	m.flushLocked()
	return nil
}

func (m *MemoryStore) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Goal(nil), m.st.Goals[userID]...), nil
}
