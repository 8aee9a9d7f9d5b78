// Package trial implements the per-email trial entitlement policy: one
// 7-day trial per email address, ever. Records live as a single JSON blob in
// the key-value store so they survive sign-out and account churn.
package trial

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mindcash/internal/core"
	"mindcash/internal/kv"
)

const (
	// TrialDays is the length of the evaluation period.
	TrialDays = 7

	// TrialTransactionLimit caps how many transactions a trial account may
	// create before it must upgrade.
	TrialTransactionLimit = 4

	storageKey = "mindcash_trials"

	dayMillis = 24 * 60 * 60 * 1000
)

// ErrTrialAlreadyUsed is returned when an email that already consumed its
// trial asks for another one.
var ErrTrialAlreadyUsed = errors.New("trial already used for this email")

type (
	// Record is the durable trial-usage entry for one email. Once
	// HasUsedTrial is set it is never reset; Expired is an advisory cache
	// refreshed on every entitlement check.
	Record struct {
		StartDate    time.Time `json:"startDate"`
		HasUsedTrial bool      `json:"hasUsedTrial"`
		Expired      bool      `json:"isExpired"`
	}

	// Tracker evaluates trial entitlement lazily; there is no background
	// timer, expiry is computed whenever somebody asks.
	Tracker struct {
		mu    sync.Mutex
		store kv.Store
		now   func() time.Time
	}
)

func NewTracker(store kv.Store) *Tracker {
	return NewTrackerWithClock(store, time.Now)
}

// NewTrackerWithClock injects the clock, which tests use to simulate the
// passage of days.
func NewTrackerWithClock(store kv.Store, now func() time.Time) *Tracker {
	return &Tracker{store: store, now: now}
}

// CanStartTrial reports whether the email has never consumed a trial.
func (t *Tracker) CanStartTrial(email string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.load()[core.NormalizeEmail(email)]
	return !exists
}

// Start begins the trial for an email. It fails with ErrTrialAlreadyUsed if
// any prior record exists, regardless of that trial's state.
func (t *Tracker) Start(email string) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := core.NormalizeEmail(email)
	records := t.load()
	if _, exists := records[key]; exists {
		return Record{}, ErrTrialAlreadyUsed
	}

	rec := Record{StartDate: t.now(), HasUsedTrial: true}
	records[key] = rec
	if err := t.save(records); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// EnsureStarted returns the email's record, starting a trial first if none
// exists. Sign-in uses this so that a first login is also a trial start.
func (t *Tracker) EnsureStarted(email string) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := core.NormalizeEmail(email)
	records := t.load()
	if rec, exists := records[key]; exists {
		return rec, nil
	}

	rec := Record{StartDate: t.now(), HasUsedTrial: true}
	records[key] = rec
	if err := t.save(records); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Lookup returns the record for an email, if one exists.
func (t *Tracker) Lookup(email string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.load()[core.NormalizeEmail(email)]
	return rec, ok
}

// IsExpired reports whether the email's trial has run out. It is false when
// no record exists. The record's cached Expired flag is refreshed as a side
// effect; records themselves are never deleted.
func (t *Tracker) IsExpired(email string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := core.NormalizeEmail(email)
	records := t.load()
	rec, ok := records[key]
	if !ok || !rec.HasUsedTrial {
		return false
	}

	expired := t.elapsedDays(rec) >= TrialDays
	if expired != rec.Expired {
		rec.Expired = expired
		records[key] = rec
		// Best effort: a failed cache write must not flip the verdict.
		_ = t.save(records)
	}
	return expired
}

// RemainingDays returns how many whole days of trial are left, never
// negative. An email with no record still has the full period ahead.
func (t *Tracker) RemainingDays(email string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.load()[core.NormalizeEmail(email)]
	if !ok || !rec.HasUsedTrial {
		return TrialDays
	}
	remaining := TrialDays - t.elapsedDays(rec)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// elapsedDays floors the millisecond difference to whole days, so a partial
// day never rounds up but crossing midnight plus 24h boundaries charges a
// full day even minutes apart.
func (t *Tracker) elapsedDays(rec Record) int {
	diff := t.now().Sub(rec.StartDate).Milliseconds()
	if diff < 0 {
		return 0
	}
	return int(diff / dayMillis)
}

func (t *Tracker) load() map[string]Record {
	records := make(map[string]Record)
	raw, ok := t.store.Get(storageKey)
	if !ok {
		return records
	}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return make(map[string]Record)
	}
	return records
}

func (t *Tracker) save(records map[string]Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal trial records: %w", err)
	}
	if err := t.store.Set(storageKey, string(raw)); err != nil {
		return fmt.Errorf("persist trial records: %w", err)
	}
	return nil
}
