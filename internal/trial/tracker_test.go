package trial

import (
	"errors"
	"testing"
	"time"

	"mindcash/internal/kv"
)

// fakeClock makes the tracker's view of "now" adjustable per test.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(t *testing.T) (*Tracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	return NewTrackerWithClock(kv.NewMemory(), clock.Now), clock
}

func TestCanStartTrial(t *testing.T) {
	tr, _ := newTestTracker(t)

	if !tr.CanStartTrial("alice@example.com") {
		t.Fatal("fresh email cannot start a trial")
	}

	if _, err := tr.Start("alice@example.com"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if tr.CanStartTrial("alice@example.com") {
		t.Error("email with a record can still start a trial")
	}
	if tr.CanStartTrial("ALICE@example.com") {
		t.Error("lookup is not case-insensitive on the email")
	}
	if !tr.CanStartTrial("bob@example.com") {
		t.Error("unrelated email blocked")
	}
}

func TestStartTwiceRejected(t *testing.T) {
	tr, clock := newTestTracker(t)

	if _, err := tr.Start("alice@example.com"); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	// Even long after expiry the record blocks a second trial.
	clock.Advance(400 * 24 * time.Hour)
	_, err := tr.Start("alice@example.com")
	if !errors.Is(err, ErrTrialAlreadyUsed) {
		t.Errorf("second Start = %v, want ErrTrialAlreadyUsed", err)
	}
}

func TestExpiryAfterSevenDays(t *testing.T) {
	tr, clock := newTestTracker(t)
	if _, err := tr.Start("alice@example.com"); err != nil {
		t.Fatal(err)
	}

	if tr.IsExpired("alice@example.com") {
		t.Error("expired immediately after start")
	}
	if got := tr.RemainingDays("alice@example.com"); got != 7 {
		t.Errorf("RemainingDays at start = %d, want 7", got)
	}

	clock.Advance(6*24*time.Hour + 23*time.Hour)
	if tr.IsExpired("alice@example.com") {
		t.Error("expired before day seven completed")
	}
	if got := tr.RemainingDays("alice@example.com"); got != 1 {
		t.Errorf("RemainingDays on day six = %d, want 1", got)
	}

	clock.Advance(2 * time.Hour) // crosses the 7-day mark
	if !tr.IsExpired("alice@example.com") {
		t.Error("not expired after seven full days")
	}
	if got := tr.RemainingDays("alice@example.com"); got != 0 {
		t.Errorf("RemainingDays after expiry = %d, want 0", got)
	}
}

func TestElapsedDaysFloorDivision(t *testing.T) {
	tr, clock := newTestTracker(t)
	clock.now = time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	if _, err := tr.Start("alice@example.com"); err != nil {
		t.Fatal(err)
	}

	// 00:01 the next day: under 24h elapsed, so still zero whole days.
	clock.now = time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC)
	if got := tr.RemainingDays("alice@example.com"); got != 7 {
		t.Errorf("RemainingDays two minutes later = %d, want 7", got)
	}

	// 23:59 + 24h crosses into one elapsed day.
	clock.now = time.Date(2024, 3, 2, 23, 59, 0, 0, time.UTC)
	if got := tr.RemainingDays("alice@example.com"); got != 6 {
		t.Errorf("RemainingDays after a full day = %d, want 6", got)
	}
}

func TestRemainingDaysMonotonic(t *testing.T) {
	tr, clock := newTestTracker(t)
	if _, err := tr.Start("alice@example.com"); err != nil {
		t.Fatal(err)
	}

	prev := tr.RemainingDays("alice@example.com")
	for i := 0; i < 20; i++ {
		clock.Advance(17 * time.Hour)
		got := tr.RemainingDays("alice@example.com")
		if got > prev {
			t.Fatalf("RemainingDays increased from %d to %d", prev, got)
		}
		if got < 0 {
			t.Fatalf("RemainingDays went negative: %d", got)
		}
		prev = got
	}
}

func TestIsExpiredWithoutRecord(t *testing.T) {
	tr, _ := newTestTracker(t)
	if tr.IsExpired("ghost@example.com") {
		t.Error("email with no record reported expired")
	}
}

func TestEnsureStarted(t *testing.T) {
	tr, clock := newTestTracker(t)

	first, err := tr.EnsureStarted("alice@example.com")
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if !first.HasUsedTrial {
		t.Error("EnsureStarted did not mark the trial used")
	}

	clock.Advance(48 * time.Hour)
	again, err := tr.EnsureStarted("alice@example.com")
	if err != nil {
		t.Fatalf("EnsureStarted second call: %v", err)
	}
	if !again.StartDate.Equal(first.StartDate) {
		t.Error("EnsureStarted restarted an existing trial")
	}
}

func TestRecordsSurviveReload(t *testing.T) {
	store := kv.NewMemory()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}

	tr := NewTrackerWithClock(store, clock.Now)
	if _, err := tr.Start("alice@example.com"); err != nil {
		t.Fatal(err)
	}

	// A new tracker over the same store sees the same records.
	reloaded := NewTrackerWithClock(store, clock.Now)
	if reloaded.CanStartTrial("alice@example.com") {
		t.Error("record lost across tracker instances")
	}
}

func TestIsExpiredRefreshesCachedFlag(t *testing.T) {
	tr, clock := newTestTracker(t)
	if _, err := tr.Start("alice@example.com"); err != nil {
		t.Fatal(err)
	}

	clock.Advance(8 * 24 * time.Hour)
	if !tr.IsExpired("alice@example.com") {
		t.Fatal("trial not expired after eight days")
	}

	rec, ok := tr.Lookup("alice@example.com")
	if !ok {
		t.Fatal("record missing")
	}
	if !rec.Expired {
		t.Error("cached Expired flag not refreshed by the check")
	}
}
