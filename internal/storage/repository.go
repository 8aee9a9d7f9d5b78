// Package storage is the SQLite persistence layer: users, sessions,
// transactions with sync state for the worker, alerts, recurring expenses,
// goals, and a kv table backing the key-value port.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mindcash/internal/core"
	"mindcash/internal/kv"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// Sync states for the background sheet sync.
const (
	SyncPending = "pending"
	SyncDone    = "done"
	SyncError   = "error"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when registering an email that already has an
// account.
var ErrEmailTaken = errors.New("email already registered")

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// KV returns a kv.Store view backed by the kv table, so the trial-usage
// table and backup snapshots share the database file.
func (r *Repository) KV() kv.Store {
	return &sqlKV{db: r.db}
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, u core.User, passwordHash string) error {
	var trialStarted any
	if u.TrialStartedAt != nil {
		trialStarted = u.TrialStartedAt.Format(timeLayout)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash,
			monthly_goal_cents, alert_limit_cents, plan,
			trial_started_at, trial_transaction_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, core.NormalizeEmail(u.Email), u.DisplayName, passwordHash,
		u.MonthlyGoal.Cents, u.AlertLimit.Cents, string(u.Plan),
		trialStarted, u.TrialTransactionCount, time.Now().Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash,
			monthly_goal_cents, alert_limit_cents, plan,
			trial_started_at, trial_transaction_count
		FROM users WHERE email = ?`, core.NormalizeEmail(email))
	return scanUser(row)
}

func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash,
			monthly_goal_cents, alert_limit_cents, plan,
			trial_started_at, trial_transaction_count
		FROM users WHERE id = ?`, id)
	u, _, err := scanUser(row)
	return u, err
}

func (r *Repository) UpdateUser(ctx context.Context, u core.User) error {
	var trialStarted any
	if u.TrialStartedAt != nil {
		trialStarted = u.TrialStartedAt.Format(timeLayout)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET display_name = ?, monthly_goal_cents = ?,
			alert_limit_cents = ?, plan = ?, trial_started_at = ?,
			trial_transaction_count = ?
		WHERE id = ?`,
		u.DisplayName, u.MonthlyGoal.Cents, u.AlertLimit.Cents,
		string(u.Plan), trialStarted, u.TrialTransactionCount, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (core.User, string, error) {
	var (
		u            core.User
		hash         string
		plan         string
		trialStarted sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &hash,
		&u.MonthlyGoal.Cents, &u.AlertLimit.Cents, &plan,
		&trialStarted, &u.TrialTransactionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", ErrNotFound
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("scan user: %w", err)
	}
	u.Plan = core.Plan(plan)
	if trialStarted.Valid {
		if ts, err := time.Parse(timeLayout, trialStarted.String); err == nil {
			u.TrialStartedAt = &ts
		}
	}
	return u, hash, nil
}

// --- sessions ---

func (r *Repository) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, token string) (string, time.Time, error) {
	var (
		userID  string
		expires string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, ErrNotFound
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("get session: %w", err)
	}
	expiresAt, err := time.Parse(timeLayout, expires)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse session expiry: %w", err)
	}
	return userID, expiresAt, nil
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// --- transactions ---

func (r *Repository) CreateTransaction(ctx context.Context, userID string, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount_cents, category,
			description, occurred_on, created_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, userID, string(t.Kind), t.Amount.Cents, t.Category,
		t.Description, t.OccurredOn.Format(dateLayout),
		t.CreatedAt.Format(timeLayout), SyncPending,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes the row entirely; there is no soft delete.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, amount_cents, category, description, occurred_on, created_at
		FROM transactions WHERE user_id = ?
		ORDER BY occurred_on DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTransaction loads a single transaction and its owner; the sync worker
// uses it to resolve AMQP messages back to full rows.
func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, amount_cents, category, description, occurred_on, created_at, user_id
		FROM transactions WHERE id = ?`, id)

	var (
		t        core.Transaction
		kind     string
		occurred string
		created  string
		userID   string
	)
	err := row.Scan(&t.ID, &kind, &t.Amount.Cents, &t.Category,
		&t.Description, &occurred, &created, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, "", ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, "", fmt.Errorf("get transaction: %w", err)
	}
	t.Kind = core.Kind(kind)
	fillTransactionTimes(&t, occurred, created)
	return t, userID, nil
}

// ListPendingSync returns ids of transactions not yet synced, oldest first.
func (r *Repository) ListPendingSync(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM transactions WHERE sync_status = ?
		ORDER BY created_at ASC LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) MarkSynced(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncDone)
}

func (r *Repository) MarkSyncError(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *Repository) setSyncStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, synced_at = ? WHERE id = ?`,
		status, time.Now().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(rows rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		kind     string
		occurred string
		created  string
	)
	if err := rows.Scan(&t.ID, &kind, &t.Amount.Cents, &t.Category,
		&t.Description, &occurred, &created); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Kind = core.Kind(kind)
	fillTransactionTimes(&t, occurred, created)
	return t, nil
}

func fillTransactionTimes(t *core.Transaction, occurred, created string) {
	if d, err := time.ParseInLocation(dateLayout, occurred, time.Local); err == nil {
		t.OccurredOn = core.Date{Time: d}
	}
	if ts, err := time.Parse(timeLayout, created); err == nil {
		t.CreatedAt = ts
	}
}

// --- alerts ---

func (r *Repository) SaveAlert(ctx context.Context, userID string, a core.Alert) error {
	var amount any
	if a.Amount != nil {
		amount = a.Amount.Cents
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (id, user_id, type, message, amount_cents,
			category, priority, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, userID, string(a.Type), a.Message, amount, a.Category,
		string(a.Priority), boolToInt(a.Read), a.Timestamp.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save alert: %w", err)
	}
	return nil
}

func (r *Repository) ListAlerts(ctx context.Context, userID string) ([]core.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, message, amount_cents, category, priority, is_read, created_at
		FROM alerts WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []core.Alert
	for rows.Next() {
		var (
			a       core.Alert
			typ     string
			amount  sql.NullInt64
			prio    string
			read    int
			created string
		)
		if err := rows.Scan(&a.ID, &typ, &a.Message, &amount, &a.Category,
			&prio, &read, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Type = core.AlertType(typ)
		a.Priority = core.Priority(prio)
		a.Read = read != 0
		if amount.Valid {
			a.Amount = &core.Money{Cents: amount.Int64}
		}
		if ts, err := time.Parse(timeLayout, created); err == nil {
			a.Timestamp = ts
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) MarkAlertRead(ctx context.Context, userID, alertID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = 1 WHERE id = ? AND user_id = ?`, alertID, userID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- recurring expenses ---

func (r *Repository) UpsertRecurring(ctx context.Context, userID string, re core.RecurringExpense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_expenses (id, user_id, description, amount_cents,
			category, frequency, next_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET description = excluded.description,
			amount_cents = excluded.amount_cents, category = excluded.category,
			frequency = excluded.frequency, next_date = excluded.next_date,
			active = excluded.active`,
		re.ID, userID, re.Description, re.Amount.Cents, re.Category,
		string(re.Frequency), re.NextDate.Format(dateLayout), boolToInt(re.Active),
	)
	if err != nil {
		return fmt.Errorf("upsert recurring expense: %w", err)
	}
	return nil
}

func (r *Repository) ListRecurring(ctx context.Context, userID string) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_cents, category, frequency, next_date, active
		FROM recurring_expenses WHERE user_id = ? ORDER BY next_date ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringExpense
	for rows.Next() {
		var (
			re     core.RecurringExpense
			freq   string
			next   string
			active int
		)
		if err := rows.Scan(&re.ID, &re.Description, &re.Amount.Cents,
			&re.Category, &freq, &next, &active); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		re.Frequency = core.Frequency(freq)
		re.Active = active != 0
		if d, err := time.ParseInLocation(dateLayout, next, time.Local); err == nil {
			re.NextDate = core.Date{Time: d}
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

// --- goals ---

func (r *Repository) UpsertGoal(ctx context.Context, userID string, g core.Goal) error {
	var deadline any
	if !g.Deadline.IsZero() {
		deadline = g.Deadline.Format(dateLayout)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, name, target_cents, current_cents,
			deadline, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			target_cents = excluded.target_cents,
			current_cents = excluded.current_cents,
			deadline = excluded.deadline, category = excluded.category`,
		g.ID, userID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents,
		deadline, g.Category, g.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}
	return nil
}

func (r *Repository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, target_cents, current_cents, deadline, category, created_at
		FROM goals WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g        core.Goal
			deadline sql.NullString
			created  string
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetAmount.Cents,
			&g.CurrentAmount.Cents, &deadline, &g.Category, &created); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if deadline.Valid {
			if d, err := time.ParseInLocation(dateLayout, deadline.String, time.Local); err == nil {
				g.Deadline = core.Date{Time: d}
			}
		}
		if ts, err := time.Parse(timeLayout, created); err == nil {
			g.CreatedAt = ts
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// --- kv table ---

type sqlKV struct {
	db *sql.DB
}

func (s *sqlKV) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s *sqlKV) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

func (s *sqlKV) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv remove: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
