/*
Package sqlite provides the SQLite-backed persistence for subscription
records and evaluation audit rows.

PURPOSE:
  The decision engine is pure; this store is where the off-chain side keeps
  the current state record per subscription and an append-only log of every
  verdict rendered. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  subscriptions: current state record per subscription (JSON snapshot),
                 with active/cancelled status
  evaluations:   append-only audit log of verdicts

APPEND-ONLY ENFORCEMENT:
  evaluations rows are never updated or deleted; the audit trail is the
  point. subscriptions rows are updated only by replacing the state snapshot
  after an accepted action, mirroring how a correctly built transaction
  replaces the ledger record.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time.

USAGE:
  store, err := sqlite.New("./data/pullpay.db")
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/pullpay/subscription"
)

// Subscription status values.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// SubscriptionRecord is one stored subscription with its current state
// snapshot.
type SubscriptionRecord struct {
	ID        string
	State     subscription.State
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EvaluationRecord is one audit row: the verdict rendered for one action
// against one subscription.
type EvaluationRecord struct {
	ID             string
	SubscriptionID string
	ActionTag      string
	Verdict        string // "accept" or "reject"
	Reason         string // empty on accept
	EvaluatedAt    time.Time
}

// Store implements persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		state_json TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_subscriptions_status
		ON subscriptions(status);

	-- Append-only verdict log
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		subscription_id TEXT NOT NULL,
		action_tag TEXT NOT NULL,
		verdict TEXT NOT NULL,
		reason TEXT,
		evaluated_at TEXT NOT NULL,
		FOREIGN KEY (subscription_id) REFERENCES subscriptions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_subscription
		ON evaluations(subscription_id, evaluated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// CreateSubscription stores a new subscription record.
func (s *Store) CreateSubscription(ctx context.Context, rec SubscriptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	status := rec.Status
	if status == "" {
		status = StatusActive
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, state_json, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(stateJSON), status, now, now)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// GetSubscription returns the record for id, or nil if it doesn't exist.
func (s *Store) GetSubscription(ctx context.Context, id string) (*SubscriptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, state_json, status, created_at, updated_at
		FROM subscriptions WHERE id = ?`, id)
	rec, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// UpdateState replaces the state snapshot after an accepted action.
func (s *Store) UpdateState(ctx context.Context, id string, state subscription.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET state_json = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(stateJSON), time.Now().UTC().Format(time.RFC3339), id, StatusActive)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireOneRow(res, id)
}

// CancelSubscription marks the record cancelled. The state snapshot is kept
// for audit purposes.
func (s *Store) CancelSubscription(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		StatusCancelled, time.Now().UTC().Format(time.RFC3339), id, StatusActive)
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return requireOneRow(res, id)
}

// ListSubscriptions returns all subscriptions, newest first.
func (s *Store) ListSubscriptions(ctx context.Context) ([]SubscriptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state_json, status, created_at, updated_at
		FROM subscriptions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []SubscriptionRecord
	for rows.Next() {
		rec, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// EVALUATIONS (append-only)
// =============================================================================

// AppendEvaluation records one verdict. Rows are never updated or deleted.
func (s *Store) AppendEvaluation(ctx context.Context, rec EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := rec.EvaluatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, subscription_id, action_tag, verdict, reason, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SubscriptionID, rec.ActionTag, rec.Verdict, rec.Reason,
		at.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// ListEvaluations returns the audit rows for a subscription, newest first.
func (s *Store) ListEvaluations(ctx context.Context, subscriptionID string) ([]EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subscription_id, action_tag, verdict, reason, evaluated_at
		FROM evaluations WHERE subscription_id = ?
		ORDER BY evaluated_at DESC`, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []EvaluationRecord
	for rows.Next() {
		var rec EvaluationRecord
		var reason sql.NullString
		var at string
		if err := rows.Scan(&rec.ID, &rec.SubscriptionID, &rec.ActionTag,
			&rec.Verdict, &reason, &at); err != nil {
			return nil, err
		}
		rec.Reason = reason.String
		rec.EvaluatedAt, _ = time.Parse(time.RFC3339Nano, at)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*SubscriptionRecord, error) {
	var rec SubscriptionRecord
	var stateJSON, createdAt, updatedAt string
	if err := row.Scan(&rec.ID, &stateJSON, &rec.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return nil, fmt.Errorf("unmarshal state for %s: %w", rec.ID, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("subscription %s not found or not active", id)
	}
	return nil
}
