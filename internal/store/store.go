// Package store records numeric calculations and recommendations in SQLite
// and answers the aggregate queries used to judge the advisor over time.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ActionPending marks a recommendation whose real outcome is not known yet.
const ActionPending = "pending"

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// --------- Data models ---------

// Calculation is one numeric method run for a hand.
type Calculation struct {
	ID              string    `json:"id"`
	HandRef         string    `json:"hand_ref"`
	Method          string    `json:"method"`
	InputJSON       string    `json:"input_json"`
	StepsJSON       string    `json:"steps_json"`
	ResultValue     float64   `json:"result_value"`
	ExecutionTimeMs float64   `json:"execution_time_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// Recommendation is an advised action and, once known, what was played.
type Recommendation struct {
	ID                string    `json:"id"`
	HandRef           string    `json:"hand_ref"`
	PlayerTotal       int       `json:"player_total"`
	DealerUpcard      int       `json:"dealer_upcard"`
	RecommendedAction string    `json:"recommended_action"`
	ActualAction      string    `json:"actual_action"`
	Confidence        float64   `json:"confidence"`
	HitWeight         float64   `json:"hit_weight"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MethodStats aggregates every recorded run of one method.
type MethodStats struct {
	Method     string  `json:"method"`
	UsageCount int64   `json:"usage_count"`
	AvgResult  float64 `json:"avg_result"`
	AvgTimeMs  float64 `json:"avg_execution_time_ms"`
	MinTimeMs  float64 `json:"min_time_ms"`
	MaxTimeMs  float64 `json:"max_time_ms"`
}

// AccuracyRow counts resolved recommendations by advised and actual action.
type AccuracyRow struct {
	RecommendedAction string  `json:"recommended_action"`
	ActualAction      string  `json:"actual_action"`
	Frequency         int64   `json:"frequency"`
	AvgConfidence     float64 `json:"avg_confidence"`
}

// --------- Store ---------

type Store struct {
	db *sql.DB
}

// New opens/creates a SQLite database at dbPath and runs migrations.
// ":memory:" gives a private in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := ":memory:"
	if dbPath != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withRetry re-runs fn while SQLite reports the database as busy.
func (s *Store) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(4, retry.NewExponential(25*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if isBusy(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// --------- Calculations ---------

// inTx runs fn in a transaction, retrying the whole transaction while the
// database is busy.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// SaveCalculations inserts calcs in one transaction, assigning ids and
// timestamps where missing.
func (s *Store) SaveCalculations(ctx context.Context, calcs []Calculation) error {
	if len(calcs) == 0 {
		return nil
	}
	fillCalculations(calcs)
	return s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return insertCalculations(ctx, tx, calcs)
	})
}

func fillCalculations(calcs []Calculation) {
	now := time.Now().UTC()
	for i := range calcs {
		if calcs[i].ID == "" {
			calcs[i].ID = uuid.NewString()
		}
		if calcs[i].CreatedAt.IsZero() {
			calcs[i].CreatedAt = now
		}
		if calcs[i].InputJSON == "" {
			calcs[i].InputJSON = "{}"
		}
		if calcs[i].StepsJSON == "" {
			calcs[i].StepsJSON = "[]"
		}
	}
}

func insertCalculations(ctx context.Context, tx *sql.Tx, calcs []Calculation) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO numeric_calculations
			(id, hand_ref, method, input_json, steps_json, result_value, execution_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range calcs {
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.HandRef, c.Method, c.InputJSON, c.StepsJSON,
			c.ResultValue, c.ExecutionTimeMs, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert calculation: %w", err)
		}
	}
	return nil
}

// ListCalculations returns the calculations recorded for handRef, oldest first.
func (s *Store) ListCalculations(ctx context.Context, handRef string) ([]Calculation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hand_ref, method, input_json, steps_json, result_value, execution_time_ms, created_at
		FROM numeric_calculations
		WHERE hand_ref = ?
		ORDER BY created_at, method`, handRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Calculation
	for rows.Next() {
		var c Calculation
		if err := rows.Scan(&c.ID, &c.HandRef, &c.Method, &c.InputJSON, &c.StepsJSON,
			&c.ResultValue, &c.ExecutionTimeMs, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MethodPerformance aggregates every recorded calculation by method.
func (s *Store) MethodPerformance(ctx context.Context) ([]MethodStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT method,
			COUNT(*),
			AVG(result_value),
			AVG(execution_time_ms),
			MIN(execution_time_ms),
			MAX(execution_time_ms)
		FROM numeric_calculations
		GROUP BY method
		ORDER BY method`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MethodStats
	for rows.Next() {
		var m MethodStats
		if err := rows.Scan(&m.Method, &m.UsageCount, &m.AvgResult, &m.AvgTimeMs, &m.MinTimeMs, &m.MaxTimeMs); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --------- Recommendations ---------

// SaveRecommendation inserts rec with a pending actual action unless one is
// already set.
func (s *Store) SaveRecommendation(ctx context.Context, rec *Recommendation) error {
	fillRecommendation(rec)
	return s.withRetry(ctx, func(ctx context.Context) error {
		return insertRecommendation(ctx, s.db, rec)
	})
}

func fillRecommendation(rec *Recommendation) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ActualAction == "" {
		rec.ActualAction = ActionPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.UpdatedAt = rec.CreatedAt
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertRecommendation(ctx context.Context, db execer, rec *Recommendation) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO recommendations
			(id, hand_ref, player_total, dealer_upcard, recommended_action, actual_action,
			 confidence, hit_weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.HandRef, rec.PlayerTotal, rec.DealerUpcard, rec.RecommendedAction,
		rec.ActualAction, rec.Confidence, rec.HitWeight, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// GetRecommendation loads one recommendation by id.
func (s *Store) GetRecommendation(ctx context.Context, id string) (Recommendation, error) {
	var r Recommendation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, hand_ref, player_total, dealer_upcard, recommended_action, actual_action,
			confidence, hit_weight, created_at, updated_at
		FROM recommendations WHERE id = ?`, id).
		Scan(&r.ID, &r.HandRef, &r.PlayerTotal, &r.DealerUpcard, &r.RecommendedAction,
			&r.ActualAction, &r.Confidence, &r.HitWeight, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Recommendation{}, ErrNotFound
	}
	return r, err
}

// SetActualAction records what was actually played for a recommendation.
func (s *Store) SetActualAction(ctx context.Context, id, action string) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE recommendations SET actual_action = ?, updated_at = ? WHERE id = ?`,
			action, time.Now().UTC(), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// RecommendationAccuracy groups resolved recommendations by advised and
// actual action. Pending rows are excluded.
func (s *Store) RecommendationAccuracy(ctx context.Context) ([]AccuracyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recommended_action, actual_action, COUNT(*), AVG(confidence)
		FROM recommendations
		WHERE actual_action != ?
		GROUP BY recommended_action, actual_action
		ORDER BY recommended_action, actual_action`, ActionPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccuracyRow
	for rows.Next() {
		var a AccuracyRow
		if err := rows.Scan(&a.RecommendedAction, &a.ActualAction, &a.Frequency, &a.AvgConfidence); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
