package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	pkgsqlite "github.com/AtashM95/tradebot/pkg/sqlite"
)

// Schema is the DDL applied at startup.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS watchlist (
		position INTEGER NOT NULL,
		symbol   TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS models (
		id         TEXT PRIMARY KEY,
		algorithm  TEXT    NOT NULL,
		created_at INTEGER NOT NULL,
		body       TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS backtest_runs (
		id         TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		strategy   TEXT    NOT NULL,
		body       TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS signals (
		id         TEXT PRIMARY KEY,
		symbol     TEXT    NOT NULL,
		mode       TEXT    NOT NULL,
		created_at INTEGER NOT NULL,
		body       TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		level      TEXT    NOT NULL,
		message    TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS funding_alerts (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol       TEXT    NOT NULL,
		missing_cash REAL    NOT NULL,
		actions      TEXT    NOT NULL,
		details      TEXT    NOT NULL,
		created_at   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trade_queue (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol     TEXT    NOT NULL,
		payload    TEXT    NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created ON backtest_runs(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_created ON signals(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_queue_expires ON trade_queue(expires_at)`,
}

const activeModelKey = "active_model_id"

// SQLiteStore persists every piece of service state in one SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore applies Schema and returns the store.
func NewSQLiteStore(ctx context.Context, c *pkgsqlite.Client) (*SQLiteStore, error) {
	if err := c.InitSchema(ctx, Schema); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: c.DB(), now: time.Now}, nil
}

// SeedWatchlist stores defaults only when no watchlist has been saved yet.
func (s *SQLiteStore) SeedWatchlist(ctx context.Context, defaults []string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watchlist`).Scan(&n); err != nil {
		return fmt.Errorf("count watchlist: %w", err)
	}
	if n > 0 {
		return nil
	}
	return s.ReplaceSymbols(ctx, defaults)
}

func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM watchlist ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, 16)
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// ReplaceSymbols swaps the whole watchlist atomically.
func (s *SQLiteStore) ReplaceSymbols(ctx context.Context, symbols []string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist`); err != nil {
			return fmt.Errorf("clear watchlist: %w", err)
		}
		for i, sym := range symbols {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO watchlist (position, symbol) VALUES (?, ?)`, i, sym); err != nil {
				return fmt.Errorf("insert symbol %s: %w", sym, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) SaveModel(ctx context.Context, m models.Model) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO models (id, algorithm, created_at, body) VALUES (?, ?, ?, ?)`,
		m.ID, m.Algorithm, m.CreatedAt.UnixNano(), string(body))
	if err != nil {
		return fmt.Errorf("insert model %s: %w", m.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListModels(ctx context.Context) ([]models.Model, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM models ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []models.Model
	for rows.Next() {
		var m models.Model
		if err := scanJSON(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetActiveModel(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, activeModelKey, id)
	if err != nil {
		return fmt.Errorf("set active model: %w", err)
	}
	return nil
}

// ActiveModelID returns "" when no model was ever promoted.
func (s *SQLiteStore) ActiveModelID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, activeModelKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active model: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.BacktestRun) error {
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO backtest_runs (id, created_at, strategy, body) VALUES (?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Strategy, string(body))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.BacktestRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT body FROM backtest_runs WHERE id = ?`, id)
	var run models.BacktestRun
	if err := scanJSON(row, &run); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("backtest run %q not found", id)
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns returns summaries, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]models.BacktestRunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.BacktestRunSummary, 0, limit)
	for rows.Next() {
		var run models.BacktestRun
		if err := scanJSON(rows, &run); err != nil {
			return nil, err
		}
		out = append(out, models.BacktestRunSummary{
			ID:        run.ID,
			CreatedAt: run.CreatedAt,
			Strategy:  run.Strategy,
			Params:    run.Params,
			Aggregate: run.Aggregate,
			Partial:   run.Partial,
		})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddLog(ctx context.Context, level, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (level, message, created_at) VALUES (?, ?, ?)`,
		level, message, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// ListLogs returns entries newest first.
func (s *SQLiteStore) ListLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, level, message, created_at FROM logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	out := make([]models.LogEntry, 0, limit)
	for rows.Next() {
		var (
			e  models.LogEntry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Level, &e.Message, &ts); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		e.CreatedAt = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddSignal(ctx context.Context, sig models.Signal) error {
	body, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO signals (id, symbol, mode, created_at, body) VALUES (?, ?, ?, ?, ?)`,
		sig.ID, sig.Symbol, string(sig.Mode), sig.CreatedAt.UnixNano(), string(body))
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// ListSignals returns signals newest first.
func (s *SQLiteStore) ListSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM signals ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.Signal, 0, limit)
	for rows.Next() {
		var sig models.Signal
		if err := scanJSON(rows, &sig); err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddFundingAlert(ctx context.Context, a models.FundingAlert) error {
	actions, err := json.Marshal(a.ProposedActions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO funding_alerts (symbol, missing_cash, actions, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.Symbol, a.MissingCash, string(actions), string(details), created.UnixNano())
	if err != nil {
		return fmt.Errorf("insert funding alert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListFundingAlerts(ctx context.Context, limit int) ([]models.FundingAlert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, missing_cash, actions, details, created_at
		 FROM funding_alerts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list funding alerts: %w", err)
	}
	defer rows.Close()

	out := make([]models.FundingAlert, 0, limit)
	for rows.Next() {
		var (
			a                models.FundingAlert
			actions, details string
			ts               int64
		)
		if err := rows.Scan(&a.ID, &a.Symbol, &a.MissingCash, &actions, &details, &ts); err != nil {
			return nil, fmt.Errorf("scan funding alert: %w", err)
		}
		if err := json.Unmarshal([]byte(actions), &a.ProposedActions); err != nil {
			return nil, fmt.Errorf("decode actions: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &a.Details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
		a.CreatedAt = time.Unix(0, ts).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) EnqueueTrade(ctx context.Context, sig models.Signal, ttl time.Duration) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal queued signal: %w", err)
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trade_queue (symbol, payload, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		sig.Symbol, string(payload), now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("enqueue trade: %w", err)
	}
	return nil
}

// ListActiveTrades drops expired entries and returns the rest, oldest first.
func (s *SQLiteStore) ListActiveTrades(ctx context.Context, now time.Time) ([]models.QueuedTrade, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM trade_queue WHERE expires_at <= ?`, now.UnixNano()); err != nil {
		return nil, fmt.Errorf("purge trade queue: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, payload, expires_at, created_at FROM trade_queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list trade queue: %w", err)
	}
	defer rows.Close()

	var out []models.QueuedTrade
	for rows.Next() {
		var (
			q          models.QueuedTrade
			payload    string
			exp, creat int64
		)
		if err := rows.Scan(&q.ID, &q.Symbol, &payload, &exp, &creat); err != nil {
			return nil, fmt.Errorf("scan queued trade: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &q.Signal); err != nil {
			return nil, fmt.Errorf("decode queued signal: %w", err)
		}
		q.ExpiresAt = time.Unix(0, exp).UTC()
		q.CreatedAt = time.Unix(0, creat).UTC()
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJSON(row scanner, dest any) error {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scan row: %w", err)
	}
	if err := json.Unmarshal([]byte(body), dest); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return nil
}
