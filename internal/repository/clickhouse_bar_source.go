package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/models"
	pkgch "github.com/AtashM95/tradebot/pkg/clickhouse"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
)

// DailyBarsDDL creates the table ClickHouseBarSource reads from.
func DailyBarsDDL(database, table string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			day    Date,
			symbol LowCardinality(String),
			open   Float64,
			high   Float64,
			low    Float64,
			close  Float64,
			volume Float64
		) ENGINE = ReplacingMergeTree
		ORDER BY (symbol, day)`, database, table),
	}
}

// ClickHouseBarSource reads daily bars from a ClickHouse table.
type ClickHouseBarSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseBarSource reads from database.table.
func NewClickHouseBarSource(ch *pkgch.Client, database, table string, l *applogger.Logger) *ClickHouseBarSource {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ClickHouseBarSource{db: ch.DB(), table: database + "." + table, l: l}
}

// DailyBars returns the newest `limit` bars in ascending order.
func (s *ClickHouseBarSource) DailyBars(ctx context.Context, symbol string, limit int) ([]models.Bar, error) {
	start := time.Now()
	const qtpl = `
        SELECT day, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY day DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, limit)
	if err != nil {
		s.l.Error("clickhouse daily_bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("limit", limit),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get daily bars: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Bar, 0, limit)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		tmp = append(tmp, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	s.l.Debug("clickhouse daily_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("limit", limit),
		applogger.Int("rows", len(tmp)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return tmp, nil
}

// InsertBars writes bars in multi-row VALUES chunks.
func (s *ClickHouseBarSource) InsertBars(ctx context.Context, symbol string, bars []models.Bar) error {
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := min(start+chunkSize, len(bars))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Time, symbol, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (day, symbol, open, high, low, close, volume) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert bars %s: %w", symbol, err)
		}
	}
	return nil
}
