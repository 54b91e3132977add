package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"macdtrader/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ BarStore = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol      TEXT    NOT NULL,
	market      TEXT    NOT NULL,
	ts          INTEGER NOT NULL,
	open        REAL    NOT NULL,
	high        REAL    NOT NULL,
	low         REAL    NOT NULL,
	close       REAL    NOT NULL,
	volume      INTEGER NOT NULL DEFAULT 0,
	trade_count INTEGER NOT NULL DEFAULT 0,
	vwap        REAL    NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol, market, ts)
);`

// SQLiteStore implements BarStore backed by a single SQLite bars table.
type SQLiteStore struct {
	db     *sql.DB
	market string
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// bars table if needed, and writes bars under market.
func NewSQLiteStore(dbPath, market string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bars table: %w", err)
	}
	if market == "" {
		market = string(domain.MarketUS)
	}
	return &SQLiteStore{db: db, market: market}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WriteBars upserts bars in one transaction.
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars
			(symbol, market, ts, open, high, low, close, volume, trade_count, vwap)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			strings.ToUpper(b.Symbol), s.market, b.Timestamp.UnixMilli(),
			b.Open, b.High, b.Low, b.Close, b.Volume, b.TradeCount, b.VWAP,
		); err != nil {
			return fmt.Errorf("inserting %s at %s: %w", b.Symbol, b.Timestamp.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

// ReadBars returns bars for symbol in market within [start, end].
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, open, high, low, close, volume, trade_count, vwap
		FROM bars
		WHERE symbol = ? AND market = ? AND ts BETWEEN ? AND ?
		ORDER BY ts`,
		strings.ToUpper(symbol), market, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var (
			b  domain.Bar
			ts int64
		)
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close,
			&b.Volume, &b.TradeCount, &b.VWAP); err != nil {
			return nil, err
		}
		b.Timestamp = time.UnixMilli(ts).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns the distinct symbols stored for market.
func (s *SQLiteStore) ListSymbols(ctx context.Context, market string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM bars WHERE market = ? ORDER BY symbol`, market)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}
