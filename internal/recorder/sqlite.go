package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"BasketRisk/internal/model"
)

// SQLiteRecorder persists report rows to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pricing_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			symbols     TEXT,
			strike      REAL,
			barrier     REAL,
			price       REAL,
			stderr      REAL,
			trials      INTEGER,
			knocked_out INTEGER,
			seed        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pricing_ts ON pricing_runs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_pricing_run ON pricing_runs(run_id)`,

		`CREATE TABLE IF NOT EXISTS calibrations (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			asset     INTEGER NOT NULL,
			symbol    TEXT,
			spot      REAL,
			drift     REAL,
			vol       REAL
		)`,

		`CREATE TABLE IF NOT EXISTS greeks_runs (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			epsilon   REAL,
			base      REAL,
			delta     REAL,
			gamma     REAL,
			vega      REAL
		)`,

		`CREATE TABLE IF NOT EXISTS scenario_runs (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			name      TEXT NOT NULL,
			price     REAL,
			error     TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordReport writes every row of a report in one transaction.
func (r *SQLiteRecorder) RecordReport(ctx context.Context, rep *model.RiskReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ts := rep.StartedAt.Unix()
	symbols := strings.Join(rep.Symbols, ",")

	insertPrice := func(kind string, barrier *float64, est model.PriceEstimate) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO pricing_runs
			(run_id, timestamp, kind, symbols, strike, barrier, price, stderr, trials, knocked_out, seed)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			rep.RunID, ts, kind, symbols, rep.Option.Strike, barrier,
			est.Price, est.StdErr, est.Trials, est.KnockedOut, strconv.FormatUint(est.Seed, 10),
		)
		return err
	}
	if err := insertPrice("vanilla", nil, rep.Vanilla); err != nil {
		return fmt.Errorf("insert vanilla: %w", err)
	}
	if rep.Option.IsBarrier() {
		if err := insertPrice("barrier", rep.Option.Barrier, rep.Barrier); err != nil {
			return fmt.Errorf("insert barrier: %w", err)
		}
	}

	for i, spot := range rep.Market.Spot {
		symbol := ""
		if i < len(rep.Symbols) {
			symbol = rep.Symbols[i]
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO calibrations
			(run_id, timestamp, asset, symbol, spot, drift, vol)
			VALUES (?,?,?,?,?,?,?)`,
			rep.RunID, ts, i, symbol, spot, rep.Market.Drift[i], rep.Market.Vol[i],
		); err != nil {
			return fmt.Errorf("insert calibration: %w", err)
		}
	}

	g := rep.Greeks
	if _, err := tx.ExecContext(ctx, `INSERT INTO greeks_runs
		(run_id, timestamp, epsilon, base, delta, gamma, vega)
		VALUES (?,?,?,?,?,?,?)`,
		rep.RunID, ts, g.Epsilon, g.Base, g.Delta, g.Gamma, g.Vega,
	); err != nil {
		return fmt.Errorf("insert greeks: %w", err)
	}

	for _, sc := range rep.Scenarios {
		var errText sql.NullString
		if sc.Err != nil {
			errText = sql.NullString{String: sc.Err.Error(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO scenario_runs
			(run_id, timestamp, name, price, error)
			VALUES (?,?,?,?,?)`,
			rep.RunID, ts, sc.Name, sc.Price, errText,
		); err != nil {
			return fmt.Errorf("insert scenario: %w", err)
		}
	}

	return tx.Commit()
}

// RecentPricing returns the newest pricing rows first.
func (r *SQLiteRecorder) RecentPricing(ctx context.Context, limit int) ([]PricingRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT run_id, timestamp, kind, symbols, strike, barrier,
			price, stderr, trials, knocked_out, seed
		FROM pricing_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pricing: %w", err)
	}
	defer rows.Close()

	var out []PricingRow
	for rows.Next() {
		var (
			row     PricingRow
			ts      int64
			barrier sql.NullFloat64
			seed    string
		)
		if err := rows.Scan(&row.RunID, &ts, &row.Kind, &row.Symbols, &row.Strike, &barrier,
			&row.Price, &row.StdErr, &row.Trials, &row.KnockedOut, &seed); err != nil {
			return nil, fmt.Errorf("scan pricing: %w", err)
		}
		row.Timestamp = time.Unix(ts, 0)
		if barrier.Valid {
			b := barrier.Float64
			row.Barrier = &b
		}
		if row.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("parse seed %q: %w", seed, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
