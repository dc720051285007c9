package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	options "github.com/apurbab29/futu-options/internal/domain/entity/options"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the run tables when they are missing.
const Schema = `
	CREATE TABLE IF NOT EXISTS option_runs (
		run_id       UUID PRIMARY KEY,
		ticker       TEXT NOT NULL,
		provider     TEXT NOT NULL,
		queried_at   TIMESTAMPTZ NOT NULL,
		outcome      TEXT NOT NULL,
		record_count INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS option_runs_ticker_queried_at ON option_runs (ticker, queried_at DESC);
	CREATE TABLE IF NOT EXISTS option_records (
		run_id             UUID NOT NULL REFERENCES option_runs (run_id) ON DELETE CASCADE,
		position           INTEGER NOT NULL,
		code               TEXT NOT NULL,
		name               TEXT NOT NULL,
		strike_price       DOUBLE PRECISION,
		strike_time        TIMESTAMPTZ,
		option_type        TEXT NOT NULL,
		open_interest      BIGINT NOT NULL,
		volume             BIGINT NOT NULL,
		last_price         DOUBLE PRECISION NOT NULL,
		prev_close_price   DOUBLE PRECISION NOT NULL,
		turnover           DOUBLE PRECISION NOT NULL,
		implied_volatility DOUBLE PRECISION NOT NULL,
		delta              DOUBLE PRECISION NOT NULL,
		contract_size      DOUBLE PRECISION NOT NULL,
		update_time        TIMESTAMPTZ,
		PRIMARY KEY (run_id, position)
	);`

var recordColumns = []string{
	"run_id",
	"position",
	"code",
	"name",
	"strike_price",
	"strike_time",
	"option_type",
	"open_interest",
	"volume",
	"last_price",
	"prev_close_price",
	"turnover",
	"implied_volatility",
	"delta",
	"contract_size",
	"update_time",
}

type Repository struct {
	pool *pgxpool.Pool
}

var _ interfaces.SnapshotRepository = (*Repository)(nil)

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Migrate applies Schema.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply snapshot schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

const insertRunQuery = `
	INSERT INTO option_runs (run_id, ticker, provider, queried_at, outcome, record_count)
	VALUES ($1,$2,$3,$4,$5,$6)`

// SaveRun stores run and its records in one transaction.
func (r *Repository) SaveRun(ctx context.Context, run interfaces.ChainRun, records []options.Record) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertRunQuery,
		run.ID,
		run.Ticker,
		run.Provider,
		run.QueriedAt,
		run.Outcome,
		len(records),
	)
	if err != nil {
		return fmt.Errorf("insert option run: %w", err)
	}

	if len(records) > 0 {
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"option_records"},
			recordColumns,
			pgx.CopyFromRows(recordRows(run.ID, records)),
		)
		if err != nil {
			return fmt.Errorf("copy option records: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// LastRun returns the latest run of ticker with its records in stored order,
// or nil when none exists.
func (r *Repository) LastRun(ctx context.Context, ticker string) (*interfaces.ChainRun, []options.Record, error) {
	const runQuery = `
		SELECT run_id, ticker, provider, queried_at, outcome, record_count
		FROM option_runs
		WHERE ticker=$1
		ORDER BY queried_at DESC
		LIMIT 1`
	run := interfaces.ChainRun{}
	err := r.pool.QueryRow(ctx, runQuery, ticker).Scan(
		&run.ID,
		&run.Ticker,
		&run.Provider,
		&run.QueriedAt,
		&run.Outcome,
		&run.Records,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	const recordsQuery = `
		SELECT code, name, strike_price, strike_time, option_type,
		       open_interest, volume, last_price, prev_close_price, turnover,
		       implied_volatility, delta, contract_size, update_time
		FROM option_records
		WHERE run_id=$1
		ORDER BY position ASC`
	rows, err := r.pool.Query(ctx, recordsQuery, run.ID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var records []options.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, record)
	}
	return &run, records, rows.Err()
}

func recordRows(runID uuid.UUID, records []options.Record) [][]interface{} {
	rows := make([][]interface{}, 0, len(records))
	for i, rec := range records {
		rows = append(rows, []interface{}{
			runID,
			i,
			rec.Code,
			rec.Name,
			nullableFloat(rec.StrikePrice),
			nullableTime(rec.StrikeTime),
			string(rec.OptionType),
			rec.OpenInterest,
			rec.Volume,
			rec.LastPrice,
			rec.PrevClosePrice,
			rec.Turnover,
			rec.ImpliedVolatility,
			rec.Delta,
			rec.ContractSize,
			nullableTime(rec.UpdateTime),
		})
	}
	return rows
}

func scanRecord(row pgx.Row) (options.Record, error) {
	var (
		strike     sql.NullFloat64
		strikeTime sql.NullTime
		optionType string
		updateTime sql.NullTime
	)
	rec := options.Record{}
	err := row.Scan(
		&rec.Code,
		&rec.Name,
		&strike,
		&strikeTime,
		&optionType,
		&rec.OpenInterest,
		&rec.Volume,
		&rec.LastPrice,
		&rec.PrevClosePrice,
		&rec.Turnover,
		&rec.ImpliedVolatility,
		&rec.Delta,
		&rec.ContractSize,
		&updateTime,
	)
	if err != nil {
		return options.Record{}, err
	}
	rec.StrikePrice = math.NaN()
	if strike.Valid {
		rec.StrikePrice = strike.Float64
	}
	if strikeTime.Valid {
		rec.StrikeTime = strikeTime.Time
	}
	if updateTime.Valid {
		rec.UpdateTime = updateTime.Time
	}
	rec.OptionType = options.ParseOptionType(optionType)
	return rec, nil
}

// Helpers

func nullableFloat(value float64) interface{} {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	return value
}

func nullableTime(value time.Time) interface{} {
	if value.IsZero() {
		return nil
	}
	return value
}
