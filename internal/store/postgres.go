package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadcheck/internal/db"
	"github.com/sells-group/leadcheck/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, inputs, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_run": `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_run":      `SELECT id, inputs, status, result, error, created_at, updated_at FROM runs WHERE id = $1`,
	"get_header":   `SELECT header FROM runs WHERE id = $1`,
	"outcome_rows": `SELECT record FROM run_rows WHERE run_id = $1 AND disposition = $2 ORDER BY seq`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	inputs     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	error      TEXT,
	header     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_rows (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	disposition TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	record      JSONB NOT NULL,
	PRIMARY KEY (run_id, disposition, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_run_rows_run_id ON run_rows(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, inputs model.RunInputs) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal inputs")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, inputs, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, inputsJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Inputs:    inputs,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var inputsJSON []byte
	var resultNull *[]byte
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, inputs, status, result, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &inputsJSON, &r.Status, &resultNull, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if err := json.Unmarshal(inputsJSON, &r.Inputs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal inputs")
	}
	if resultNull != nil {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(*resultNull, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, inputs, status, result, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var inputsJSON []byte
		var resultNull *[]byte
		var errMsg *string

		if err := rows.Scan(&r.ID, &inputsJSON, &r.Status, &resultNull, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(inputsJSON, &r.Inputs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal inputs")
		}
		if resultNull != nil {
			r.Result = &model.RunResult{}
			if err := json.Unmarshal(*resultNull, r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveOutcome replaces any previously saved partitions for the run. The
// rows travel over the COPY protocol in one batch.
func (s *PostgresStore) SaveOutcome(ctx context.Context, runID string, outcome *model.Outcome) error {
	headerJSON, err := json.Marshal(outcomeColumns(outcome))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal header")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET header = $1, updated_at = $2 WHERE id = $3`,
		headerJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save outcome header %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM run_rows WHERE run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: clear outcome rows %s", runID)
	}

	var rows [][]any
	for _, d := range model.Dispositions {
		t := outcome.TableFor(d)
		if t == nil {
			continue
		}
		for seq, rec := range t.Rows {
			recordJSON, err := json.Marshal(rec)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal record")
			}
			rows = append(rows, []any{runID, string(d), seq, recordJSON})
		}
	}

	_, err = db.CopyFrom(ctx, s.pool, "run_rows",
		[]string{"run_id", "disposition", "seq", "record"}, rows)
	return err
}

func (s *PostgresStore) OutcomeTable(ctx context.Context, runID string, disposition model.Disposition) (*model.Table, error) {
	var headerNull *[]byte
	err := s.pool.QueryRow(ctx, `SELECT header FROM runs WHERE id = $1`, runID).Scan(&headerNull)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("run not found: %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run header %s", runID)
	}
	if headerNull == nil {
		return nil, eris.Errorf("outcome not found for run %s", runID)
	}

	var columns []string
	if err := json.Unmarshal(*headerNull, &columns); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal header")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT record FROM run_rows WHERE run_id = $1 AND disposition = $2 ORDER BY seq`,
		runID, string(disposition),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query outcome rows")
	}
	defer rows.Close()

	t := model.NewTable(columns)
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome row")
		}
		var rec model.Record
		if err := json.Unmarshal(recordJSON, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal record")
		}
		t.Append(rec)
	}
	return t, eris.Wrap(rows.Err(), "postgres: outcome rows iterate")
}
