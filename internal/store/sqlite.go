package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadcheck/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	inputs     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	error      TEXT,
	header     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_rows (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	disposition TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	record      TEXT NOT NULL,
	PRIMARY KEY (run_id, disposition, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_run_rows_run_id ON run_rows(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, inputs model.RunInputs) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal inputs")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, inputs, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(inputsJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Inputs:    inputs,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, inputs, status, result, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, inputs, status, result, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRunFromRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// SaveOutcome replaces any previously saved partitions for the run. The
// header and all rows are written in one transaction.
func (s *SQLiteStore) SaveOutcome(ctx context.Context, runID string, outcome *model.Outcome) error {
	headerJSON, err := json.Marshal(outcomeColumns(outcome))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal header")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save outcome")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET header = ?, updated_at = ? WHERE id = ?`,
		string(headerJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save outcome header %s", runID)
	}
	if err := checkRowsAffected(res, "run", runID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_rows WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear outcome rows %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_rows (run_id, disposition, seq, record) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare outcome insert")
	}
	defer stmt.Close()

	for _, d := range model.Dispositions {
		t := outcome.TableFor(d)
		if t == nil {
			continue
		}
		for seq, rec := range t.Rows {
			recordJSON, err := json.Marshal(rec)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal record")
			}
			if _, err := stmt.ExecContext(ctx, runID, string(d), seq, string(recordJSON)); err != nil {
				return eris.Wrapf(err, "sqlite: insert outcome row %s/%s", runID, d)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save outcome")
}

func (s *SQLiteStore) OutcomeTable(ctx context.Context, runID string, disposition model.Disposition) (*model.Table, error) {
	var headerJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT header FROM runs WHERE id = ?`, runID).Scan(&headerJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run header %s", runID)
	}
	if !headerJSON.Valid {
		return nil, eris.Errorf("outcome not found for run %s", runID)
	}

	var columns []string
	if err := json.Unmarshal([]byte(headerJSON.String), &columns); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal header")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM run_rows WHERE run_id = ? AND disposition = ? ORDER BY seq`,
		runID, string(disposition),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query outcome rows")
	}
	defer rows.Close()

	t := model.NewTable(columns)
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome row")
		}
		var rec model.Record
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal record")
		}
		t.Append(rec)
	}
	return t, eris.Wrap(rows.Err(), "sqlite: outcome rows iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var inputsJSON string
	var resultJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &inputsJSON, &r.Status, &resultJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(inputsJSON), &r.Inputs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal inputs")
	}
	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	return &r, nil
}

func scanRunFromRows(rows *sql.Rows) (*model.Run, error) {
	return scanRun(rows)
}
