package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS clearhead_runs (
			run_id          UUID PRIMARY KEY,
			source          TEXT NOT NULL DEFAULT '',
			started_at      TIMESTAMPTZ NOT NULL,
			finished_at     TIMESTAMPTZ NOT NULL,
			success         BOOLEAN NOT NULL,
			message         TEXT NOT NULL DEFAULT '',
			task_count      INTEGER NOT NULL DEFAULT 0,
			recommendations JSONB
		)`)
	if err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const runColumns = `run_id, source, started_at, finished_at, success, message, task_count, recommendations`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	var recs []byte
	if len(run.Recommendations) > 0 {
		recs = run.Recommendations
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clearhead_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Source, run.StartedAt, run.FinishedAt,
		run.Success, run.Message, run.TaskCount, recs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM clearhead_runs WHERE run_id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM clearhead_runs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Success != nil {
		n++
		query += fmt.Sprintf(" AND success = $%d", n)
		args = append(args, *filter.Success)
	}
	if filter.Source != "" {
		n++
		query += fmt.Sprintf(" AND source = $%d", n)
		args = append(args, filter.Source)
	}

	query += " ORDER BY started_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) GetRunStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COUNT(*) FILTER (WHERE NOT success),
			COALESCE(AVG(EXTRACT(EPOCH FROM (finished_at - started_at)) * 1000), 0)
		FROM clearhead_runs`,
	).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &stats.AvgDurationMs)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func scanRun(row pgx.Row) (*Run, error) {
	r := &Run{}
	var recs []byte
	err := row.Scan(
		&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt,
		&r.Success, &r.Message, &r.TaskCount, &recs,
	)
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		r.Recommendations = recs
	}
	return r, nil
}
