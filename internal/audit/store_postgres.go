package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	id "crosscheck/pkg/domain"
)

// PostgresStore persists trails in the audit_entries table. Seq comes from a
// bigserial, so it is globally monotonic and, in particular, strictly
// increasing within every run.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the audit schema. Called once at startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_entries (
			seq        BIGSERIAL PRIMARY KEY,
			run_id     UUID        NOT NULL,
			ts         TIMESTAMPTZ NOT NULL,
			actor      TEXT        NOT NULL,
			operator   TEXT        NOT NULL DEFAULT '',
			action     TEXT        NOT NULL,
			payload    JSONB,
			request_id TEXT        NOT NULL DEFAULT '',
			user_agent TEXT        NOT NULL DEFAULT '',
			client_ip  TEXT        NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS audit_entries_run_idx ON audit_entries (run_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	var payload any
	if len(entry.Payload) > 0 {
		payload = []byte(entry.Payload)
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO audit_entries (run_id, ts, actor, operator, action, payload, request_id, user_agent, client_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`,
		entry.RunID.String(), entry.Timestamp, string(entry.Actor), entry.Operator,
		entry.Action, payload, entry.RequestID, entry.UserAgent, entry.ClientIP,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRun(ctx context.Context, runID id.RunID) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, ts, actor, operator, action, COALESCE(payload, 'null'::jsonb), request_id, user_agent, client_ip
		FROM audit_entries
		WHERE run_id = $1
		ORDER BY seq`,
		runID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry := Entry{RunID: runID}
		var payload []byte
		if err := rows.Scan(&entry.Seq, &entry.Timestamp, &entry.Actor, &entry.Operator,
			&entry.Action, &payload, &entry.RequestID, &entry.UserAgent, &entry.ClientIP); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if string(payload) != "null" {
			entry.Payload = payload
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
