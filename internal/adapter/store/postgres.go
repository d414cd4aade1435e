package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS match_history (
	id          UUID PRIMARY KEY,
	input_text  TEXT NOT NULL,
	label       TEXT NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	model       TEXT NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_match_history_created_at ON match_history (created_at DESC);

CREATE TABLE IF NOT EXISTS audit_logs (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	subject     TEXT NOT NULL,
	action      TEXT NOT NULL,
	resource    TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	details     JSONB NOT NULL DEFAULT '{}',
	ip          TEXT NOT NULL,
	user_agent  TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at DESC);`

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate creates the tables the service writes to.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// --- Match history ---

// SaveMatch implements port.HistoryWriter.
func (s *PostgresStore) SaveMatch(ctx context.Context, rec *domain.MatchRecord) error {
	query := `INSERT INTO match_history (id, input_text, label, score, model, duration_ms, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.InputText, rec.Label, rec.Score, rec.Model, rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	return nil
}

// ListMatches returns the most recent matches, optionally filtered by label.
func (s *PostgresStore) ListMatches(ctx context.Context, limit int, label string) ([]domain.MatchRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, input_text, label, score, model, duration_ms, created_at
	          FROM match_history`
	args := []interface{}{}
	if label != "" {
		query += ` WHERE label = $1`
		args = append(args, label)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []domain.MatchRecord
	for rows.Next() {
		var r domain.MatchRecord
		if err := rows.Scan(&r.ID, &r.InputText, &r.Label, &r.Score, &r.Model, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LabelStat is the number of queries a reference phrase won and their mean score.
type LabelStat struct {
	Label     string  `json:"label"`
	Count     int     `json:"count"`
	MeanScore float64 `json:"mean_score"`
}

// MatchStats aggregates the match history per winning label.
func (s *PostgresStore) MatchStats(ctx context.Context) ([]LabelStat, error) {
	query := `SELECT label, COUNT(*), AVG(score)
	          FROM match_history
	          GROUP BY label
	          ORDER BY COUNT(*) DESC, label`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("match stats: %w", err)
	}
	defer rows.Close()

	var out []LabelStat
	for rows.Next() {
		var st LabelStat
		if err := rows.Scan(&st.Label, &st.Count, &st.MeanScore); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// --- Audit Logs ---

// WriteAudit implements port.AuditWriter.
func (s *PostgresStore) WriteAudit(subject, action, resource, resourceID, details, ip, userAgent string) error {
	query := `INSERT INTO audit_logs (subject, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.Exec(query, subject, action, resource, resourceID, details, ip, userAgent)
	return err
}

// ListAuditLogs returns recent audit logs with optional filters.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, subject, action, resource, resource_id, details, ip, user_agent, created_at
	          FROM audit_logs`
	args := []interface{}{}
	if action != "" {
		query += ` WHERE action = $1`
		args = append(args, action)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(
			&l.ID, &l.Subject, &l.Action, &l.Resource, &l.ResourceID,
			&l.Details, &l.IP, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
