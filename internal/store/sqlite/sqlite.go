package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/modelmux/modelmux/internal/store"
	"github.com/modelmux/modelmux/internal/store/model"
)

// DB is satisfied by *sqlx.DB and *sqlx.Tx.
type DB interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repository implements store.Repository.
type Repository struct {
	db       *sqlx.DB // required for starting new transactions
	executor DB       // either *sqlx.DB or *sqlx.Tx
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, executor: db}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &Repository{db: r.db, executor: tx}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Repository) Requests() store.RequestRepository {
	return &requestRepo{db: r.executor}
}

type requestRepo struct {
	db DB
}

func (r *requestRepo) Log(ctx context.Context, log *model.RequestLog) error {
	query := `
	INSERT INTO request_logs (
		id, model_string, effective_model_string, canonical_provider,
		canonical_model_id, routed_through_gateway, thinking_level,
		finish_reason, input_tokens, output_tokens, cached_tokens,
		reasoning_tokens, latency_ms, ttft_ms, status_code, is_streamed,
		ip_address, user_agent, created_at
	) VALUES (
		:id, :model_string, :effective_model_string, :canonical_provider,
		:canonical_model_id, :routed_through_gateway, :thinking_level,
		:finish_reason, :input_tokens, :output_tokens, :cached_tokens,
		:reasoning_tokens, :latency_ms, :ttft_ms, :status_code, :is_streamed,
		:ip_address, :user_agent, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, log)
	return err
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*model.RequestLog, error) {
	var log model.RequestLog
	if err := r.db.GetContext(ctx, &log, `SELECT * FROM request_logs WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *requestRepo) GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error) {
	var logs []model.RequestLog
	query := `SELECT * FROM request_logs ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &logs, query, limit)
	return logs, err
}

func (r *requestRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	var stats []model.DailyStats
	query := `
		SELECT
			DATE(created_at) as date,
			COUNT(*) as total_requests,
			SUM(routed_through_gateway) as gateway_requests,
			SUM(input_tokens + output_tokens) as total_tokens,
			AVG(latency_ms) as avg_latency
		FROM request_logs
		WHERE created_at >= DATE('now', ?)
		GROUP BY date
		ORDER BY date DESC
	`
	// SQLite date offset format is '-7 days'.
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, err
}
