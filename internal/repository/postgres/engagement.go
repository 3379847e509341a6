package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/drivelane/service-crm/internal/domain"
)

// EngagementRepo implements engagement.StatusStore and
// engagement.MetricStore. Every write here must be safe under carrier
// retries and repeated opens, so state transitions happen inside the
// SQL statement rather than read-then-write.
type EngagementRepo struct{ db *sql.DB }

// NewEngagementRepo creates a Postgres-backed engagement store.
func NewEngagementRepo(db *sql.DB) *EngagementRepo { return &EngagementRepo{db: db} }

func (r *EngagementRepo) UpdateSMSStatus(ctx context.Context, messageSid, status string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sms_messages SET status = $2 WHERE message_sid = $1
	`, messageSid, status)
	if err != nil {
		return false, fmt.Errorf("update sms status: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *EngagementRepo) UpdateWhatsAppStatus(ctx context.Context, messageSid, status string, read bool) (bool, error) {
	// read_at is first-transition-only: a replayed read callback keeps
	// the original timestamp.
	res, err := r.db.ExecContext(ctx, `
		UPDATE whatsapp_messages
		SET status = $2,
		    read_at = CASE WHEN $3 AND read_at IS NULL THEN NOW() ELSE read_at END
		WHERE message_sid = $1
	`, messageSid, status, read)
	if err != nil {
		return false, fmt.Errorf("update whatsapp status: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *EngagementRepo) UpsertOpen(ctx context.Context, customerID int64, source string) (*domain.SourceMetric, error) {
	// One row per (customer, source), enforced by the unique constraint.
	// Concurrent opens from two devices both land on the same row.
	m := &domain.SourceMetric{}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO source_metrics (customer_id, source, open_count, first_opened_at, last_opened_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (customer_id, source) DO UPDATE
		SET open_count = source_metrics.open_count + 1,
		    last_opened_at = NOW()
		RETURNING customer_id, source, open_count, first_opened_at, last_opened_at
	`, customerID, source).Scan(&m.CustomerID, &m.Source, &m.OpenCount, &m.FirstOpenedAt, &m.LastOpenedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert source metric: %w", err)
	}
	return m, nil
}

func (r *EngagementRepo) MarkEmailSeen(ctx context.Context, emailID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE service_emails SET seen_at = COALESCE(seen_at, NOW()) WHERE id = $1
	`, emailID)
	if err != nil {
		return false, fmt.Errorf("mark email seen: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
