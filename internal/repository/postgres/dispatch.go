package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/drivelane/service-crm/internal/domain"
)

// LedgerRepo implements dispatch.Ledger across the three per-channel
// delivery tables.
type LedgerRepo struct{ db *sql.DB }

// NewLedgerRepo creates a Postgres-backed delivery ledger.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

func (r *LedgerRepo) CreateSMS(ctx context.Context, d *domain.SMSDispatch) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sms_messages (customer_id, insight_id, telecaller_id, message_sid, message_body, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, d.CustomerID, d.InsightID, d.SenderID, d.MessageSid, d.Body, d.Status, d.SentAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert sms dispatch: %w", err)
	}
	return nil
}

func (r *LedgerRepo) CreateWhatsApp(ctx context.Context, d *domain.WhatsAppDispatch) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO whatsapp_messages (customer_id, insight_id, telecaller_id, message_sid, message_body, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, d.CustomerID, d.InsightID, d.SenderID, d.MessageSid, d.Body, d.Status, d.SentAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert whatsapp dispatch: %w", err)
	}
	return nil
}

func (r *LedgerRepo) ReserveEmail(ctx context.Context, d *domain.EmailDispatch) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO service_emails (customer_id, insight_id, sent_by_id, status, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, d.CustomerID, d.InsightID, d.SenderID, d.Status, d.SentAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("reserve email dispatch: %w", err)
	}
	return nil
}

func (r *LedgerRepo) FinalizeEmail(ctx context.Context, id int64, messageID, body string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE service_emails
		SET message_id = $2, email_body = $3, status = $4
		WHERE id = $1
	`, id, messageID, body, domain.StatusSent)
	if err != nil {
		return fmt.Errorf("finalize email dispatch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finalize email dispatch: no reserved row %d", id)
	}
	return nil
}

func (r *LedgerRepo) DiscardEmail(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM service_emails WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("discard email dispatch: %w", err)
	}
	return nil
}

func (r *LedgerRepo) ListSMSByCustomer(ctx context.Context, customerID int64) ([]domain.SMSDispatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.customer_id, s.insight_id, s.telecaller_id, s.message_sid,
		       s.message_body, s.status, s.sent_at, COALESCE(t.full_name,'')
		FROM sms_messages s
		LEFT JOIN telecallers t ON t.id = s.telecaller_id
		WHERE s.customer_id = $1
		ORDER BY s.sent_at DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list sms dispatches: %w", err)
	}
	defer rows.Close()

	var out []domain.SMSDispatch
	for rows.Next() {
		var d domain.SMSDispatch
		if err := rows.Scan(&d.ID, &d.CustomerID, &d.InsightID, &d.SenderID, &d.MessageSid,
			&d.Body, &d.Status, &d.SentAt, &d.SenderName); err != nil {
			return nil, fmt.Errorf("scan sms dispatch: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) ListWhatsAppByCustomer(ctx context.Context, customerID int64) ([]domain.WhatsAppDispatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT w.id, w.customer_id, w.insight_id, w.telecaller_id, w.message_sid,
		       w.message_body, w.status, w.sent_at, w.read_at, COALESCE(t.full_name,'')
		FROM whatsapp_messages w
		LEFT JOIN telecallers t ON t.id = w.telecaller_id
		WHERE w.customer_id = $1
		ORDER BY w.sent_at DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list whatsapp dispatches: %w", err)
	}
	defer rows.Close()

	var out []domain.WhatsAppDispatch
	for rows.Next() {
		var d domain.WhatsAppDispatch
		if err := rows.Scan(&d.ID, &d.CustomerID, &d.InsightID, &d.SenderID, &d.MessageSid,
			&d.Body, &d.Status, &d.SentAt, &d.ReadAt, &d.SenderName); err != nil {
			return nil, fmt.Errorf("scan whatsapp dispatch: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) ListEmailByCustomer(ctx context.Context, customerID int64) ([]domain.EmailDispatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.customer_id, e.insight_id, e.sent_by_id, COALESCE(e.message_id,''),
		       e.status, e.sent_at, e.seen_at, COALESCE(t.full_name,'')
		FROM service_emails e
		LEFT JOIN telecallers t ON t.id = e.sent_by_id
		WHERE e.customer_id = $1
		ORDER BY e.sent_at DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list email dispatches: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailDispatch
	for rows.Next() {
		var d domain.EmailDispatch
		if err := rows.Scan(&d.ID, &d.CustomerID, &d.InsightID, &d.SenderID, &d.MessageID,
			&d.Status, &d.SentAt, &d.SeenAt, &d.SenderName); err != nil {
			return nil, fmt.Errorf("scan email dispatch: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
