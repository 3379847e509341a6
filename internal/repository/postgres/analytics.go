package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/drivelane/service-crm/internal/domain"
	"github.com/drivelane/service-crm/internal/service/analytics"
)

// AnalyticsRepo implements analytics.Store with aggregate queries over
// the delivery ledgers. Each method answers for exactly one channel;
// the service merges channels.
type AnalyticsRepo struct{ db *sql.DB }

// NewAnalyticsRepo creates a Postgres-backed analytics store.
func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// channelTable maps a channel to its ledger table and sender column.
func channelTable(ch domain.Channel) (table, senderCol string, err error) {
	switch ch {
	case domain.ChannelEmail:
		return "service_emails", "sent_by_id", nil
	case domain.ChannelSMS:
		return "sms_messages", "telecaller_id", nil
	case domain.ChannelWhatsApp:
		return "whatsapp_messages", "telecaller_id", nil
	default:
		return "", "", fmt.Errorf("no ledger table for channel %q", ch)
	}
}

// filterClause is the shared WHERE tail for ledger aggregates: sender,
// customer, and date range, each unbounded when its parameter is NULL.
// Parameters bind as $1 sender, $2 customer, $3 from, $4 to.
func filterClause(senderCol string) string {
	return fmt.Sprintf(`($1::bigint IS NULL OR %s = $1)
		  AND ($2::bigint IS NULL OR customer_id = $2)
		  AND ($3::timestamptz IS NULL OR sent_at >= $3)
		  AND ($4::timestamptz IS NULL OR sent_at < $4)`, senderCol)
}

func filterArgs(f analytics.Filter) []interface{} {
	return []interface{}{f.SenderID, f.CustomerID, nullableTime(f.From), nullableTime(f.To)}
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func (r *AnalyticsRepo) ChannelSummary(ctx context.Context, ch domain.Channel, f analytics.Filter) (*analytics.ChannelSummary, error) {
	table, senderCol, err := channelTable(ch)
	if err != nil {
		return nil, err
	}
	where := filterClause(senderCol)
	args := filterArgs(f)

	cs := &analytics.ChannelSummary{Channel: string(ch)}
	switch ch {
	case domain.ChannelEmail:
		err = r.db.QueryRowContext(ctx, `
			SELECT COUNT(*), COUNT(DISTINCT customer_id), COUNT(seen_at)
			FROM service_emails
			WHERE `+where, args...,
		).Scan(&cs.TotalSent, &cs.UniqueCustomers, &cs.Opened)
	case domain.ChannelWhatsApp:
		err = r.db.QueryRowContext(ctx, `
			SELECT COUNT(*), COUNT(DISTINCT customer_id),
			       COUNT(*) FILTER (WHERE status = 'delivered' OR status = 'read'),
			       COUNT(read_at)
			FROM whatsapp_messages
			WHERE `+where, args...,
		).Scan(&cs.TotalSent, &cs.UniqueCustomers, &cs.Delivered, &cs.Read)
	default:
		err = r.db.QueryRowContext(ctx, `
			SELECT COUNT(*), COUNT(DISTINCT customer_id),
			       COUNT(*) FILTER (WHERE status = 'delivered')
			FROM sms_messages
			WHERE `+where, args...,
		).Scan(&cs.TotalSent, &cs.UniqueCustomers, &cs.Delivered)
	}
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", table, err)
	}

	// Link opens exist only for the sources the open tracker covers.
	// Metric rows carry no sender, so only the customer filter applies.
	if source := string(ch); domain.ValidSource(source) {
		err = r.db.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(open_count), 0)
			FROM source_metrics
			WHERE source = $1 AND ($2::bigint IS NULL OR customer_id = $2)
		`, source, f.CustomerID).Scan(&cs.LinkOpens)
		if err != nil {
			return nil, fmt.Errorf("sum link opens for %s: %w", source, err)
		}
	}
	return cs, nil
}

func (r *AnalyticsRepo) SenderStats(ctx context.Context, ch domain.Channel, f analytics.Filter) ([]analytics.SenderStats, error) {
	table, senderCol, err := channelTable(ch)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT t.id, t.full_name, COUNT(m.id), %s
		FROM %s m
		JOIN telecallers t ON t.id = m.%s
		WHERE ($1::bigint IS NULL OR m.%s = $1)
		  AND ($2::bigint IS NULL OR m.customer_id = $2)
		  AND ($3::timestamptz IS NULL OR m.sent_at >= $3)
		  AND ($4::timestamptz IS NULL OR m.sent_at < $4)
		GROUP BY t.id, t.full_name
		ORDER BY COUNT(m.id) DESC
	`, engagedExprQualified(ch), table, senderCol, senderCol)

	rows, err := r.db.QueryContext(ctx, q, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("sender stats for %s: %w", table, err)
	}
	defer rows.Close()

	var out []analytics.SenderStats
	for rows.Next() {
		var s analytics.SenderStats
		if err := rows.Scan(&s.SenderID, &s.SenderName, &s.Sent, &s.Engaged); err != nil {
			return nil, fmt.Errorf("scan sender stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func engagedExprQualified(ch domain.Channel) string {
	if ch == domain.ChannelEmail {
		return "COUNT(m.seen_at)"
	}
	return "COUNT(*) FILTER (WHERE m.status = 'delivered')"
}

func (r *AnalyticsRepo) CustomerRows(ctx context.Context, ch domain.Channel, f analytics.Filter) ([]analytics.CustomerChannelRow, error) {
	table, senderCol, err := channelTable(ch)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT c.id, c.customer_name, COUNT(m.id), %s, MAX(m.sent_at)
		FROM %s m
		JOIN customers c ON c.id = m.customer_id
		WHERE ($1::bigint IS NULL OR m.%s = $1)
		  AND ($2::bigint IS NULL OR m.customer_id = $2)
		  AND ($3::timestamptz IS NULL OR m.sent_at >= $3)
		  AND ($4::timestamptz IS NULL OR m.sent_at < $4)
		GROUP BY c.id, c.customer_name
	`, engagedExprQualified(ch), table, senderCol)

	rows, err := r.db.QueryContext(ctx, q, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("customer rows for %s: %w", table, err)
	}
	defer rows.Close()

	var out []analytics.CustomerChannelRow
	for rows.Next() {
		var row analytics.CustomerChannelRow
		if err := rows.Scan(&row.CustomerID, &row.CustomerName, &row.Sent, &row.Engaged, &row.LastSentAt); err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) SeriesCounts(ctx context.Context, ch domain.Channel, f analytics.Filter, interval string) ([]analytics.DayCount, error) {
	table, senderCol, err := channelTable(ch)
	if err != nil {
		return nil, err
	}
	// interval is interpolated into DATE_TRUNC, so it must come from
	// this whitelist, never from the request.
	if interval != "month" {
		interval = "day"
	}

	q := fmt.Sprintf(`
		SELECT TO_CHAR(DATE_TRUNC('%s', sent_at), 'YYYY-MM-DD'), COUNT(*)
		FROM %s
		WHERE %s
		GROUP BY 1
		ORDER BY 1
	`, interval, table, filterClause(senderCol))

	rows, err := r.db.QueryContext(ctx, q, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("series counts for %s: %w", table, err)
	}
	defer rows.Close()

	var out []analytics.DayCount
	for rows.Next() {
		var d analytics.DayCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, fmt.Errorf("scan series count: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) RecentDispatches(ctx context.Context, ch domain.Channel, limit int) ([]analytics.RecentDispatch, error) {
	table, _, err := channelTable(ch)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT m.id, m.customer_id, c.customer_name, m.status, m.sent_at
		FROM %s m
		JOIN customers c ON c.id = m.customer_id
		ORDER BY m.sent_at DESC
		LIMIT $1
	`, table)

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent dispatches for %s: %w", table, err)
	}
	defer rows.Close()

	var out []analytics.RecentDispatch
	for rows.Next() {
		var d analytics.RecentDispatch
		if err := rows.Scan(&d.ID, &d.CustomerID, &d.CustomerName, &d.Status, &d.SentAt); err != nil {
			return nil, fmt.Errorf("scan recent dispatch: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) RecentOpens(ctx context.Context, limit int) ([]analytics.SourceOpenRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.customer_id, c.customer_name, m.source, m.open_count, m.last_opened_at
		FROM source_metrics m
		JOIN customers c ON c.id = m.customer_id
		ORDER BY m.last_opened_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent opens: %w", err)
	}
	defer rows.Close()
	return scanOpenRows(rows)
}

func (r *AnalyticsRepo) MetricsBySource(ctx context.Context, source string) ([]analytics.SourceOpenRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.customer_id, c.customer_name, m.source, m.open_count, m.last_opened_at
		FROM source_metrics m
		JOIN customers c ON c.id = m.customer_id
		WHERE m.source = $1
		ORDER BY m.open_count DESC
	`, source)
	if err != nil {
		return nil, fmt.Errorf("metrics by source: %w", err)
	}
	defer rows.Close()
	return scanOpenRows(rows)
}

func scanOpenRows(rows *sql.Rows) ([]analytics.SourceOpenRow, error) {
	var out []analytics.SourceOpenRow
	for rows.Next() {
		var row analytics.SourceOpenRow
		if err := rows.Scan(&row.CustomerID, &row.CustomerName, &row.Source, &row.OpenCount, &row.LastOpenedAt); err != nil {
			return nil, fmt.Errorf("scan open row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) SourceTotals(ctx context.Context) ([]analytics.SourceTotals, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source, COALESCE(SUM(open_count), 0), COUNT(*)
		FROM source_metrics
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("source totals: %w", err)
	}
	defer rows.Close()

	var out []analytics.SourceTotals
	for rows.Next() {
		var s analytics.SourceTotals
		if err := rows.Scan(&s.Source, &s.TotalOpens, &s.UniqueCustomers); err != nil {
			return nil, fmt.Errorf("scan source totals: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) CustomerEvents(ctx context.Context, customerID int64) ([]analytics.TimelineEvent, error) {
	// One UNION keeps the timeline a single round trip. Engagement
	// events (opened, read) are rows only when their timestamp is set.
	rows, err := r.db.QueryContext(ctx, `
		SELECT 'email', 'sent', sent_at, status FROM service_emails WHERE customer_id = $1
		UNION ALL
		SELECT 'email', 'opened', seen_at, '' FROM service_emails WHERE customer_id = $1 AND seen_at IS NOT NULL
		UNION ALL
		SELECT 'sms', 'sent', sent_at, status FROM sms_messages WHERE customer_id = $1
		UNION ALL
		SELECT 'whatsapp', 'sent', sent_at, status FROM whatsapp_messages WHERE customer_id = $1
		UNION ALL
		SELECT 'whatsapp', 'read', read_at, '' FROM whatsapp_messages WHERE customer_id = $1 AND read_at IS NOT NULL
		ORDER BY 3 DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("customer events: %w", err)
	}
	defer rows.Close()

	var out []analytics.TimelineEvent
	for rows.Next() {
		var e analytics.TimelineEvent
		if err := rows.Scan(&e.Channel, &e.Kind, &e.At, &e.Status); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepo) CustomerMetrics(ctx context.Context, customerID int64) ([]domain.SourceMetric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id, source, open_count, first_opened_at, last_opened_at
		FROM source_metrics
		WHERE customer_id = $1
		ORDER BY source
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("customer metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceMetric
	for rows.Next() {
		var m domain.SourceMetric
		if err := rows.Scan(&m.CustomerID, &m.Source, &m.OpenCount, &m.FirstOpenedAt, &m.LastOpenedAt); err != nil {
			return nil, fmt.Errorf("scan customer metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
