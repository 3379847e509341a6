package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/drivelane/service-crm/internal/domain"
	"github.com/drivelane/service-crm/internal/service/dispatch"
)

// InsightRepo reads generated service-insight bundles. The insights_json
// column holds the structured bundle as JSONB.
type InsightRepo struct{ db *sql.DB }

// NewInsightRepo creates a Postgres-backed insight reader.
func NewInsightRepo(db *sql.DB) *InsightRepo { return &InsightRepo{db: db} }

func (r *InsightRepo) GetInsight(ctx context.Context, id int64) (*domain.ServiceInsight, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, insights_json, generated_at
		FROM service_insights
		WHERE id = $1
	`, id))
}

func (r *InsightRepo) LatestInsightForCustomer(ctx context.Context, customerID int64) (*domain.ServiceInsight, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, insights_json, generated_at
		FROM service_insights
		WHERE customer_id = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`, customerID))
}

func (r *InsightRepo) scanOne(row *sql.Row) (*domain.ServiceInsight, error) {
	in := &domain.ServiceInsight{}
	var raw []byte
	err := row.Scan(&in.ID, &in.CustomerID, &raw, &in.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, dispatch.ErrInsightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get insight: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in.Insights); err != nil {
			return nil, fmt.Errorf("decode insight bundle %d: %w", in.ID, err)
		}
	}
	return in, nil
}
