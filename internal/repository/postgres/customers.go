package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/drivelane/service-crm/internal/domain"
	"github.com/drivelane/service-crm/internal/service/dispatch"
)

// CustomerRepo reads customer records. The notification core never
// writes this table; it belongs to the wider CRM.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer reader.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_name, COALESCE(phone,''), COALESCE(alternate_phone,''),
		       COALESCE(email,''), COALESCE(vehicle_make,''), COALESCE(vehicle_model,''),
		       COALESCE(vehicle_year,0), COALESCE(vehicle_number,''), COALESCE(total_mileage,0)
		FROM customers
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Name, &c.Phone, &c.AlternatePhone,
		&c.Email, &c.VehicleMake, &c.VehicleModel,
		&c.VehicleYear, &c.VehicleNumber, &c.TotalMileage,
	)
	if err == sql.ErrNoRows {
		return nil, dispatch.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *CustomerRepo) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("customer exists: %w", err)
	}
	return exists, nil
}
