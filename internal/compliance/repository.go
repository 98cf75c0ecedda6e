// Package compliance provides the opt-out store and the fail-closed
// compliance gate consulted by every outbound-SMS path.
package compliance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides data access for opt-out records. The presence of a
// row is the single source of truth for whether a contact may be texted.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new opt-out repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert records an opt-out for (business, phone). Re-sending STOP is a no-op.
func (r *Repository) Upsert(ctx context.Context, businessID uuid.UUID, phone string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO opt_outs (business_id, phone_number)
		VALUES ($1, $2)
		ON CONFLICT (business_id, phone_number) DO NOTHING
	`, businessID, phone)
	return err
}

// Delete removes an opt-out (START keyword). Deleting a non-existent row is fine.
func (r *Repository) Delete(ctx context.Context, businessID uuid.UUID, phone string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM opt_outs WHERE business_id = $1 AND phone_number = $2
	`, businessID, phone)
	return err
}

// Exists reports whether an opt-out row exists for (business, phone).
func (r *Repository) Exists(ctx context.Context, businessID uuid.UUID, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM opt_outs WHERE business_id = $1 AND phone_number = $2
		)
	`, businessID, phone).Scan(&exists)
	return exists, err
}
