// Package profile persists user profile data the storefront touches
// during checkout. Today that is only the default shipping address.
package profile

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ahmedbennaya/fini-storefront/internal/order/domain"
)

type AddressRepository interface {
	UpsertDefaultAddress(ctx context.Context, userID string, address domain.Address) error
	GetDefaultAddress(ctx context.Context, userID string) (*domain.Address, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UpsertDefaultAddress(ctx context.Context, userID string, address domain.Address) error {
	query := `INSERT INTO addresses (user_id, full_name, line1, line2, city, postal_code, country, phone, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	          ON CONFLICT (user_id) DO UPDATE SET
	            full_name = EXCLUDED.full_name,
	            line1 = EXCLUDED.line1,
	            line2 = EXCLUDED.line2,
	            city = EXCLUDED.city,
	            postal_code = EXCLUDED.postal_code,
	            country = EXCLUDED.country,
	            phone = EXCLUDED.phone,
	            updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		userID,
		address.FullName,
		address.Line1,
		address.Line2,
		address.City,
		address.PostalCode,
		address.Country,
		address.Phone)
	if err != nil {
		return fmt.Errorf("upsert default address: %w", err)
	}
	return nil
}

func (r *Repository) GetDefaultAddress(ctx context.Context, userID string) (*domain.Address, error) {
	query := `SELECT full_name, line1, line2, city, postal_code, country, phone
	          FROM addresses WHERE user_id = $1`

	var addr domain.Address
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&addr.FullName,
		&addr.Line1,
		&addr.Line2,
		&addr.City,
		&addr.PostalCode,
		&addr.Country,
		&addr.Phone,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query default address: %w", err)
	}
	return &addr, nil
}
