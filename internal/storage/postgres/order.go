package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/savourly/orderflow/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// items are serialized to a JSONB column.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (
			id, reference, items, subtotal, delivery_fee, total,
			payment_method, payment_status, payment_tx_ref, status,
			contact_phone, delivery_location, full_address,
			customer_name, customer_email, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, o.Reference, itemsJSON, o.Subtotal, o.DeliveryFee, o.Total,
		o.PaymentMethod, o.PaymentStatus, o.PaymentTxRef, o.Status,
		o.ContactPhone, o.DeliveryLocation, o.FullAddress,
		o.CustomerName, o.CustomerEmail, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Reference, err)
	}
	return nil
}

const orderColumns = `
	id, reference, items, subtotal, delivery_fee, total,
	payment_method, payment_status, payment_tx_ref, status,
	contact_phone, delivery_location, full_address,
	customer_name, customer_email, created_at`

// GetByID returns an order by its internal id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetByReference returns an order by its public tracking reference.
func (r *OrderRepository) GetByReference(ctx context.Context, reference string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE reference = $1`, reference)
	return scanOrder(row)
}

// GetByTxRef returns an order by its payment gateway reference. Used when
// applying webhook deliveries.
func (r *OrderRepository) GetByTxRef(ctx context.Context, txRef string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE payment_tx_ref = $1`, txRef)
	return scanOrder(row)
}

// UpdatePaymentStatus transitions the payment status. The WHERE predicate
// guards monotonicity: a paid order is never rewritten, and transitioning an
// already-paid order to paid is a no-op rather than an error.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus, txID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = $2,
		    payment_tx_id = COALESCE(NULLIF($3, ''), payment_tx_id)
		WHERE id = $1 AND payment_status <> 'paid'`,
		id, status, txID,
	)
	if err != nil {
		return fmt.Errorf("updating payment status for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the order is already paid (fine) or it does not exist.
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking order %q: %w", id, err)
		}
		if !exists {
			return order.ErrNotFound
		}
	}
	return nil
}

// UpdateStatus sets the fulfillment status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating status for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.Reference, &itemsJSON, &o.Subtotal, &o.DeliveryFee, &o.Total,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaymentTxRef, &o.Status,
		&o.ContactPhone, &o.DeliveryLocation, &o.FullAddress,
		&o.CustomerName, &o.CustomerEmail, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("scanning order: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return &o, nil
}
