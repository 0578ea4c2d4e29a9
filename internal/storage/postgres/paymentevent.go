package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/savourly/orderflow/internal/payment"
)

var _ payment.EventRepository = (*PaymentEventRepository)(nil)

// PaymentEventRepository records webhook deliveries backed by PostgreSQL.
type PaymentEventRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentEventRepository returns a PaymentEventRepository that uses the
// given pool.
func NewPaymentEventRepository(pool *pgxpool.Pool) *PaymentEventRepository {
	return &PaymentEventRepository{pool: pool}
}

// Record persists a delivery and fills in its assigned id and timestamp.
func (r *PaymentEventRepository) Record(ctx context.Context, ev *payment.Event) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payment_events (tx_ref, transaction_id, status, applied)
		VALUES ($1, $2, $3, $4)
		RETURNING id, received_at`,
		ev.TxRef, ev.TransactionID, ev.Status, ev.Applied,
	).Scan(&ev.ID, &ev.ReceivedAt)
	if err != nil {
		return fmt.Errorf("recording payment event %q: %w", ev.TxRef, err)
	}
	return nil
}

// MarkApplied flags a delivery as applied to its order.
func (r *PaymentEventRepository) MarkApplied(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payment_events SET applied = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marking payment event %d applied: %w", id, err)
	}
	return nil
}

// ListUnapplied returns deliveries whose order transition has not happened
// yet, oldest first.
func (r *PaymentEventRepository) ListUnapplied(ctx context.Context) ([]payment.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tx_ref, transaction_id, status, applied, received_at
		FROM payment_events
		WHERE NOT applied
		ORDER BY received_at`)
	if err != nil {
		return nil, fmt.Errorf("listing unapplied payment events: %w", err)
	}
	defer rows.Close()

	var out []payment.Event
	for rows.Next() {
		var ev payment.Event
		if err := rows.Scan(&ev.ID, &ev.TxRef, &ev.TransactionID, &ev.Status, &ev.Applied, &ev.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scanning payment event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
