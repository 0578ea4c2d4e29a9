package payment

import (
	"context"
	"time"
)

// Event is a recorded webhook delivery. Deliveries are persisted before the
// order transition is attempted, so a captured charge whose order row is not
// yet visible is never silently dropped: it stays unapplied until a retry or
// the reconcile sweep picks it up.
type Event struct {
	ID            int64
	TxRef         string
	TransactionID int64
	Status        string
	Applied       bool
	ReceivedAt    time.Time
}

// EventRepository persists webhook deliveries and their application state.
type EventRepository interface {
	Record(ctx context.Context, ev *Event) error
	MarkApplied(ctx context.Context, id int64) error
	ListUnapplied(ctx context.Context) ([]Event, error)
}
