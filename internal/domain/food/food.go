package food

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested food does not exist.
var ErrNotFound = errors.New("food not found")

// Food represents a menu item available for ordering.
type Food struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Category    string
	Image       string
	Description string
	Available   bool
}

// Repository defines read operations for the food catalog.
type Repository interface {
	List(ctx context.Context) ([]Food, error)
	GetByID(ctx context.Context, id string) (*Food, error)
	GetByIDs(ctx context.Context, ids []string) ([]Food, error)
}
