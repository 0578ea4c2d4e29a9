package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/savourly/orderflow/internal/domain/food"
)

var _ food.Repository = (*FoodRepository)(nil)

// FoodRepository implements food.Repository backed by PostgreSQL.
type FoodRepository struct {
	pool *pgxpool.Pool
}

// NewFoodRepository returns a FoodRepository that uses the given pool.
func NewFoodRepository(pool *pgxpool.Pool) *FoodRepository {
	return &FoodRepository{pool: pool}
}

const foodColumns = `id, name, price, category, image, description, available`

// List returns every available food on the menu.
func (r *FoodRepository) List(ctx context.Context) ([]food.Food, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+foodColumns+` FROM foods WHERE available ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("listing foods: %w", err)
	}
	defer rows.Close()

	return scanFoods(rows)
}

// GetByID returns a single food by ID. Returns food.ErrNotFound when no row
// matches.
func (r *FoodRepository) GetByID(ctx context.Context, id string) (*food.Food, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+foodColumns+` FROM foods WHERE id = $1`, id)

	f, err := scanFood(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, food.ErrNotFound
		}
		return nil, fmt.Errorf("finding food %q: %w", id, err)
	}
	return f, nil
}

// GetByIDs returns the foods matching the given IDs in a single query.
// Missing IDs are simply absent from the result; callers detect them.
func (r *FoodRepository) GetByIDs(ctx context.Context, ids []string) ([]food.Food, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+foodColumns+` FROM foods WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching foods: %w", err)
	}
	defer rows.Close()

	return scanFoods(rows)
}

// Upsert inserts a food or updates an existing one by ID. Used by the seed
// and catalog ingest commands.
func (r *FoodRepository) Upsert(ctx context.Context, f food.Food) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO foods (id, name, price, category, image, description, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			image = EXCLUDED.image,
			description = EXCLUDED.description,
			available = EXCLUDED.available`,
		f.ID, f.Name, f.Price, f.Category, f.Image, f.Description, f.Available,
	)
	if err != nil {
		return fmt.Errorf("upserting food %q: %w", f.ID, err)
	}
	return nil
}

func scanFoods(rows pgx.Rows) ([]food.Food, error) {
	var out []food.Food
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning food: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func scanFood(row pgx.Row) (*food.Food, error) {
	var f food.Food
	err := row.Scan(&f.ID, &f.Name, &f.Price, &f.Category, &f.Image, &f.Description, &f.Available)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
