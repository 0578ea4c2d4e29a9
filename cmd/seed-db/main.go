// Command seed-db loads the menu from a JSON file and provisions a staff API
// token. It is idempotent: rerunning upserts the same rows.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/savourly/orderflow/internal/domain/auth"
	"github.com/savourly/orderflow/internal/domain/food"
	"github.com/savourly/orderflow/internal/storage/postgres"
)

type foodJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Available   *bool           `json:"available"`
}

func main() {
	var (
		databaseURL  string
		foodsFile    string
		staffToken   string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&foodsFile, "foods-file", "db/seed/foods.json", "path to menu JSON file")
	flag.StringVar(&staffToken, "staff-token", "", "staff API token to seed (or FLOW_SEED_STAFF_TOKEN env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for token hashing (or FLOW_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if staffToken == "" {
		staffToken = os.Getenv("FLOW_SEED_STAFF_TOKEN")
	}
	if staffToken == "" {
		slog.Error("staff token is required: set --staff-token or FLOW_SEED_STAFF_TOKEN")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("FLOW_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, foodsFile, staffToken, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, foodsFile, staffToken, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedFoods(ctx, postgres.NewFoodRepository(pool), foodsFile); err != nil {
		return errors.Wrap(err, "seed foods")
	}

	if err := seedStaffToken(ctx, postgres.NewAPIKeyRepository(pool), staffToken, pepper); err != nil {
		return errors.Wrap(err, "seed staff token")
	}

	return nil
}

func seedFoods(ctx context.Context, repo *postgres.FoodRepository, foodsFile string) error {
	slog.Info("reading menu file", slog.String("path", foodsFile))

	data, err := os.ReadFile(foodsFile)
	if err != nil {
		return errors.Wrap(err, "read menu file")
	}

	var foods []foodJSON
	if err := json.Unmarshal(data, &foods); err != nil {
		return errors.Wrap(err, "parse menu JSON")
	}

	slog.Info("upserting foods", slog.Int("count", len(foods)))

	for _, f := range foods {
		available := true
		if f.Available != nil {
			available = *f.Available
		}
		if err := repo.Upsert(ctx, food.Food{
			ID:          f.ID,
			Name:        f.Name,
			Price:       f.Price,
			Category:    f.Category,
			Image:       f.Image,
			Description: f.Description,
			Available:   available,
		}); err != nil {
			return errors.Wrapf(err, "upsert food %s", f.ID)
		}

		slog.Info("upserted food", slog.String("id", f.ID), slog.String("name", f.Name))
	}

	return nil
}

func seedStaffToken(ctx context.Context, repo *postgres.APIKeyRepository, token, pepper string) error {
	slog.Info("seeding staff API token")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(token))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if err := repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "staff",
		KeyHash: keyHash,
		Name:    "Restaurant staff token",
		Scopes:  []string{"update_payment", "create_order"},
	}, true); err != nil {
		return errors.Wrap(err, "upsert staff token")
	}

	slog.Info("upserted staff token", slog.String("id", "staff"))

	return nil
}
