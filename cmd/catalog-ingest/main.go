// Command catalog-ingest imports menu catalogs from gzipped CSV exports.
// Multiple export files may overlap (one per POS terminal); rows are
// deduplicated by food ID across all files before being upserted.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/savourly/orderflow/internal/domain/food"
	"github.com/savourly/orderflow/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	numFields     = 6
	progressEvery = 10_000
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog CSV exports (*.csv.gz)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.csv.gz files found in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return ingest(ctx, postgres.NewFoodRepository(pool), files)
}

// ingest streams all export files concurrently into a single writer that
// deduplicates rows and upserts them.
func ingest(ctx context.Context, repo *postgres.FoodRepository, files []string) error {
	rows := make(chan food.Food, 256)

	g, ctx := errgroup.WithContext(ctx)

	// Readers: one goroutine per file.
	readers, readerCtx := errgroup.WithContext(ctx)
	for _, f := range files {
		readers.Go(streamCatalogFile(readerCtx, f, rows))
	}
	g.Go(func() error {
		defer close(rows)
		return readers.Wait()
	})

	// Writer: dedupe with a bloom filter and upsert. The filter has false
	// positives, so a positive is double-checked against an exact set before
	// a row is skipped.
	g.Go(func() error {
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		exact := make(map[string]struct{})
		var written, skipped uint64

		for f := range rows {
			if seen.TestString(f.ID) {
				if _, dup := exact[f.ID]; dup {
					skipped++
					continue
				}
			}
			seen.AddString(f.ID)
			exact[f.ID] = struct{}{}

			if err := repo.Upsert(ctx, f); err != nil {
				return errors.Wrapf(err, "upsert food %s", f.ID)
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("ingest progress", slog.Uint64("written", written), slog.Uint64("skipped", skipped))
			}
		}

		slog.Info("ingest complete", slog.Uint64("written", written), slog.Uint64("skipped", skipped))
		return nil
	})

	return g.Wait()
}

// streamCatalogFile parses one gzipped CSV export and sends its rows.
// Format: id,name,price,category,image,description. Malformed lines are
// logged and skipped.
func streamCatalogFile(ctx context.Context, path string, out chan<- food.Food) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			line := scanner.Text()
			if line == "" || strings.HasPrefix(line, "id,") {
				continue
			}

			row, err := parseCatalogLine(line)
			if err != nil {
				slog.Warn("skipping malformed line",
					slog.String("file", filepath.Base(path)),
					slog.String("error", err.Error()),
				)
				continue
			}

			select {
			case out <- row:
			case <-ctx.Done():
				return ctx.Err()
			}
			count++
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("file complete", slog.String("file", filepath.Base(path)), slog.Uint64("rows", count))
		return nil
	}
}

func parseCatalogLine(line string) (food.Food, error) {
	parts := strings.SplitN(line, ",", numFields)
	if len(parts) != numFields {
		return food.Food{}, errors.Errorf("expected %d fields, got %d", numFields, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" || parts[1] == "" {
		return food.Food{}, errors.New("missing id or name")
	}

	price, err := decimal.NewFromString(parts[2])
	if err != nil {
		return food.Food{}, errors.Wrapf(err, "parse price %q", parts[2])
	}
	if price.IsNegative() {
		return food.Food{}, errors.Errorf("negative price %s", parts[2])
	}

	return food.Food{
		ID:          parts[0],
		Name:        parts[1],
		Price:       price,
		Category:    parts[3],
		Image:       parts[4],
		Description: parts[5],
		Available:   true,
	}, nil
}
