package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karabomaleka/tshwanebus/internal/pkg/config"
)

const migrationsDir = "migrations"

func main() {
	cfg, err := config.Load("tshwanebus-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := apply(ctx, pool); err != nil {
		log.Fatal(err)
	}
}

// apply runs every .sql file in migrationsDir, in lexical order, skipping
// files already recorded in schema_migrations.
func apply(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename    TEXT PRIMARY KEY,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	applied := 0
	for _, f := range files {
		name := filepath.Base(f)

		var done bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)`, name).Scan(&done)
		if err != nil {
			return err
		}
		if done {
			log.Printf("skip %s (already applied)", name)
			continue
		}

		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", name, err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
			return err
		}

		log.Printf("applied %s", name)
		applied++
	}

	log.Printf("done, %d new migration(s)", applied)
	return nil
}
