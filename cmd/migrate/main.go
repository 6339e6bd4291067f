package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	host := getenv("POSTGRES_HOST", "localhost")
	port := getenv("POSTGRES_PORT", "5432")
	user := getenv("POSTGRES_USER", "jobs")
	pass := getenv("POSTGRES_PASSWORD", "jobs")
	dbname := getenv("POSTGRES_DB", "jobs")
	ssl := getenv("POSTGRES_SSLMODE", "disable")
	dir := getenv("MIGRATIONS_DIR", "store/postgres/migrations")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, pass, host, port, dbname, ssl)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer conn.Close(ctx)

	if err := runMigrations(ctx, conn, dir, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	logger.Info("migrations done")
}

func runMigrations(ctx context.Context, conn *pgx.Conn, dir string, logger *zap.Logger) error {
	_, err := conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  filename text PRIMARY KEY,
  checksum text NOT NULL,
  applied_at timestamptz NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk migrations: %w", err)
	}
	if len(files) == 0 {
		logger.Info("no migration files found, nothing to do", zap.String("dir", dir))
		return nil
	}
	sort.Strings(files)

	applied := map[string]string{}
	rows, err := conn.Query(ctx, `SELECT filename, checksum FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var fn, sum string
		if err := rows.Scan(&fn, &sum); err != nil {
			return fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[fn] = sum
	}
	rows.Close()

	for _, f := range files {
		sqlBytes, rerr := os.ReadFile(f)
		if rerr != nil {
			return fmt.Errorf("read %s: %w", f, rerr)
		}
		sum := sha256.Sum256(sqlBytes)
		sumHex := hex.EncodeToString(sum[:])

		if prev, ok := applied[f]; ok {
			if prev != sumHex {
				return fmt.Errorf("migration %s already applied with different checksum (got %s, have %s)", f, sumHex, prev)
			}
			logger.Info("already applied", zap.String("file", f))
			continue
		}

		logger.Info("applying", zap.String("file", f))
		start := time.Now()
		if _, err := conn.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
		if _, err := conn.Exec(ctx, `INSERT INTO schema_migrations (filename, checksum) VALUES ($1,$2)`, f, sumHex); err != nil {
			return fmt.Errorf("record %s: %w", f, err)
		}
		logger.Info("applied", zap.String("file", f),
			zap.Duration("took", time.Since(start).Round(time.Millisecond)))
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
