// statusdump prints a job run's status history as wire documents, one
// JSON document per line, newest first. Intended for operators
// debugging a run: the derived startTime/duration fields make clock
// skew and stuck jobs visible at a glance.
//
// With -latest only the newest record is printed, read from the Redis
// cache when it holds the run and from Postgres otherwise (warming the
// cache on the way out).
//
// Job types are supplied as name=lock pairs so deserialization can
// resolve them; the supervisor type is always available.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/flowmetal/jobstatus"
	"github.com/flowmetal/jobstatus/jobtype"
	"github.com/flowmetal/jobstatus/store/postgres"
	"github.com/flowmetal/jobstatus/store/redisx"
)

func main() {
	jobFlag := flag.String("job", "", "job id (uuid)")
	limitFlag := flag.Int("limit", 50, "max records to print")
	latestFlag := flag.Bool("latest", false, "print only the newest record, via the redis cache")
	typesFlag := flag.String("types", "", "known job types, comma-separated name=lock pairs")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	jobID, err := uuid.Parse(*jobFlag)
	if err != nil {
		logger.Fatal("invalid -job id", zap.String("job", *jobFlag), zap.Error(err))
	}
	types, err := parseTypes(*typesFlag)
	if err != nil {
		logger.Fatal("invalid -types", zap.Error(err))
	}
	reg := jobtype.NewRegistry(types...)

	host := getenv("POSTGRES_HOST", "localhost")
	port := getenv("POSTGRES_PORT", "5432")
	user := getenv("POSTGRES_USER", "jobs")
	pass := getenv("POSTGRES_PASSWORD", "jobs")
	dbname := getenv("POSTGRES_DB", "jobs")
	ssl := getenv("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, pass, host, port, dbname, ssl)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Fatal("open postgres", zap.Error(err))
	}
	defer db.Close()

	store := postgres.NewStore(db, reg)
	ctx := context.Background()

	if *latestFlag {
		if err := dumpLatest(ctx, store, reg, jobID, logger); err != nil {
			logger.Fatal("dump latest record", zap.String("job", jobID.String()), zap.Error(err))
		}
		return
	}

	records, err := store.ListForJob(ctx, jobID, *limitFlag)
	if err != nil {
		logger.Fatal("list status records", zap.String("job", jobID.String()), zap.Error(err))
	}
	for _, st := range records {
		if err := printDoc(st); err != nil {
			logger.Fatal("serialize status record", zap.Error(err))
		}
	}
}

// dumpLatest prefers the cache and falls back to the history table,
// warming the cache after a miss.
func dumpLatest(ctx context.Context, store *postgres.Store, reg jobtype.Registry, jobID uuid.UUID, logger *zap.Logger) error {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := redisx.Dial(dialCtx, redisx.FromEnv())
	if err != nil {
		return fmt.Errorf("dial redis: %w", err)
	}
	defer rdb.Close()
	cache := redisx.NewLatestCache(rdb, reg, 10*time.Minute)

	st, err := cache.Get(ctx, jobID)
	if err == nil {
		return printDoc(st)
	}
	if !errors.Is(err, redisx.ErrNotFound) {
		return fmt.Errorf("cache get: %w", err)
	}

	latest, err := store.Latest(ctx, jobID)
	if err != nil {
		return err
	}
	if err := cache.Put(ctx, *latest); err != nil {
		logger.Warn("warm cache", zap.Error(err))
	}
	return printDoc(*latest)
}

func printDoc(st jobstatus.JobStatus) error {
	doc, err := jobstatus.Serialize(st)
	if err != nil {
		return err
	}
	fmt.Println(string(doc))
	return nil
}

func parseTypes(s string) ([]jobtype.JobType, error) {
	if s == "" {
		return nil, nil
	}
	var out []jobtype.JobType
	for _, pair := range strings.Split(s, ",") {
		name, lock, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad type pair %q, want name=lock", pair)
		}
		out = append(out, jobtype.JobType{Name: name, Lock: jobtype.LockType(lock)})
	}
	return out, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
