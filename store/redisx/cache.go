// Package redisx keeps the most recent status document of each job run
// in Redis so dashboards can read a job's current state without
// touching the history table.
package redisx

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flowmetal/jobstatus"
	"github.com/flowmetal/jobstatus/jobtype"
)

var ErrNotFound = errors.New("not found")

type Config struct {
	Addr     string
	Password string
	DB       int
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
}

// Dial connects and pings, retrying with exponential backoff until the
// server answers or ctx expires. Callers bound the wait via ctx.
func Dial(ctx context.Context, cfg Config) (*redis.Client, error) {
	const maxBackoff = 5 * time.Second
	backoff := 200 * time.Millisecond

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	for {
		if err := rdb.Ping(ctx).Err(); err == nil {
			return rdb, nil
		}
		select {
		case <-ctx.Done():
			rdb.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// LatestCache stores the serialized wire document of each job run's
// newest status record, keyed by job id.
type LatestCache struct {
	RDB   *redis.Client
	Types jobtype.Registry
	TTL   time.Duration
}

func NewLatestCache(rdb *redis.Client, types jobtype.Registry, ttl time.Duration) *LatestCache {
	return &LatestCache{RDB: rdb, Types: types, TTL: ttl}
}

func (c *LatestCache) Put(ctx context.Context, st jobstatus.JobStatus) error {
	doc, err := jobstatus.Serialize(st)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, latestKey(st.JobID), doc, c.TTL).Err()
}

func (c *LatestCache) Get(ctx context.Context, jobID uuid.UUID) (jobstatus.JobStatus, error) {
	raw, err := c.RDB.Get(ctx, latestKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return jobstatus.JobStatus{}, ErrNotFound
	}
	if err != nil {
		return jobstatus.JobStatus{}, err
	}
	return jobstatus.Deserialize(raw, c.Types)
}

func (c *LatestCache) Delete(ctx context.Context, jobID uuid.UUID) error {
	return c.RDB.Del(ctx, latestKey(jobID)).Err()
}

func latestKey(jobID uuid.UUID) string {
	return "jobstatus:latest:" + jobID.String()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
