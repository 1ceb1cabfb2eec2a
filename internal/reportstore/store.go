// Package reportstore persists graded reports in Redis and publishes
// grading events to a Redis stream.
//
// Reports are stored as JSON under grading:report:<competition>:<id> in the
// ToDict wire shape. Each competition keeps a sorted-set index scored by
// creation time so listings come back newest first.
package reportstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-grader/internal/domain"
)

const (
	// Redis connection defaults.
	defaultPoolSize   = 10
	connectionTimeout = 5 * time.Second

	reportKeyPrefix = "grading:report:"
	indexKeyPrefix  = "grading:index:"
)

// ErrNotFound indicates a missing or expired report.
var ErrNotFound = errors.New("report not found")

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient opens a pooled Redis client and verifies it with a PING.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: defaultPoolSize,
	})

	timeoutCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := client.Ping(timeoutCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Store saves and loads reports. It is safe for concurrent use.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Store. A ttl of zero keeps reports forever.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "reportstore"),
	}
}

// Key returns the storage key of a report. The key depends only on the
// report's competition, submission path and creation time, so saving the
// same report twice overwrites rather than duplicates it.
func Key(report domain.Report) string {
	base := report.Base()
	h := sha256.New()
	h.Write([]byte(base.SubmissionPath))
	h.Write([]byte{0})
	h.Write([]byte(base.CreatedAt.UTC().Format(time.RFC3339Nano)))
	return reportKeyPrefix + base.CompetitionID + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

func indexKey(competitionID string) string { return indexKeyPrefix + competitionID }

// Save writes the report and indexes it under its competition.
func (s *Store) Save(ctx context.Context, report domain.Report) (string, error) {
	payload, err := domain.EncodeReportJSON(report)
	if err != nil {
		return "", err
	}

	base := report.Base()
	key := Key(report)
	idx := indexKey(base.CompetitionID)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, s.ttl)
		pipe.ZAdd(ctx, idx, redis.Z{Score: float64(base.CreatedAt.UnixMicro()), Member: key})
		if s.ttl > 0 {
			pipe.Expire(ctx, idx, s.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to save report %s: %w", key, err)
	}

	s.logger.Debug("report saved", "key", key, "kind", report.Kind())
	return key, nil
}

// Get loads a report by key.
func (s *Store) Get(ctx context.Context, key string) (domain.Report, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", key, err)
	}
	return domain.DecodeReportJSON(raw)
}

// List returns up to limit reports of a competition, newest first. A limit
// of zero or less returns all of them. Index entries whose report has
// expired are pruned.
func (s *Store) List(ctx context.Context, competitionID string, limit int64) ([]domain.Report, error) {
	idx := indexKey(competitionID)

	stop := int64(-1)
	if limit > 0 {
		stop = limit - 1
	}
	keys, err := s.client.ZRevRange(ctx, idx, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", idx, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}

	reports := make([]domain.Report, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		report, err := domain.DecodeReportJSON([]byte(raw))
		if err != nil {
			s.logger.Warn("skipping undecodable report", "key", keys[i], "error", err)
			continue
		}
		reports = append(reports, report)
	}

	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, idx, stale...).Err(); err != nil {
			s.logger.Warn("failed to prune expired index entries", "index", idx, "error", err)
		}
	}
	return reports, nil
}
