package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"dairy-matrix/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	historicKeyPrefix = "dairy:historic:"
	historicWeeksKey  = "dairy:historic-weeks"
)

// cachedRepository serves historical reads from redis and falls through to
// the wrapped repository on a miss. Redis failures never fail a request.
type cachedRepository struct {
	DairyRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRepository wraps next with a redis read-through cache for the
// historical table
func NewCachedRepository(next DairyRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) DairyRepository {
	return &cachedRepository{
		DairyRepository: next,
		client:          client,
		ttl:             ttl,
		logger:          logger,
	}
}

func historicKey(establishment string) string {
	return historicKeyPrefix + establishment
}

// HistoricalRecords returns the cached weeks of establishment
func (c *cachedRepository) HistoricalRecords(ctx context.Context, establishment string) ([]model.HistoricalRecord, error) {
	key := historicKey(establishment)
	var records []model.HistoricalRecord
	if c.get(ctx, key, &records) {
		return records, nil
	}

	records, err := c.DairyRepository.HistoricalRecords(ctx, establishment)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, records)
	return records, nil
}

// HistoricWeeks returns the cached week summary
func (c *cachedRepository) HistoricWeeks(ctx context.Context) ([]HistoricWeek, error) {
	var weeks []HistoricWeek
	if c.get(ctx, historicWeeksKey, &weeks) {
		return weeks, nil
	}

	weeks, err := c.DairyRepository.HistoricWeeks(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, historicWeeksKey, weeks)
	return weeks, nil
}

// UpsertHistoricalRecords writes through and drops every key the records
// touch, including after a partial failure
func (c *cachedRepository) UpsertHistoricalRecords(ctx context.Context, records []model.HistoricalRecord, batchSize int) (int, error) {
	written, err := c.DairyRepository.UpsertHistoricalRecords(ctx, records, batchSize)

	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		if !seen[r.Establishment] {
			seen[r.Establishment] = true
			names = append(names, r.Establishment)
		}
	}
	sort.Strings(names)

	keys := []string{historicWeeksKey}
	for _, n := range names {
		keys = append(keys, historicKey(n))
	}
	if delErr := c.client.Del(ctx, keys...).Err(); delErr != nil {
		c.logger.Warn("cache invalidation failed", "keys", len(keys), "error", delErr)
	}

	return written, err
}

func (c *cachedRepository) get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *cachedRepository) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
