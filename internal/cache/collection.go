package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/config"
	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const collectionKeyPrefix = "reports:collection"

// Collection is a fetched backend list as cached.
type Collection struct {
	Items []domain.Row `json:"items"`
	Total int          `json:"total"`
}

// CollectionKey identifies one fetch. Every field that changes the backend
// query is part of it, as is the session.
type CollectionKey struct {
	SessionID  string
	Report     string
	DivisionID string
	Filter     *domain.Filter
	Page       int
	Limit      int
}

type CollectionCache interface {
	Get(ctx context.Context, key CollectionKey) (*Collection, bool, error)
	Set(ctx context.Context, key CollectionKey, c *Collection) error
	// InvalidateReport drops every cached collection of a report, across sessions.
	InvalidateReport(ctx context.Context, report string) error
}

type redisCollectionCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopCollectionCache struct{}

func NewCollectionCache(cfg config.CacheConfig) (CollectionCache, error) {
	if !cfg.Enabled {
		return &noopCollectionCache{}, nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisCollectionCache(client, collectionTTL(cfg)), nil
}

func NewRedisCollectionCache(client *redis.Client, ttl time.Duration) CollectionCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisCollectionCache{client: client, ttl: ttl}
}

func NewNoopCollectionCache() CollectionCache {
	return &noopCollectionCache{}
}

func (c *redisCollectionCache) Get(ctx context.Context, key CollectionKey) (*Collection, bool, error) {
	payload, err := c.client.Get(ctx, buildCollectionKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var collection Collection
	if err := json.Unmarshal(payload, &collection); err != nil {
		return nil, false, fmt.Errorf("decode collection cache: %w", err)
	}

	return &collection, true, nil
}

func (c *redisCollectionCache) Set(ctx context.Context, key CollectionKey, collection *Collection) error {
	payload, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("encode collection cache: %w", err)
	}

	if err := c.client.Set(ctx, buildCollectionKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisCollectionCache) InvalidateReport(ctx context.Context, report string) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix(report), scanBatchSize)
}

func (n *noopCollectionCache) Get(ctx context.Context, key CollectionKey) (*Collection, bool, error) {
	return nil, false, nil
}

func (n *noopCollectionCache) Set(ctx context.Context, key CollectionKey, c *Collection) error {
	return nil
}

func (n *noopCollectionCache) InvalidateReport(ctx context.Context, report string) error {
	return nil
}

func reportKeyPrefix(report string) string {
	return fmt.Sprintf("%s:%s:", collectionKeyPrefix, report)
}

func buildCollectionKey(key CollectionKey) string {
	parts := []string{
		"session=" + key.SessionID,
		"division=" + key.DivisionID,
		"page=" + strconv.Itoa(key.Page),
		"limit=" + strconv.Itoa(key.Limit),
	}

	if f := key.Filter; f != nil {
		if f.FromDate != nil {
			parts = append(parts, "from="+f.FromDate.Format("2006-01-02"))
		}
		if f.ToDate != nil {
			parts = append(parts, "to="+f.ToDate.Format("2006-01-02"))
		}
		if f.EntityID != "" {
			parts = append(parts, "entity="+f.EntityID)
		}
		if f.Search != "" {
			parts = append(parts, "search="+f.Search)
		}

		extraKeys := make([]string, 0, len(f.Extra))
		for k := range f.Extra {
			extraKeys = append(extraKeys, k)
		}
		sort.Strings(extraKeys)
		for _, k := range extraKeys {
			parts = append(parts, k+"="+f.Extra[k])
		}
	}

	raw := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(raw))
	return reportKeyPrefix(key.Report) + hex.EncodeToString(hash[:])
}
