package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists session snapshots under fixed field keys.
type Store interface {
	Load(ctx context.Context, id string) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
	Delete(ctx context.Context, id string) error
}

type memoryStore struct {
	mu    sync.RWMutex
	items map[string]map[string]string
}

func NewMemoryStore() Store {
	return &memoryStore{items: make(map[string]map[string]string)}
}

func (m *memoryStore) Load(ctx context.Context, id string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.items[id]
	if !ok {
		return Snapshot{}, false, nil
	}
	return decodeFields(id, fields), true, nil
}

func (m *memoryStore) Save(ctx context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[snap.ID] = encodeFields(snap)
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore keeps each session in a redis hash at "<prefix>:<id>".
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) Store {
	if prefix == "" {
		prefix = "session"
	}
	return &redisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *redisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", r.prefix, id)
}

func (r *redisStore) Load(ctx context.Context, id string) (Snapshot, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(fields) == 0 {
		return Snapshot{}, false, nil
	}
	return decodeFields(id, fields), true, nil
}

func (r *redisStore) Save(ctx context.Context, snap Snapshot) error {
	key := r.key(snap.ID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	values := make(map[string]interface{})
	for field, value := range encodeFields(snap) {
		values[field] = value
	}
	pipe.HSet(ctx, key, values)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session failed: %w", err)
	}
	return nil
}

func (r *redisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func encodeFields(snap Snapshot) map[string]string {
	fields := map[string]string{
		keyVersion: strconv.FormatUint(snap.Version, 10),
	}
	if snap.AccessToken != "" {
		fields[KeyAccessToken] = snap.AccessToken
	}
	if snap.RefreshToken != "" {
		fields[KeyRefreshToken] = snap.RefreshToken
	}
	if snap.DivisionID != "" {
		fields[KeyDivisionID] = snap.DivisionID
		fields[KeyDivisionName] = snap.DivisionName
	}
	return fields
}

func decodeFields(id string, fields map[string]string) Snapshot {
	version, _ := strconv.ParseUint(fields[keyVersion], 10, 64)
	return Snapshot{
		ID:           id,
		AccessToken:  fields[KeyAccessToken],
		RefreshToken: fields[KeyRefreshToken],
		DivisionID:   fields[KeyDivisionID],
		DivisionName: fields[KeyDivisionName],
		Version:      version,
	}
}
