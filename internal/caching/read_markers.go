package caching

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ReadMarkerStore remembers which notification ids a user has read.
// Markers are advisory; losing them only resurfaces notifications as unread.
type ReadMarkerStore interface {
	ReadSet(ctx context.Context, userID uuid.UUID) (map[string]bool, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids ...string) error
}

type redisReadMarkers struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReadMarkers keeps one Redis set per user. The set expires ttl after its
// last write so markers for long-gone notifications do not pile up.
func NewRedisReadMarkers(client *redis.Client, ttl time.Duration) ReadMarkerStore {
	return &redisReadMarkers{client: client, ttl: ttl}
}

func readKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:read:%s", keyPrefix, userID.String())
}

func (r *redisReadMarkers) ReadSet(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	members, err := r.client.SMembers(ctx, readKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set, nil
}

func (r *redisReadMarkers) MarkRead(ctx context.Context, userID uuid.UUID, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	key := readKey(userID)
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

type memoryReadMarkers struct {
	mu   sync.RWMutex
	read map[uuid.UUID]map[string]bool
}

func NewMemoryReadMarkers() ReadMarkerStore {
	return &memoryReadMarkers{read: make(map[uuid.UUID]map[string]bool)}
}

func (m *memoryReadMarkers) ReadSet(_ context.Context, userID uuid.UUID) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]bool, len(m.read[userID]))
	for id := range m.read[userID] {
		out[id] = true
	}
	return out, nil
}

func (m *memoryReadMarkers) MarkRead(_ context.Context, userID uuid.UUID, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.read[userID]
	if !ok {
		set = make(map[string]bool)
		m.read[userID] = set
	}
	for _, id := range ids {
		set[id] = true
	}
	return nil
}
