package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrSessionExists   = errors.New("session already exists")
)

// SnapshotStore keeps serialized sessions keyed by id with an idle TTL.
// Update runs fn against the current bytes and stores what it returns;
// concurrent updates of one key are applied one after another.
type SnapshotStore interface {
	Create(ctx context.Context, id string, data []byte) error
	Load(ctx context.Context, id string) ([]byte, error)
	Update(ctx context.Context, id string, fn func(current []byte) ([]byte, error)) error
	Delete(ctx context.Context, id string) error
}

// --- memory ---

type memEntry struct {
	data    []byte
	expires time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memEntry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
		}
	}
}

// Close stops the janitor.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// live returns the entry for id if present and not expired. Caller holds mu.
func (s *MemoryStore) live(id string) (*memEntry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if s.now().After(e.expires) {
		delete(s.entries, id)
		return nil, false
	}
	return e, true
}

func (s *MemoryStore) Create(ctx context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(id); ok {
		return ErrSessionExists
	}
	s.entries[id] = &memEntry{data: clone(data), expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.expires = s.now().Add(s.ttl)
	return clone(e.data), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func([]byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(id)
	if !ok {
		return ErrSessionNotFound
	}
	next, err := fn(clone(e.data))
	if err != nil {
		return err
	}
	e.data = clone(next)
	e.expires = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(id); !ok {
		return ErrSessionNotFound
	}
	delete(s.entries, id)
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

// --- redis ---

const maxUpdateRetries = 10

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore stores snapshots under "<prefix>:<id>".
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) Create(ctx context.Context, id string, data []byte) error {
	ok, err := s.client.SetNX(ctx, s.key(id), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis create %s: %w", id, err)
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) ([]byte, error) {
	key := s.key(id)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load %s: %w", id, err)
	}
	s.client.Expire(ctx, key, s.ttl)
	return data, nil
}

// Update is an optimistic WATCH/MULTI transaction, retried when another
// writer touched the key in between.
func (s *RedisStore) Update(ctx context.Context, id string, fn func([]byte) ([]byte, error)) error {
	key := s.key(id)
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis update %s: too much contention", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
