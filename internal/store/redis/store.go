// Package redis is a Redis store backend via rueidis. Documents live in one
// hash per id with the embedding as a binary field; an id set makes corpus
// scans cheap. KNN ranking happens on the client so the backend stays
// interchangeable with the in-memory one.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/tsurugi-io/kensaku/internal/domain"
	"github.com/tsurugi-io/kensaku/internal/store"
)

// Compile-time checks.
var (
	_ store.Store        = (*Store)(nil)
	_ store.KV           = (*Store)(nil)
	_ store.CounterStore = (*Store)(nil)
)

// Config holds connection parameters for the Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store implements store.Store and store.KV via rueidis.
type Store struct {
	client rueidis.Client
	prefix string
}

// NewStore connects to Redis via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "kensaku:"
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, prefix: cfg.KeyPrefix}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or the timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) docKey(id int) string {
	return s.prefix + "doc:" + strconv.Itoa(id)
}

func (s *Store) idsKey() string {
	return s.prefix + "doc_ids"
}

// Put stores the document hash and registers its id in one round-trip.
func (s *Store) Put(ctx context.Context, doc domain.Document) error {
	fields := buildHashFields(doc)

	hset := s.client.B().Hset().Key(s.docKey(doc.ID)).FieldValue()
	for k, v := range fields {
		hset = hset.FieldValue(k, v)
	}
	sadd := s.client.B().Sadd().Key(s.idsKey()).Member(strconv.Itoa(doc.ID)).Build()

	for _, res := range s.client.DoMulti(ctx, hset.Build(), sadd) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("put document %d: %w", doc.ID, err)
		}
	}
	return nil
}

// Get returns a document by id.
func (s *Store) Get(ctx context.Context, id int) (domain.Document, error) {
	cmd := s.client.B().Hgetall().Key(s.docKey(id)).Build()
	m, err := s.client.Do(ctx, cmd).AsStrMap()
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document %d: %w", id, err)
	}
	if len(m) == 0 {
		return domain.Document{}, fmt.Errorf("document %d: %w", id, domain.ErrDocumentNotFound)
	}
	return parseHashFields(id, m), nil
}

// Delete removes the document hash and its id registration.
func (s *Store) Delete(ctx context.Context, id int) error {
	del := s.client.B().Del().Key(s.docKey(id)).Build()
	srem := s.client.B().Srem().Key(s.idsKey()).Member(strconv.Itoa(id)).Build()

	for _, res := range s.client.DoMulti(ctx, del, srem) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("delete document %d: %w", id, err)
		}
	}
	return nil
}

// All loads every document via the id set and one DoMulti batch of HGETALLs,
// ordered by id.
func (s *Store) All(ctx context.Context) ([]domain.Document, error) {
	members, err := s.client.Do(ctx, s.client.B().Smembers().Key(s.idsKey()).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt document id %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = s.client.B().Hgetall().Key(s.docKey(id)).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	docs := make([]domain.Document, 0, len(results))
	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, fmt.Errorf("load document %d: %w", ids[i], err)
		}
		if len(m) == 0 {
			// id set and hash can drift if a delete was interrupted
			continue
		}
		docs = append(docs, parseHashFields(ids[i], m))
	}
	return docs, nil
}

// Query returns the k nearest documents to vector by cosine distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]store.Candidate, error) {
	docs, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return store.Rank(docs, vector, k), nil
}

// GetBytes implements store.KV for the embedding cache.
func (s *Store) GetBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.prefix+key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return data, nil
}

// SetBytes implements store.KV for the embedding cache.
func (s *Store) SetBytes(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(s.prefix + key).Value(rueidis.BinaryString(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// IncrBy implements store.CounterStore for the token budget tracker.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) error {
	cmd := s.client.B().Incrby().Key(s.prefix + key).Increment(delta).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("incrby %q: %w", key, err)
	}
	return nil
}

// GetInt64 implements store.CounterStore. Missing keys read as 0.
func (s *Store) GetInt64(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Do(ctx, s.client.B().Get().Key(s.prefix+key).Build()).AsInt64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get counter %q: %w", key, err)
	}
	return val, nil
}
