package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
)

const DefaultStatusPrefix = "crawl:status:"

// RedisStatusStore mirrors job snapshots into Redis so dashboards can poll
// live status without touching the primary store.
type RedisStatusStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStatusStore(addr, prefix string, ttl time.Duration) *RedisStatusStore {
	if prefix == "" {
		prefix = DefaultStatusPrefix
	}
	return &RedisStatusStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStatusStore) Close() error {
	return s.client.Close()
}

func (s *RedisStatusStore) SetStatus(ctx context.Context, job types.CrawlJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+job.ID, payload, s.ttl).Err()
}

func (s *RedisStatusStore) GetStatus(ctx context.Context, jobID string) (types.CrawlJob, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.CrawlJob{}, false, nil
		}
		return types.CrawlJob{}, false, err
	}

	var job types.CrawlJob
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return types.CrawlJob{}, false, err
	}
	return job, true, nil
}
