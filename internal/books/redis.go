package books

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient accepts either a redis:// URL or a host:port address
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		opt = &redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}
	}
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.DialTimeout = 5 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps each book as a string value under prefix+name
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Save(ctx context.Context, name, content string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	created, err := s.rdb.SetNX(ctx, s.prefix+name, content, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}
	if !created {
		return ErrNameCollision
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	content, err := s.rdb.Get(ctx, s.prefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load book: %w", err)
	}
	return content, nil
}

// List scans the key space rather than using KEYS so large databases are
// not blocked.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	names := []string{}
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
