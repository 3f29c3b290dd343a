// Package redis keeps session feedback as a JSON array under one key so
// several processes can share a namespace.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/scout/config"
	"github.com/mohammad-safakhou/scout/feedback"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "scout:feedback:"

// Conn dials redis and verifies the connection with PING.
func Conn(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		DialTimeout: cfg.Timeout,
		Password:    cfg.Password,
		DB:          cfg.DB,
	})
	if logger != nil {
		logger.Debug("redis options", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))
	}

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

type Store struct {
	client redis.UniversalClient
	key    string
}

func New(client redis.UniversalClient, namespace string) *Store {
	if namespace == "" {
		namespace = "default"
	}
	return &Store{client: client, key: keyPrefix + namespace}
}

func (s *Store) Key() string { return s.key }

func (s *Store) EnsureInitialized(ctx context.Context) error {
	raw, err := s.client.Get(ctx, s.key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get %s: %w", s.key, err)
	}
	if raw != "" {
		return nil
	}
	return s.client.Set(ctx, s.key, "[]", 0).Err()
}

func (s *Store) Read(ctx context.Context) ([]feedback.Entry, error) {
	return s.get(ctx, s.client)
}

// Append rewrites the array inside WATCH so concurrent writers retry
// instead of losing entries.
func (s *Store) Append(ctx context.Context, e feedback.Entry) error {
	const retries = 5
	for i := 0; i < retries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			entries, err := s.get(ctx, tx)
			if err != nil {
				return err
			}
			payload, err := json.Marshal(append(entries, e))
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, s.key, payload, 0)
				return nil
			})
			return err
		}, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			time.Sleep(time.Duration(i+1) * 10 * time.Millisecond)
			continue
		}
		return err
	}
	return fmt.Errorf("append %s: too much contention", s.key)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.client.Set(ctx, s.key, "[]", 0).Err()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) get(ctx context.Context, c getter) ([]feedback.Entry, error) {
	raw, err := c.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	entries, err := feedback.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.key, err)
	}
	return entries, nil
}
