package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	chatdomain "github.com/boddenberg/plan-assistant-go/internal/chat/domain"
	"github.com/boddenberg/plan-assistant-go/internal/domain"

	"github.com/go-redis/redis/v8"
)

// KeyPrefix namespaces session keys in a shared Redis.
const KeyPrefix = "plan-assistant:session:"

// Redis stores sessions as JSON with an inactivity TTL refreshed on Put.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds the go-redis client from config values.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// NewRedis creates a Redis-backed store.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (s *Redis) Get(ctx context.Context, id string) (*chatdomain.SessionContext, error) {
	data, err := s.client.Get(ctx, KeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &domain.ErrNotFound{Resource: "session", ID: id}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "redis", Err: err}
	}

	var sc chatdomain.SessionContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sc, nil
}

func (s *Redis) Put(ctx context.Context, sc *chatdomain.SessionContext) error {
	b, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sc.SessionID, err)
	}
	if err := s.client.Set(ctx, KeyPrefix+sc.SessionID, b, s.ttl).Err(); err != nil {
		return &domain.ErrExternalService{Service: "redis", Err: err}
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, KeyPrefix+id).Err(); err != nil {
		return &domain.ErrExternalService{Service: "redis", Err: err}
	}
	return nil
}

// Ping verifies Redis connectivity.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (s *Redis) Close() error {
	return s.client.Close()
}
