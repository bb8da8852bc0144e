package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"betinho-miniapp/internal/config"
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(ctx context.Context, cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

// NewRedisServiceFromClient wraps an existing client.
func NewRedisServiceFromClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (s *RedisService) Client() *redis.Client { return s.client }

func (s *RedisService) Close() error {
	return s.client.Close()
}

// CheckRateLimit counts one action for subject in a fixed window and
// reports whether it is still within limit.
func (s *RedisService) CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, subject, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, subject, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, subject, action)).Err()
}

// LoginRecord ties an issued token's session id to a wallet address so
// logout can revoke it.
type LoginRecord struct {
	SessionID string    `json:"session_id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *RedisService) StoreLogin(ctx context.Context, rec LoginRecord, expiry time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fmt.Sprintf(KeyLoginRecord, rec.SessionID), data, expiry).Err()
}

func (s *RedisService) GetLogin(ctx context.Context, sessionID string) (*LoginRecord, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyLoginRecord, sessionID)).Result()
	if err != nil {
		return nil, err
	}

	var rec LoginRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login record: %w", err)
	}
	return &rec, nil
}

func (s *RedisService) DeleteLogin(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyLoginRecord, sessionID)).Err()
}
