package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sessionsnap/internal/config"
	"sessionsnap/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	draftKeyPrefix     = "sessionsnap:draft:"
	rateLimitKeyPrefix = "sessionsnap:rate_limit:"
)

var errNilClient = errors.New("redis client is nil")

// RedisDraftRepository stores drafts as JSON values that expire after ttl.
type RedisDraftRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a go-redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisDraftRepository(client *redis.Client, ttl time.Duration) *RedisDraftRepository {
	return &RedisDraftRepository{
		client: client,
		ttl:    ttl,
	}
}

// GetDraft returns nil without error when the operator has no draft.
func (r *RedisDraftRepository) GetDraft(ctx context.Context, operatorID string) (*models.Draft, error) {
	if r.client == nil {
		return nil, errNilClient
	}
	val, err := r.client.Get(ctx, draftKeyPrefix+operatorID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft from redis: %w", err)
	}

	var draft models.Draft
	if err := json.Unmarshal([]byte(val), &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}

	return &draft, nil
}

func (r *RedisDraftRepository) SetDraft(ctx context.Context, draft *models.Draft) error {
	if r.client == nil {
		return errNilClient
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	if err := r.client.Set(ctx, draftKeyPrefix+draft.OperatorID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set draft in redis: %w", err)
	}

	return nil
}

func (r *RedisDraftRepository) ClearDraft(ctx context.Context, operatorID string) error {
	if r.client == nil {
		return errNilClient
	}
	if err := r.client.Del(ctx, draftKeyPrefix+operatorID).Err(); err != nil {
		return fmt.Errorf("failed to delete draft from redis: %w", err)
	}
	return nil
}

// CheckRateLimit counts calls for key in a fixed window and reports whether this one is allowed.
func (r *RedisDraftRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNilClient
	}
	rk := rateLimitKeyPrefix + key
	count, err := r.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, rk, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
