package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rentdesk/internal/form"
	"rentdesk/internal/models"
)

// ErrCacheMiss is returned when a key is not present.
var ErrCacheMiss = redis.Nil

type CacheService interface {
	// Form session drafts
	GetDraft(ctx context.Context, token string) (*form.State, error)
	SetDraft(ctx context.Context, token string, state *form.State, ttl time.Duration) error
	DeleteDraft(ctx context.Context, token string) error
	ListDraftTokens(ctx context.Context) ([]string, error)

	// Stored application caching for the dashboard
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	SetApplication(ctx context.Context, app *models.Application, ttl time.Duration) error
	DeleteApplication(ctx context.Context, id uuid.UUID) error

	// Rate limiting for the public form endpoints. IncrementRateLimit counts
	// the request and returns the window total so callers compare against
	// their limit in one round trip.
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)

	// Generic string operations
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis:// and rediss:// URLs as well as plain host:port
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func draftKey(token string) string {
	return "draft:" + token
}

func applicationKey(id uuid.UUID) string {
	return "application:" + id.String()
}

func (s *redisCacheService) GetDraft(ctx context.Context, token string) (*form.State, error) {
	data, err := s.client.Get(ctx, draftKey(token)).Bytes()
	if err != nil {
		return nil, err
	}
	state := &form.State{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to decode cached draft: %w", err)
	}
	return state, nil
}

func (s *redisCacheService) SetDraft(ctx context.Context, token string, state *form.State, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	return s.client.Set(ctx, draftKey(token), data, ttl).Err()
}

func (s *redisCacheService) DeleteDraft(ctx context.Context, token string) error {
	return s.client.Del(ctx, draftKey(token)).Err()
}

func (s *redisCacheService) ListDraftTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	iter := s.client.Scan(ctx, 0, "draft:*", 0).Iterator()
	for iter.Next(ctx) {
		tokens = append(tokens, strings.TrimPrefix(iter.Val(), "draft:"))
	}
	return tokens, iter.Err()
}

func (s *redisCacheService) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	data, err := s.client.Get(ctx, applicationKey(id)).Bytes()
	if err != nil {
		return nil, err
	}
	app := &models.Application{}
	if err := json.Unmarshal(data, app); err != nil {
		return nil, fmt.Errorf("failed to decode cached application: %w", err)
	}
	return app, nil
}

func (s *redisCacheService) SetApplication(ctx context.Context, app *models.Application, ttl time.Duration) error {
	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("failed to encode application: %w", err)
	}
	return s.client.Set(ctx, applicationKey(app.ID), data, ttl).Err()
}

func (s *redisCacheService) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	return s.client.Del(ctx, applicationKey(id)).Err()
}

func (s *redisCacheService) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, "ratelimit:"+key)
	pipe.Expire(ctx, "ratelimit:"+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *redisCacheService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
