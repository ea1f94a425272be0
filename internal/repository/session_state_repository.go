package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
)

const sessionKeyPrefix = "roster:session:"

// SessionStateRepository keeps in-flight editing workflows in Redis so they survive API
// restarts and can be shared by several instances.
type SessionStateRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSessionStateRepository constructs the repository.
func NewSessionStateRepository(client *redis.Client, logger *zap.Logger) *SessionStateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStateRepository{client: client, logger: logger}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Get loads and unmarshals the stored workflow. Missing or expired ids return ErrCacheMiss.
func (r *SessionStateRepository) Get(ctx context.Context, id string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get session %s: %w", id, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return nil
}

// Set stores the workflow, refreshing its TTL.
func (r *SessionStateRepository) Set(ctx context.Context, id string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis session store not configured")
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", id, err)
	}
	if err := r.client.Set(ctx, sessionKey(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", id, err)
	}
	return nil
}

// Delete removes the workflow.
func (r *SessionStateRepository) Delete(ctx context.Context, id string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored workflows.
func (r *SessionStateRepository) Count(ctx context.Context) (int, error) {
	if r.client == nil {
		return 0, nil
	}
	total := 0
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		total++
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("scan sessions failed", zap.Error(err))
		return 0, fmt.Errorf("redis scan sessions: %w", err)
	}
	return total, nil
}
