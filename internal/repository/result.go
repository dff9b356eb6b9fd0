package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
	"github.com/rocketscienceinc/hexgame-server/internal/entity"
)

const resultKeyPrefix = "game:"

// ResultRepository archives the outcome of finished games.
type ResultRepository interface {
	Save(ctx context.Context, result *entity.GameResult) error
	GetByID(ctx context.Context, id string) (*entity.GameResult, error)
}

type redisResults struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResultRepository stores results as JSON under "game:<id>". A zero
// ttl keeps them forever.
func NewRedisResultRepository(client *redis.Client, ttl time.Duration) ResultRepository {
	return &redisResults{
		client: client,
		ttl:    ttl,
	}
}

func (that *redisResults) Save(ctx context.Context, result *entity.GameResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal result: %w", err)
	}

	if err = that.client.Set(ctx, resultKeyPrefix+result.ID, resultJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set result: %w", err)
	}

	return nil
}

func (that *redisResults) GetByID(ctx context.Context, id string) (*entity.GameResult, error) {
	response, err := that.client.Get(ctx, resultKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get result by id: %w", err)
	}

	var result entity.GameResult
	if err = json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}
