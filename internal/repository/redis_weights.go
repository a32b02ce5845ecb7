package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/domain/repository"
)

const weightSnapshotKey = "sigcouncil:weights:latest"

// RedisWeightStore persists the latest committed weight snapshot so influence
// weights survive restarts. Only the newest snapshot matters; history lives in
// the outcome tables it was derived from.
type RedisWeightStore struct {
	client *redis.Client
}

// NewRedisWeightStore creates the store.
func NewRedisWeightStore(addr, password string, db int) (repository.WeightStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisWeightStore{client: client}, nil
}

// NewRedisWeightStoreFromClient wraps an existing client.
func NewRedisWeightStoreFromClient(client *redis.Client) repository.WeightStore {
	return &RedisWeightStore{client: client}
}

func (s *RedisWeightStore) Save(ctx context.Context, snap *models.WeightSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal weight snapshot: %w", err)
	}
	if err := s.client.Set(ctx, weightSnapshotKey, b, 0).Err(); err != nil {
		return fmt.Errorf("save weight snapshot: %w", err)
	}
	return nil
}

func (s *RedisWeightStore) Load(ctx context.Context) (*models.WeightSnapshot, error) {
	b, err := s.client.Get(ctx, weightSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load weight snapshot: %w", err)
	}
	var snap models.WeightSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal weight snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisWeightStore) Close() error {
	return s.client.Close()
}
