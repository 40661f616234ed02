package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/fileshare/internal/models"
)

// GroupInfoTTL bounds how long cached group titles and invite links are reused.
const GroupInfoTTL = 10 * time.Minute

// RedisStore caches presentation metadata that is expensive to fetch from the
// chat platform. Membership status is never cached here.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// groupInfoKey returns the key for a group's cached metadata.
func groupInfoKey(groupID int64) string {
	return fmt.Sprintf("group:%d:info", groupID)
}

// GetGroupInfo returns cached metadata, or nil on a miss.
func (s *RedisStore) GetGroupInfo(ctx context.Context, groupID int64) (*models.GroupInfo, error) {
	data, err := s.client.Get(ctx, groupInfoKey(groupID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var info models.GroupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		// Drop entries we can no longer read.
		s.client.Del(ctx, groupInfoKey(groupID))
		return nil, nil
	}
	return &info, nil
}

// SetGroupInfo caches metadata for ttl.
func (s *RedisStore) SetGroupInfo(ctx context.Context, info *models.GroupInfo, ttl time.Duration) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, groupInfoKey(info.ID), data, ttl).Err()
}

// ForgetGroupInfo drops cached metadata, used when a group stops being required.
func (s *RedisStore) ForgetGroupInfo(ctx context.Context, groupID int64) error {
	return s.client.Del(ctx, groupInfoKey(groupID)).Err()
}
