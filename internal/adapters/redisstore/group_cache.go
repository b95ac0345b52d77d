package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"otcsettle/internal/domain"

	"github.com/redis/go-redis/v9"
)

const groupKeyPrefix = "remittance-group:"

// GroupCache keeps remittance groups as JSON documents. Groups carry the daily totals, so they never expire.
type GroupCache struct {
	client *redis.Client
}

func (c *GroupCache) GetByKey(ctx context.Context, key domain.GroupKey) (*domain.RemittanceCurrentGroup, error) {
	raw, err := c.client.Get(ctx, groupKeyPrefix+key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get remittance group %s: %w", key, err)
	}

	var group domain.RemittanceCurrentGroup
	if err = json.Unmarshal(raw, &group); err != nil {
		return nil, fmt.Errorf("failed to decode remittance group %s: %w", key, err)
	}
	return &group, nil
}

func (c *GroupCache) CreateOrUpdate(ctx context.Context, group *domain.RemittanceCurrentGroup) error {
	raw, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("failed to encode remittance group %s: %w", group.Key, err)
	}
	if err = c.client.Set(ctx, groupKeyPrefix+group.Key.String(), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store remittance group %s: %w", group.Key, err)
	}
	return nil
}

func NewGroupCache(client *redis.Client) *GroupCache {
	return &GroupCache{client: client}
}
