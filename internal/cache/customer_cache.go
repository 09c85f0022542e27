package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"dairydesk/internal/model"
)

// CustomerCache keeps per-user customer lists in Redis. Writes mark the key
// dirty for a short window so a concurrent reader does not repopulate the
// cache with a stale list mid-write.
type CustomerCache struct {
	client         *redisv9.Client
	listTTL        time.Duration
	dirtyMarkerTTL time.Duration
}

func NewCustomerCache(client *redisv9.Client, listTTL, dirtyMarkerTTL time.Duration) *CustomerCache {
	if listTTL <= 0 {
		listTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &CustomerCache{
		client:         client,
		listTTL:        listTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *CustomerCache) GetList(ctx context.Context, userID uint) ([]model.Customer, bool, error) {
	raw, err := c.client.Get(ctx, c.listKey(userID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get customers failed: %w", err)
	}

	var customers []model.Customer
	if err := json.Unmarshal([]byte(raw), &customers); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached customers failed: %w", err)
	}
	return customers, true, nil
}

func (c *CustomerCache) SetList(ctx context.Context, userID uint, customers []model.Customer) error {
	payload, err := json.Marshal(customers)
	if err != nil {
		return fmt.Errorf("marshal customer cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.listKey(userID), payload, c.listTTL).Err(); err != nil {
		return fmt.Errorf("redis set customers failed: %w", err)
	}
	return nil
}

func (c *CustomerCache) Invalidate(ctx context.Context, userID uint) error {
	if err := c.client.Del(ctx, c.listKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete customers failed: %w", err)
	}
	return nil
}

func (c *CustomerCache) MarkDirty(ctx context.Context, userID uint) error {
	if err := c.client.Set(ctx, c.dirtyKey(userID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *CustomerCache) IsDirty(ctx context.Context, userID uint) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *CustomerCache) listKey(userID uint) string {
	return fmt.Sprintf("farm:customers:%d", userID)
}

func (c *CustomerCache) dirtyKey(userID uint) string {
	return fmt.Sprintf("farm:customers:dirty:%d", userID)
}
