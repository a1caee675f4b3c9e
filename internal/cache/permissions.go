package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const permissionVersionKey = "rbac:version"

// Grants is the cached authorization view of a user.
type Grants struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// PermissionCache stores effective grants under versioned keys. Any RBAC mutation bumps
// the version, which orphans every cached entry at once; orphans expire through their TTL.
// A nil client turns every call into a miss.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{client: client, ttl: ttl}
}

func (c *PermissionCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, permissionVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

func grantsKey(ver int64, userID string) string {
	return fmt.Sprintf("rbac:grants:%d:%s", ver, userID)
}

// Get returns the cached grants for userID, or nil on a miss. The returned slot names the
// entry under the version observed by this read; pass it to Set so a fill that races with
// Invalidate lands on an orphaned key instead of the new version.
func (c *PermissionCache) Get(ctx context.Context, userID string) (*Grants, string, error) {
	if c == nil || c.client == nil {
		return nil, "", nil
	}
	ver, err := c.version(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("cache: grants version: %w", err)
	}
	slot := grantsKey(ver, userID)

	raw, err := c.client.Get(ctx, slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, slot, nil
	}
	if err != nil {
		return nil, slot, fmt.Errorf("cache: read grants: %w", err)
	}

	var g Grants
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, slot, fmt.Errorf("cache: decode grants: %w", err)
	}
	return &g, slot, nil
}

// Set stores g under a slot returned by Get. An empty slot is ignored.
func (c *PermissionCache) Set(ctx context.Context, slot string, g Grants) error {
	if c == nil || c.client == nil || slot == "" {
		return nil
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, slot, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: write grants: %w", err)
	}
	return nil
}

// Invalidate drops every cached grant set.
func (c *PermissionCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, permissionVersionKey).Err(); err != nil {
		return fmt.Errorf("cache: bump grants version: %w", err)
	}
	return nil
}
