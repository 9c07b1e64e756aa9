package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evently-hq/evently/internal/models"
	"github.com/evently-hq/evently/pkg/logger"
)

const tierCacheTTL = 5 * time.Minute

// TierCache keeps per-event tier listings hot. Every tier mutation and every
// stock decrement invalidates the event's entry; Postgres stays the source
// of truth.
type TierCache interface {
	Get(ctx context.Context, eventID string) ([]models.TicketTier, error)
	Set(ctx context.Context, eventID string, tiers []models.TicketTier) error
	Invalidate(ctx context.Context, eventID string) error
}

type redisTierCache struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisTierCache(cli *redis.Client, l logger.Logger) TierCache {
	return &redisTierCache{
		cli: cli,
		l:   l,
	}
}

func (c *redisTierCache) key(eventID string) string {
	return fmt.Sprintf("event:%s:tiers", eventID)
}

// Get returns redis.Nil when the entry is absent; callers fall through to
// Postgres.
func (c *redisTierCache) Get(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	data, err := c.cli.Get(ctx, c.key(eventID)).Bytes()
	if err != nil {
		return nil, err
	}

	var tiers []models.TicketTier
	if err := json.Unmarshal(data, &tiers); err != nil {
		c.l.Errorf(ctx, "redisTierCache.Get: %v", err)
		return nil, err
	}

	return tiers, nil
}

func (c *redisTierCache) Set(ctx context.Context, eventID string, tiers []models.TicketTier) error {
	data, err := json.Marshal(tiers)
	if err != nil {
		c.l.Errorf(ctx, "redisTierCache.Set: %v", err)
		return err
	}

	if err := c.cli.Set(ctx, c.key(eventID), data, tierCacheTTL).Err(); err != nil {
		c.l.Errorf(ctx, "redisTierCache.Set: %v", err)
		return err
	}

	return nil
}

func (c *redisTierCache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.cli.Del(ctx, c.key(eventID)).Err(); err != nil {
		c.l.Errorf(ctx, "redisTierCache.Invalidate: %v", err)
		return err
	}

	return nil
}
