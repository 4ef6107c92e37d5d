package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pagelift/pagelift-backend/internal/platform/logger"
	"github.com/pagelift/pagelift-backend/internal/render"
)

// RenderCache stores built skeletons keyed by (page, version, language).
// Only the static phase is cached; conditions, data resolution and
// interpolation always run per request. Draft renders never touch it.
type RenderCache interface {
	GetSkeleton(ctx context.Context, pageID, versionID uuid.UUID, language string) (*render.Skeleton, bool)
	SetSkeleton(ctx context.Context, pageID, versionID uuid.UUID, language string, skel *render.Skeleton)
	InvalidatePage(ctx context.Context, pageID uuid.UUID)
}

type redisRenderCache struct {
	log *logger.Logger
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRenderCache(baseLog *logger.Logger, rdb *redis.Client, ttl time.Duration) RenderCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisRenderCache{
		log: baseLog.With("service", "RenderCache"),
		rdb: rdb,
		ttl: ttl,
	}
}

func skeletonKey(pageID, versionID uuid.UUID, language string) string {
	return fmt.Sprintf("render:skel:%s:%s:%s", pageID, versionID, language)
}

func (c *redisRenderCache) GetSkeleton(ctx context.Context, pageID, versionID uuid.UUID, language string) (*render.Skeleton, bool) {
	raw, err := c.rdb.Get(ctx, skeletonKey(pageID, versionID, language)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("skeleton cache read failed", "page_id", pageID, "error", err)
		}
		return nil, false
	}
	var skel render.Skeleton
	if err := json.Unmarshal(raw, &skel); err != nil {
		c.log.Warn("dropping undecodable cached skeleton", "page_id", pageID, "error", err)
		c.rdb.Del(ctx, skeletonKey(pageID, versionID, language))
		return nil, false
	}
	return &skel, true
}

// SetSkeleton is best-effort; a failed write only costs a rebuild.
func (c *redisRenderCache) SetSkeleton(ctx context.Context, pageID, versionID uuid.UUID, language string, skel *render.Skeleton) {
	raw, err := json.Marshal(skel)
	if err != nil {
		c.log.Warn("skeleton not cacheable", "page_id", pageID, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, skeletonKey(pageID, versionID, language), raw, c.ttl).Err(); err != nil {
		c.log.Warn("skeleton cache write failed", "page_id", pageID, "error", err)
	}
}

// InvalidatePage drops every cached skeleton for the page, all versions and
// languages. Runs after a publish pointer change commits.
func (c *redisRenderCache) InvalidatePage(ctx context.Context, pageID uuid.UUID) {
	pattern := fmt.Sprintf("render:skel:%s:*", pageID)
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("skeleton cache scan failed", "page_id", pageID, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("skeleton cache invalidation failed", "page_id", pageID, "error", err)
		return
	}
	c.log.Debug("skeleton cache invalidated", "page_id", pageID, "keys", len(keys))
}

// noopRenderCache disables caching; used when no redis address is
// configured and in tests.
type noopRenderCache struct{}

func NewNoopRenderCache() RenderCache { return noopRenderCache{} }

func (noopRenderCache) GetSkeleton(context.Context, uuid.UUID, uuid.UUID, string) (*render.Skeleton, bool) {
	return nil, false
}
func (noopRenderCache) SetSkeleton(context.Context, uuid.UUID, uuid.UUID, string, *render.Skeleton) {
}
func (noopRenderCache) InvalidatePage(context.Context, uuid.UUID) {}
