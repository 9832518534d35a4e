package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

var codec = sonic.ConfigStd

// Cache wraps a Store with Redis-backed caching for project reads. Task reads
// pass straight through. Redis failures never fail a request: the cache falls
// back to the wrapped store.
type Cache struct {
	Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper around base using the provided Redis
// client and TTL. A nil client disables caching.
func NewCache(base Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("store.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: base, redis: client, ttl: ttl}
}

func (c *Cache) GetProject(ctx context.Context, owner string, id int64) (*models.Project, error) {
	key := projectCacheKey(owner, id)

	var cached models.Project
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	project, err := c.Store.GetProject(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, project)
	return project, nil
}

func (c *Cache) ListProjects(ctx context.Context, owner string) ([]models.Project, error) {
	key := projectsCacheKey(owner)

	var cached []models.Project
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	projects, err := c.Store.ListProjects(ctx, owner)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, projects)
	return projects, nil
}

func (c *Cache) CreateProject(ctx context.Context, owner string, project *models.Project) error {
	if err := c.Store.CreateProject(ctx, owner, project); err != nil {
		return err
	}

	c.evict(ctx, owner, project.ID)
	return nil
}

func (c *Cache) UpdateProject(ctx context.Context, owner string, project *models.Project) error {
	if err := c.Store.UpdateProject(ctx, owner, project); err != nil {
		return err
	}

	c.evict(ctx, owner, project.ID)
	return nil
}

func (c *Cache) DeleteProject(ctx context.Context, owner string, id int64) error {
	if err := c.Store.DeleteProject(ctx, owner, id); err != nil {
		return err
	}

	c.evict(ctx, owner, id)
	return nil
}

func (c *Cache) load(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := codec.Unmarshal(data, v); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, owner string, id int64) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, projectsCacheKey(owner), projectCacheKey(owner, id)).Result()
}

func projectsCacheKey(owner string) string {
	return "projects:" + owner
}

func projectCacheKey(owner string, id int64) string {
	return "project:" + owner + ":" + strconv.FormatInt(id, 10)
}
