// Package cache implements the redis-backed hot feed page cache.
//
// Two distinct key spaces share one namespace: memoized feed pages
// ("<ns>:feed:hot:<limit>") and short-lived computation locks
// ("<ns>:lock:feed:hot:<limit>"). Cached limits are additionally tracked in a
// redis set so invalidation can fan out to every page size ever requested,
// including ones populated by other processes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/hotfeed/internal/model"
)

const (
	DefaultTTL     = 60 * time.Second
	DefaultLockTTL = 5 * time.Second
)

// DefaultLimits 常用页大小，失效时始终覆盖
var DefaultLimits = []int{10, 20, 50, 100}

// Options configures a FeedCache. Zero values fall back to defaults.
type Options struct {
	Namespace string
	TTL       time.Duration
	LockTTL   time.Duration
}

// FeedCache 热榜页缓存。仅作为记忆层，未命中不是错误。
type FeedCache struct {
	rdb     *redis.Client
	ns      string
	ttl     time.Duration
	lockTTL time.Duration
}

func New(rdb *redis.Client, opts Options) *FeedCache {
	if opts.Namespace == "" {
		opts.Namespace = "hotfeed"
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	return &FeedCache{rdb: rdb, ns: opts.Namespace, ttl: opts.TTL, lockTTL: opts.LockTTL}
}

func (c *FeedCache) pageKey(limit int) string {
	return fmt.Sprintf("%s:feed:hot:%d", c.ns, limit)
}

func (c *FeedCache) lockKey(limit int) string {
	return fmt.Sprintf("%s:lock:feed:hot:%d", c.ns, limit)
}

func (c *FeedCache) limitsKey() string {
	return fmt.Sprintf("%s:feed:hot:limits", c.ns)
}

// GetPage 读取缓存页。返回 (items, hit, err)；键不存在或内容损坏按未命中处理。
func (c *FeedCache) GetPage(ctx context.Context, limit int) ([]model.FeedItem, bool, error) {
	data, err := c.rdb.Get(ctx, c.pageKey(limit)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []model.FeedItem
	if uErr := json.Unmarshal(data, &items); uErr != nil {
		return nil, false, nil
	}
	return items, true, nil
}

// SetPage 写入缓存页并登记 limit 供失效扇出使用。
func (c *FeedCache) SetPage(ctx context.Context, limit int, items []model.FeedItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, c.pageKey(limit), payload, c.ttl)
	pipe.SAdd(ctx, c.limitsKey(), limit)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateAll 删除所有已知页大小的缓存页。键本就不存在不算错误。
func (c *FeedCache) InvalidateAll(ctx context.Context) error {
	known, err := c.rdb.SMembers(ctx, c.limitsKey()).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	seen := make(map[string]struct{}, len(known)+len(DefaultLimits))
	keys := make([]string, 0, len(known)+len(DefaultLimits))
	add := func(k string) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for _, l := range DefaultLimits {
		add(c.pageKey(l))
	}
	for _, l := range known {
		add(fmt.Sprintf("%s:feed:hot:%s", c.ns, l))
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// unlockScript 比对 token 后再删，锁过期易主时迟到的释放不动新持有方的锁
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// TryLock 以 add-if-absent 语义抢占重算锁，不阻塞。抢到时返回释放用的
// token。持有方崩溃后靠 TTL 自解。
func (c *FeedCache) TryLock(ctx context.Context, limit int) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, c.lockKey(limit), token, c.lockTTL).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Unlock 释放重算锁。token 不匹配说明锁已过期易主，此时不做任何事。
func (c *FeedCache) Unlock(ctx context.Context, limit int, token string) error {
	return unlockScript.Run(ctx, c.rdb, []string{c.lockKey(limit)}, token).Err()
}
