package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/hotfeed/internal/cache"
	"github.com/d60-Lab/hotfeed/internal/model"
	"github.com/d60-Lab/hotfeed/internal/repository"
	"github.com/d60-Lab/hotfeed/pkg/logger"
)

const (
	maxFeedLimit        = 1000
	defaultWaitTimeout  = 10 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// FeedService 热榜读路径。缓存命中直接返回；未命中时抢占重算锁的请求
// 重算并回填，抢不到的请求轮询等待回填，超时降级为一次不回写的直查。
type FeedService struct {
	posts     repository.PostRepository
	feedCache *cache.FeedCache

	waitTimeout  time.Duration
	pollInterval time.Duration
	queryDelay   time.Duration // 模拟排序查询耗时（基准/测试用）

	queries atomic.Int64
}

type FeedOption func(*FeedService)

// WithWaitTimeout 覆盖轮询等待上限。
func WithWaitTimeout(d time.Duration) FeedOption {
	return func(s *FeedService) { s.waitTimeout = d }
}

// WithPollInterval 覆盖轮询间隔。
func WithPollInterval(d time.Duration) FeedOption {
	return func(s *FeedService) { s.pollInterval = d }
}

// WithQueryDelay 为排序查询注入固定延迟，模拟主库往返。
func WithQueryDelay(d time.Duration) FeedOption {
	return func(s *FeedService) { s.queryDelay = d }
}

func NewFeedService(posts repository.PostRepository, feedCache *cache.FeedCache, opts ...FeedOption) *FeedService {
	s := &FeedService{
		posts:        posts,
		feedCache:    feedCache,
		waitTimeout:  defaultWaitTimeout,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validatePagination(limit, offset int) error {
	if limit <= 0 {
		return validationf("limit must be positive")
	}
	if limit > maxFeedLimit {
		return validationf("limit cannot exceed %d", maxFeedLimit)
	}
	if offset < 0 {
		return validationf("offset cannot be negative")
	}
	return nil
}

// GetHotFeed 返回 24h 热度排序的帖子页。
// 缓存按 limit 维度组织，带 offset 的深分页不走缓存。
func (s *FeedService) GetHotFeed(ctx context.Context, limit, offset int) ([]model.FeedItem, error) {
	if err := validatePagination(limit, offset); err != nil {
		return nil, err
	}
	if offset > 0 || s.feedCache == nil {
		return s.queryHot(ctx, limit, offset)
	}

	// 快路径：只碰缓存
	items, hit, err := s.feedCache.GetPage(ctx, limit)
	if err != nil {
		// 缓存只是优化，不可用时读路径退化为直查
		logger.Warn("feed cache unavailable, falling back to direct query", zap.Error(err))
		return s.queryHot(ctx, limit, 0)
	}
	if hit {
		return items, nil
	}

	token, acquired, err := s.feedCache.TryLock(ctx, limit)
	if err != nil {
		logger.Warn("feed lock unavailable, falling back to direct query", zap.Error(err))
		return s.queryHot(ctx, limit, 0)
	}

	if acquired {
		return s.computeAndFill(ctx, limit, token)
	}
	return s.awaitFill(ctx, limit)
}

// computeAndFill 持锁重算并回填。锁在所有出口释放，包括查询失败；
// 凭 token 释放，重算超过锁 TTL 时不会误删继任者的锁。
func (s *FeedService) computeAndFill(ctx context.Context, limit int, token string) ([]model.FeedItem, error) {
	defer func() {
		if err := s.feedCache.Unlock(ctx, limit, token); err != nil {
			logger.Warn("feed lock release failed", zap.Int("limit", limit), zap.Error(err))
		}
	}()

	// 双重检查：步骤之间可能已有人回填
	if items, hit, err := s.feedCache.GetPage(ctx, limit); err == nil && hit {
		return items, nil
	}

	items, err := s.queryHot(ctx, limit, 0)
	if err != nil {
		return nil, err
	}
	if err := s.feedCache.SetPage(ctx, limit, items); err != nil {
		logger.Warn("feed cache fill failed", zap.Int("limit", limit), zap.Error(err))
	}
	return items, nil
}

// awaitFill 等待持锁方回填。窗口耗尽后直查且不回写，避免与进行中的回填互相覆盖。
func (s *FeedService) awaitFill(ctx context.Context, limit int) ([]model.FeedItem, error) {
	deadline := time.Now().Add(s.waitTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}

		items, hit, err := s.feedCache.GetPage(ctx, limit)
		if err != nil {
			logger.Warn("feed cache unavailable while waiting, falling back", zap.Error(err))
			break
		}
		if hit {
			return items, nil
		}
	}
	return s.queryHot(ctx, limit, 0)
}

func (s *FeedService) queryHot(ctx context.Context, limit, offset int) ([]model.FeedItem, error) {
	if s.queryDelay > 0 {
		time.Sleep(s.queryDelay)
	}
	s.queries.Add(1)
	return s.posts.ListHot(ctx, limit, offset)
}

// Queries 返回已执行的排序查询次数。
func (s *FeedService) Queries() int64 { return s.queries.Load() }

// ResetCounters 清零查询计数。
func (s *FeedService) ResetCounters() { s.queries.Store(0) }
