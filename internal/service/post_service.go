package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/hotfeed/internal/cache"
	"github.com/d60-Lab/hotfeed/internal/model"
	"github.com/d60-Lab/hotfeed/internal/repository"
	"github.com/d60-Lab/hotfeed/pkg/logger"
)

// PostAggregates 帖子聚合视图：冗余总数 + 按需计算的 24h 热度。
type PostAggregates struct {
	PostID     int64  `json:"post_id"`
	TotalLikes int64  `json:"total_likes"`
	Score24h   int64  `json:"score_24h"`
	CreatedAt  string `json:"created_at"`
}

type PostService struct {
	posts     repository.PostRepository
	feedCache *cache.FeedCache
}

func NewPostService(posts repository.PostRepository, feedCache *cache.FeedCache) *PostService {
	return &PostService{posts: posts, feedCache: feedCache}
}

// validatePostFields 过滤客户端可写字段。计数与创建时间只能由系统维护。
// Post 目前没有客户端可写字段，通过校验后的白名单恒为空；加列时在这里放行。
func validatePostFields(fields map[string]any) (map[string]any, error) {
	if _, ok := fields["like_count"]; ok {
		return nil, validationf("like_count cannot be set directly, use like operations instead")
	}
	if _, ok := fields["created_at"]; ok {
		return nil, validationf("created_at cannot be set")
	}
	if _, ok := fields["id"]; ok {
		return nil, validationf("id cannot be set")
	}
	return map[string]any{}, nil
}

func (s *PostService) Create(ctx context.Context, fields map[string]any) (*model.Post, error) {
	if _, err := validatePostFields(fields); err != nil {
		return nil, err
	}
	post := &model.Post{LikeCount: 0}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id int64) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) Update(ctx context.Context, id int64, fields map[string]any) (*model.Post, error) {
	validated, err := validatePostFields(fields)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	if len(validated) == 0 {
		return post, nil
	}

	updated, err := s.posts.Update(ctx, id, validated)
	if err != nil {
		return nil, err
	}
	s.invalidateFeed(ctx)
	return updated, nil
}

func (s *PostService) Delete(ctx context.Context, id int64) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateFeed(ctx)
	return nil
}

func (s *PostService) GetAggregates(ctx context.Context, id int64) (*PostAggregates, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	score, err := s.posts.Score24h(ctx, id)
	if err != nil {
		return nil, err
	}

	return &PostAggregates{
		PostID:     post.ID,
		TotalLikes: post.LikeCount,
		Score24h:   score,
		CreatedAt:  post.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s *PostService) invalidateFeed(ctx context.Context) {
	if s.feedCache == nil {
		return
	}
	if err := s.feedCache.InvalidateAll(ctx); err != nil {
		logger.Warn("feed cache invalidation failed", zap.Error(err))
	}
}
