package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/hotfeed/internal/cache"
	"github.com/d60-Lab/hotfeed/internal/model"
	"github.com/d60-Lab/hotfeed/internal/repository"
	"github.com/d60-Lab/hotfeed/pkg/logger"
)

// LikeStatus 用户对某帖的点赞状态
type LikeStatus struct {
	Liked bool        `json:"liked"`
	Like  *model.Like `json:"like,omitempty"`
}

// LikeService 点赞协议：同一 (user, post) 幂等，计数与点赞行同事务维护。
type LikeService struct {
	db        *gorm.DB
	posts     repository.PostRepository
	likes     repository.LikeRepository
	feedCache *cache.FeedCache
	postLocks keyedMutex

	beforeInsert func(tx *gorm.DB) // 在存在性检查与插入之间注入一次写（并发竞态测试用）
}

func NewLikeService(db *gorm.DB, posts repository.PostRepository, likes repository.LikeRepository, feedCache *cache.FeedCache) *LikeService {
	return &LikeService{db: db, posts: posts, likes: likes, feedCache: feedCache}
}

func validateUserID(userID int64) error {
	if userID <= 0 {
		return validationf("user_id must be positive")
	}
	return nil
}

// AddLike 点赞。重复点赞返回已有记录且 created=false，不报错。
func (s *LikeService) AddLike(ctx context.Context, userID, postID int64) (*model.Like, bool, error) {
	if err := validateUserID(userID); err != nil {
		return nil, false, err
	}

	// 同帖计数变更串行化，避免并发增减互相覆盖
	unlock := s.postLocks.lock(postID)
	defer unlock()

	var (
		like    *model.Like
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := s.posts.WithTx(tx)
		likes := s.likes.WithTx(tx)

		post, err := posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post == nil {
			return ErrPostNotFound
		}

		existing, err := likes.GetOrNil(ctx, userID, postID)
		if err != nil {
			return err
		}
		if existing != nil {
			like = existing
			return nil
		}

		if s.beforeInsert != nil {
			s.beforeInsert(tx)
		}

		l := &model.Like{PostID: postID, UserID: userID}
		// 插入走嵌套事务（SAVEPOINT）：唯一键冲突只回滚到保存点，
		// postgres 不会把外层事务标记为 aborted，后面的重取仍然有效
		if err := tx.Transaction(func(inner *gorm.DB) error {
			return s.likes.WithTx(inner).Create(ctx, l)
		}); err != nil {
			// 并发插入撞了唯一键：别人已点上，取回已有记录即可
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				existing, gErr := likes.GetOrNil(ctx, userID, postID)
				if gErr != nil {
					return gErr
				}
				if existing == nil {
					return err
				}
				like = existing
				return nil
			}
			return err
		}

		if err := posts.IncrLikeCount(ctx, postID, 1); err != nil {
			return err
		}
		like = l
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.invalidateFeed(ctx)
	}
	return like, created, nil
}

// RemoveLike 取消点赞。记录不存在返回 ErrLikeNotFound。
func (s *LikeService) RemoveLike(ctx context.Context, userID, postID int64) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	unlock := s.postLocks.lock(postID)
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := s.posts.WithTx(tx)
		likes := s.likes.WithTx(tx)

		post, err := posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post == nil {
			return ErrPostNotFound
		}

		like, err := likes.GetOrNil(ctx, userID, postID)
		if err != nil {
			return err
		}
		if like == nil {
			return ErrLikeNotFound
		}

		if err := likes.Delete(ctx, like); err != nil {
			return err
		}
		return posts.IncrLikeCount(ctx, postID, -1)
	})
	if err != nil {
		return err
	}

	s.invalidateFeed(ctx)
	return nil
}

// ListPostLikes 按时间倒序返回某帖最近的点赞记录及总数。
func (s *LikeService) ListPostLikes(ctx context.Context, postID int64, limit int) ([]*model.Like, int64, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, 0, err
	}
	if post == nil {
		return nil, 0, ErrPostNotFound
	}

	likes, err := s.likes.ListForPost(ctx, postID, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.likes.CountForPost(ctx, postID)
	if err != nil {
		return nil, 0, err
	}
	return likes, total, nil
}

// GetLikeStatus 只读查询，不加锁。
func (s *LikeService) GetLikeStatus(ctx context.Context, userID, postID int64) (*LikeStatus, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	like, err := s.likes.GetOrNil(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return &LikeStatus{Liked: like != nil, Like: like}, nil
}

// invalidateFeed 紧随提交之后同步失效，保证后续读不会命中早于本次变更的页。
func (s *LikeService) invalidateFeed(ctx context.Context) {
	if s.feedCache == nil {
		return
	}
	if err := s.feedCache.InvalidateAll(ctx); err != nil {
		logger.Warn("feed cache invalidation failed", zap.Error(err))
	}
}
