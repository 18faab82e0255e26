package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/hotfeed/internal/model"
)

// hotWindow 热度统计的滚动窗口
const hotWindow = 24 * time.Hour

type PostRepository interface {
	// WithTx 返回绑定到事务的仓储副本
	WithTx(tx *gorm.DB) PostRepository
	Create(ctx context.Context, post *model.Post) error
	// GetByID 未命中返回 (nil, nil)
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	Update(ctx context.Context, id int64, fields map[string]any) (*model.Post, error)
	Delete(ctx context.Context, id int64) error
	// IncrLikeCount 以相对量更新计数（count = count + delta），避免读-改-写丢失更新
	IncrLikeCount(ctx context.Context, id int64, delta int64) error
	// ListHot 单条语句计算 24h 滚动热度并排序，禁止逐行补查
	ListHot(ctx context.Context, limit, offset int) ([]model.FeedItem, error)
	Score24h(ctx context.Context, id int64) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository { return &postRepository{db: tx} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, id int64, fields map[string]any) (*model.Post, error) {
	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete 同事务删除点赞与帖子（级联交由应用层保证，兼容未开启外键的存储）
func (r *postRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Post{}).Error
	})
}

func (r *postRepository) IncrLikeCount(ctx context.Context, id int64, delta int64) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error
}

func (r *postRepository) ListHot(ctx context.Context, limit, offset int) ([]model.FeedItem, error) {
	since := time.Now().Add(-hotWindow)

	var items []model.FeedItem
	err := r.db.WithContext(ctx).
		Table("posts").
		Select("posts.id, posts.like_count, posts.created_at, COUNT(likes.id) AS score").
		Joins("LEFT JOIN likes ON likes.post_id = posts.id AND likes.created_at >= ?", since).
		Group("posts.id, posts.like_count, posts.created_at").
		Order("score DESC, posts.created_at DESC, posts.id DESC").
		Offset(offset).
		Limit(limit).
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.FeedItem{}
	}
	return items, nil
}

func (r *postRepository) Score24h(ctx context.Context, id int64) (int64, error) {
	since := time.Now().Add(-hotWindow)
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("post_id = ? AND created_at >= ?", id, since).
		Count(&cnt).Error
	return cnt, err
}
