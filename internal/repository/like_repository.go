package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/hotfeed/internal/model"
)

type LikeRepository interface {
	WithTx(tx *gorm.DB) LikeRepository
	// GetOrNil 未命中返回 (nil, nil)
	GetOrNil(ctx context.Context, userID, postID int64) (*model.Like, error)
	// Create 依赖 ux_like_user_post 唯一键；重复插入返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, like *model.Like) error
	Delete(ctx context.Context, like *model.Like) error
	CountForPost(ctx context.Context, postID int64) (int64, error)
	ListForPost(ctx context.Context, postID int64, limit int) ([]*model.Like, error)
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) WithTx(tx *gorm.DB) LikeRepository { return &likeRepository{db: tx} }

func (r *likeRepository) GetOrNil(ctx context.Context, userID, postID int64) (*model.Like, error) {
	var like model.Like
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (r *likeRepository) Create(ctx context.Context, like *model.Like) error {
	return r.db.WithContext(ctx).Create(like).Error
}

func (r *likeRepository) Delete(ctx context.Context, like *model.Like) error {
	return r.db.WithContext(ctx).
		Where("id = ?", like.ID).
		Delete(&model.Like{}).Error
}

func (r *likeRepository) CountForPost(ctx context.Context, postID int64) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("post_id = ?", postID).
		Count(&cnt).Error
	return cnt, err
}

func (r *likeRepository) ListForPost(ctx context.Context, postID int64, limit int) ([]*model.Like, error) {
	q := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var likes []*model.Like
	err := q.Find(&likes).Error
	return likes, err
}
