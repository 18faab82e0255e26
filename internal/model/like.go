package model

import "time"

// Like 点赞记录
type Like struct {
	ID     int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	PostID int64 `json:"post_id" gorm:"not null;uniqueIndex:ux_like_user_post;index:idx_like_post_time,priority:1"`
	UserID int64 `json:"user_id" gorm:"not null;uniqueIndex:ux_like_user_post"`
	// 复合唯一键，避免重复点赞
	// ux_like_user_post = (post_id, user_id)
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_like_created;index:idx_like_post_time,priority:2"`
}

func (Like) TableName() string { return "likes" }
