package model

import "time"

// Post 热榜内容主体。like_count 为冗余计数，仅由点赞事务维护。
type Post struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	LikeCount int64     `json:"like_count" gorm:"not null;default:0;index:idx_post_hot,priority:1"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_post_hot,priority:2"`
}

func (Post) TableName() string { return "posts" }
