package model

import "time"

// FeedItem 热榜页内单条记录。Score 为最近 24 小时点赞数，按需计算不落库。
type FeedItem struct {
	ID        int64     `json:"id"`
	LikeCount int64     `json:"like_count"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
