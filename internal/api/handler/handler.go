package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/hotfeed/internal/service"
	"github.com/d60-Lab/hotfeed/pkg/response"
)

type Handler struct {
	postService *service.PostService
	likeService *service.LikeService
	feedService *service.FeedService
}

func New(posts *service.PostService, likes *service.LikeService, feed *service.FeedService) *Handler {
	return &Handler{postService: posts, likeService: likes, feedService: feed}
}

// writeError 把服务层错误映射为 HTTP 语义。
func writeError(c *gin.Context, err error) {
	switch {
	case service.IsValidation(err):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrPostNotFound), errors.Is(err, service.ErrLikeNotFound):
		response.NotFound(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
