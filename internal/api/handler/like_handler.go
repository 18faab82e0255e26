package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/hotfeed/internal/api/middleware"
	"github.com/d60-Lab/hotfeed/pkg/response"
)

type addLikeRequest struct {
	UserID int64 `json:"user_id"`
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "user_id must be an integer")
		return 0, false
	}
	return id, true
}

// AddLike 点赞
// @Summary 点赞（幂等）
// @Tags 点赞
// @Accept json
// @Produce json
// @Param post_id path int true "帖子ID"
// @Param request body addLikeRequest false "点赞用户；缺省时取 JWT user_id"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Success 201 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/likes [post]
func (h *Handler) AddLike(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		return
	}

	var req addLikeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "user_id must be an integer")
		return
	}
	userID := req.UserID
	if userID == 0 {
		if claim, ok := middleware.UserID(c); ok {
			userID = claim
		}
	}

	like, created, err := h.likeService.AddLike(c.Request.Context(), userID, postID)
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{"like": like, "created": created}
	if created {
		response.Created(c, body)
		return
	}
	response.Success(c, body)
}

// ListLikes 最近点赞
// @Summary 查询帖子最近点赞
// @Tags 点赞
// @Produce json
// @Param post_id path int true "帖子ID"
// @Param limit query int false "条数上限" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/likes [get]
func (h *Handler) ListLikes(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		response.BadRequest(c, "limit must be an integer")
		return
	}

	likes, total, err := h.likeService.ListPostLikes(c.Request.Context(), postID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"total": total, "likes": likes})
}

// RemoveLike 取消点赞
// @Summary 取消点赞
// @Tags 点赞
// @Produce json
// @Param post_id path int true "帖子ID"
// @Param user_id path int true "用户ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/likes/{user_id} [delete]
func (h *Handler) RemoveLike(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		return
	}
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	if err := h.likeService.RemoveLike(c.Request.Context(), userID, postID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// LikeStatus 点赞状态
// @Summary 查询点赞状态
// @Tags 点赞
// @Produce json
// @Param post_id path int true "帖子ID"
// @Param user_id path int true "用户ID"
// @Success 200 {object} response.Response{data=service.LikeStatus}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/likes/{user_id}/status [get]
func (h *Handler) LikeStatus(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		return
	}
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	status, err := h.likeService.GetLikeStatus(c.Request.Context(), userID, postID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, status)
}
