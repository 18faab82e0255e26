package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/hotfeed/pkg/response"
)

func parsePostID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "post_id must be an integer")
		return 0, false
	}
	return id, true
}

// bindFields 读取 JSON 对象请求体；空请求体按空对象处理。
func bindFields(c *gin.Context) (map[string]any, bool) {
	fields := map[string]any{}
	if err := c.ShouldBindJSON(&fields); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "request body must be a JSON object")
		return nil, false
	}
	return fields, true
}

// CreatePost 建帖
// @Summary 创建帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}
	post, err := h.postService.Create(c.Request.Context(), fields)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, post)
}

// GetPost 查帖
// @Summary 查询帖子
// @Tags 帖子
// @Produce json
// @Param post_id path int true "帖子ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	post, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, post)
}

// UpdatePost 改帖；like_count 与 created_at 禁止直改
// @Summary 更新帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Param post_id path int true "帖子ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	fields, ok := bindFields(c)
	if !ok {
		return
	}
	post, err := h.postService.Update(c.Request.Context(), id, fields)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, post)
}

// DeletePost 删帖（连带点赞记录）
// @Summary 删除帖子
// @Tags 帖子
// @Produce json
// @Param post_id path int true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	if err := h.postService.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// PostAggregates 聚合视图
// @Summary 帖子聚合（总赞数 + 24h 热度）
// @Tags 帖子
// @Produce json
// @Param post_id path int true "帖子ID"
// @Success 200 {object} response.Response{data=service.PostAggregates}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/aggregates [get]
func (h *Handler) PostAggregates(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	agg, err := h.postService.GetAggregates(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, agg)
}
