package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/hotfeed/pkg/response"
)

// HotFeed 热榜
// @Summary 24h 热榜
// @Tags 热榜
// @Produce json
// @Param limit query int false "页大小" default(50)
// @Param offset query int false "偏移" default(0)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Router /api/v1/feed/hot [get]
func (h *Handler) HotFeed(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		response.BadRequest(c, "limit must be an integer")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		response.BadRequest(c, "offset must be an integer")
		return
	}

	items, err := h.feedService.GetHotFeed(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"posts": items})
}
