package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/eventpages/internal/db"
	"github.com/eventpages/internal/service"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// respondServiceError 将服务层错误映射为 HTTP 响应：
// 校验错误带字段名返回 400，未找到返回 404，其余一律 500。
func respondServiceError(c *gin.Context, err error) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"field": validation.Field,
			"error": validation.Message,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrPageNotFound):
		respondError(c, http.StatusNotFound, "页面不存在")
	case errors.Is(err, service.ErrEventNotFound):
		respondError(c, http.StatusNotFound, "活动不存在")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败，请稍后重试")
	}
}

// eventFromPath 根据 :organizer/:event 路径参数解析活动，失败时已写入响应。
func (a *API) eventFromPath(c *gin.Context) (*db.Event, bool) {
	event, err := a.pages.GetEvent(c.Param("organizer"), c.Param("event"))
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return event, true
}
