package handler

import (
	"net/http"

	"github.com/eventpages/internal/locale"
	"github.com/gin-gonic/gin"
)

// 宿主系统通过这组接口消费插件贡献的数据：
// 导航入口、页脚链接、首页区块、下单确认提示与活动复制钩子。

// GetNavEntries 返回后台导航贡献项。
func (a *API) GetNavEntries(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": a.hooks.NavEntries(event, c.Query("path")),
	})
}

// GetFooterLinks 返回公开站点页脚的链接列表。
func (a *API) GetFooterLinks(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	lang := locale.Pick(c.Query("lang"), c.GetHeader("Accept-Language"))
	links, err := a.hooks.FooterLinks(event, lang)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// GetFrontPageBottom 返回活动首页底部的链接区块 HTML。
func (a *API) GetFrontPageBottom(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	lang := locale.Pick(c.Query("lang"), c.GetHeader("Accept-Language"))
	block, err := a.hooks.FrontPageBottom(event, lang)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": string(block)})
}

// GetConfirmMessages 返回下单前需要确认的页面提示。
func (a *API) GetConfirmMessages(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	lang := locale.Pick(c.Query("lang"), c.GetHeader("Accept-Language"))
	messages, err := a.hooks.ConfirmMessages(event, lang)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetLogEntryDescription 将审计动作标识翻译为可读文本。
func (a *API) GetLogEntryDescription(c *gin.Context) {
	text, ok := a.hooks.LogEntryDescription(c.Query("action"))
	if !ok {
		respondError(c, http.StatusNotFound, "未知的日志动作")
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": text})
}

type copyEventPayload struct {
	SourceEventID uint `json:"source_event_id"`
	TargetEventID uint `json:"target_event_id"`
}

// CopyEventPages 在宿主复制活动时同步复制全部页面。
func (a *API) CopyEventPages(c *gin.Context) {
	var payload copyEventPayload
	if !bindJSON(c, &payload, "复制请求格式不正确") {
		return
	}
	if payload.SourceEventID == 0 || payload.TargetEventID == 0 {
		respondError(c, http.StatusBadRequest, "缺少源活动或目标活动")
		return
	}

	if err := a.hooks.CopyEventData(payload.SourceEventID, payload.TargetEventID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "页面已复制"})
}
