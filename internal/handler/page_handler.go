package handler

import (
	"net/http"

	"github.com/eventpages/internal/db"
	"github.com/eventpages/internal/service"
	"github.com/gin-gonic/gin"
)

type pagePayload struct {
	Slug                string            `json:"slug"`
	Title               map[string]string `json:"title"`
	Text                map[string]string `json:"text"`
	ContentType         string            `json:"content_type"`
	LinkOnFrontpage     bool              `json:"link_on_frontpage"`
	LinkInFooter        bool              `json:"link_in_footer"`
	RequireConfirmation bool              `json:"require_confirmation"`
}

func pageView(hooksURL string, page *db.Page) gin.H {
	return gin.H{
		"id":                   page.ID,
		"slug":                 page.Slug,
		"position":             page.Position,
		"title":                page.Title,
		"text":                 page.Text,
		"content_type":         page.ContentType,
		"link_on_frontpage":    page.LinkOnFrontpage,
		"link_in_footer":       page.LinkInFooter,
		"require_confirmation": page.RequireConfirmation,
		"url":                  hooksURL,
	}
}

// ListPages 按展示顺序返回活动的全部页面。
func (a *API) ListPages(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	pages, err := a.pages.List(event.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	views := make([]gin.H, 0, len(pages))
	for i := range pages {
		views = append(views, pageView(a.hooks.PublicPageURL(event, pages[i].Slug), &pages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"pages": views})
}

// CreatePage 创建页面并写入审计日志。
func (a *API) CreatePage(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	var payload pagePayload
	if !bindJSON(c, &payload, "页面数据格式不正确") {
		return
	}

	page, err := a.pages.Create(event.ID, currentUserID(c), service.PageInput{
		Slug:                payload.Slug,
		Title:               db.I18nString(payload.Title),
		Text:                db.I18nString(payload.Text),
		ContentType:         payload.ContentType,
		LinkOnFrontpage:     payload.LinkOnFrontpage,
		LinkInFooter:        payload.LinkInFooter,
		RequireConfirmation: payload.RequireConfirmation,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "页面已创建",
		"page":    pageView(a.hooks.PublicPageURL(event, page.Slug), page),
	})
}

// GetPage 返回单个页面。
func (a *API) GetPage(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	pageID, err := parseUintParam(c, "page")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := a.pages.Get(event.ID, pageID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"page": pageView(a.hooks.PublicPageURL(event, page.Slug), page)})
}

// UpdatePage 保存页面的可变字段，slug 与内容格式不可修改。
func (a *API) UpdatePage(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	pageID, err := parseUintParam(c, "page")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var payload pagePayload
	if !bindJSON(c, &payload, "页面数据格式不正确") {
		return
	}

	page, err := a.pages.Update(event.ID, pageID, currentUserID(c), service.PageUpdateInput{
		Slug:                payload.Slug,
		Title:               db.I18nString(payload.Title),
		Text:                db.I18nString(payload.Text),
		ContentType:         payload.ContentType,
		LinkOnFrontpage:     payload.LinkOnFrontpage,
		LinkInFooter:        payload.LinkInFooter,
		RequireConfirmation: payload.RequireConfirmation,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "修改已保存",
		"page":    pageView(a.hooks.PublicPageURL(event, page.Slug), page),
	})
}

// DeletePage 删除页面并写入审计日志。
func (a *API) DeletePage(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	pageID, err := parseUintParam(c, "page")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.pages.Delete(event.ID, pageID, currentUserID(c)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "页面已删除"})
}

// MovePageUp 将页面在展示顺序中上移一位。
func (a *API) MovePageUp(c *gin.Context) {
	a.movePage(c, a.pages.MoveUp)
}

// MovePageDown 将页面在展示顺序中下移一位。
func (a *API) MovePageDown(c *gin.Context) {
	a.movePage(c, a.pages.MoveDown)
}

func (a *API) movePage(c *gin.Context, move func(eventID, pageID uint) error) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	pageID, err := parseUintParam(c, "page")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := move(event.ID, pageID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "顺序已调整"})
}
