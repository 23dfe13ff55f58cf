// Package plugin 暴露宿主系统同步调用的集成点：后台导航、页脚链接、
// 首页区块、下单确认提示、审计日志描述以及活动复制钩子。
package plugin

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/eventpages/internal/cache"
	"github.com/eventpages/internal/db"
	"github.com/eventpages/internal/service"
)

// 聚合缓存键，任何页面变更都会让同一活动下的全部键失效。
const (
	aggregateFooter    = "footer"
	aggregateFrontpage = "frontpage"
	aggregateConfirm   = "confirm"
)

// Link is one navigation or footer entry contributed to the host.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// NavEntry is a management-console navigation contribution.
type NavEntry struct {
	Label  string `json:"label"`
	URL    string `json:"url"`
	Icon   string `json:"icon"`
	Active bool   `json:"active"`
}

// Hooks bundles the extension points the host calls synchronously.
type Hooks struct {
	pages   *service.PageService
	cache   *cache.EventCache
	baseURL string
}

// NewHooks wires the extension points to the page service and cache.
func NewHooks(pages *service.PageService, eventCache *cache.EventCache, baseURL string) *Hooks {
	return &Hooks{pages: pages, cache: eventCache, baseURL: strings.TrimSuffix(baseURL, "/")}
}

var frontPageTemplate = template.Must(template.New("frontpage").Parse(`<div class="event-pages-links">
<ul>
{{- range . }}
<li><a href="{{ .URL }}">{{ .Label }}</a></li>
{{- end }}
</ul>
</div>`))

// 后台导航与页面相关路由的公共前缀
func controlBase(organizer, event string) string {
	return fmt.Sprintf("/control/event/%s/%s/pages", organizer, event)
}

// PublicPageURL 返回页面在公开站点上的地址。
func (h *Hooks) PublicPageURL(event *db.Event, slug string) string {
	return fmt.Sprintf("%s/%s/%s/page/%s", h.baseURL, event.OrganizerSlug, event.Slug, slug)
}

// NavEntries contributes the "页面" entry to the management navigation.
// currentPath 用于判断高亮状态。
func (h *Hooks) NavEntries(event *db.Event, currentPath string) []NavEntry {
	base := controlBase(event.OrganizerSlug, event.Slug)
	return []NavEntry{
		{
			Label:  "页面",
			URL:    base,
			Icon:   "file-text",
			Active: strings.HasPrefix(currentPath, base),
		},
	}
}

// FooterLinks lists the event's pages flagged for the public footer, in
// display order.
func (h *Hooks) FooterLinks(event *db.Event, locale string) ([]Link, error) {
	pages, err := h.flaggedPages(event.ID, aggregateFooter, func(p db.Page) bool {
		return p.LinkInFooter
	})
	if err != nil {
		return nil, err
	}

	links := make([]Link, 0, len(pages))
	for _, page := range pages {
		links = append(links, Link{
			Label: page.Title.Localize(locale),
			URL:   h.PublicPageURL(event, page.Slug),
		})
	}
	return links, nil
}

// FrontPageBottom renders the link block shown below the event's start page.
// Events without flagged pages contribute nothing.
func (h *Hooks) FrontPageBottom(event *db.Event, locale string) (template.HTML, error) {
	pages, err := h.flaggedPages(event.ID, aggregateFrontpage, func(p db.Page) bool {
		return p.LinkOnFrontpage
	})
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", nil
	}

	links := make([]Link, 0, len(pages))
	for _, page := range pages {
		links = append(links, Link{
			Label: page.Title.Localize(locale),
			URL:   h.PublicPageURL(event, page.Slug),
		})
	}

	var buf bytes.Buffer
	if err := frontPageTemplate.Execute(&buf, links); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// ConfirmMessages returns the acknowledgment sentence shown before checkout,
// linking every page that requires confirmation. The map is empty when no
// page carries the flag.
func (h *Hooks) ConfirmMessages(event *db.Event, locale string) (map[string]template.HTML, error) {
	pages, err := h.flaggedPages(event.ID, aggregateConfirm, func(p db.Page) bool {
		return p.RequireConfirmation
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return map[string]template.HTML{}, nil
	}

	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`,
			template.HTMLEscapeString(h.PublicPageURL(event, page.Slug)),
			template.HTMLEscapeString(page.Title.Localize(locale))))
	}

	sentence := "我已阅读并同意以下页面的内容：" + strings.Join(parts, "、")
	return map[string]template.HTML{"pages": template.HTML(sentence)}, nil
}

// LogEntryDescription maps an audit action type to human-readable text.
func (h *Hooks) LogEntryDescription(actionType string) (string, bool) {
	descriptions := map[string]string{
		db.ActionPageAdded:   "页面已创建。",
		db.ActionPageChanged: "页面已修改。",
		db.ActionPageDeleted: "页面已删除。",
	}
	text, ok := descriptions[actionType]
	return text, ok
}

// CopyEventData duplicates all pages when the host clones an event.
func (h *Hooks) CopyEventData(srcEventID, dstEventID uint) error {
	return h.pages.CopyPages(srcEventID, dstEventID)
}

// ControlHeadHTML 注入后台控制台页面编辑所需的头部标记。
func (h *Hooks) ControlHeadHTML() template.HTML {
	return `<link rel="stylesheet" href="/static/eventpages/editor.css">
<script defer src="/static/eventpages/editor.js"></script>`
}

// PresaleHeadHTML 注入公开站点页面展示所需的头部标记。
func (h *Hooks) PresaleHeadHTML() template.HTML {
	return `<link rel="stylesheet" href="/static/eventpages/page.css">`
}

// flaggedPages 返回按展示顺序过滤后的页面，优先读取聚合缓存。
func (h *Hooks) flaggedPages(eventID uint, aggregate string, keep func(db.Page) bool) ([]db.Page, error) {
	if cached, ok := h.cache.Get(eventID, aggregate); ok {
		if pages, ok := cached.([]db.Page); ok {
			return pages, nil
		}
	}

	all, err := h.pages.List(eventID)
	if err != nil {
		return nil, err
	}

	filtered := make([]db.Page, 0, len(all))
	for _, page := range all {
		if keep(page) {
			filtered = append(filtered, page)
		}
	}

	h.cache.Set(eventID, aggregate, filtered)
	return filtered, nil
}
