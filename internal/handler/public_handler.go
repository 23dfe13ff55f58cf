package handler

import (
	"html/template"
	"net/http"

	"github.com/eventpages/internal/locale"
	"github.com/gin-gonic/gin"
)

// 公开页面用一个内联模板渲染，净化后的正文直接嵌入。
var publicPageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{ .Lang }}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }} · {{ .EventName }}</title>
{{ .HeadHTML }}
</head>
<body>
<main class="event-page">
<h1>{{ .Title }}</h1>
<article>{{ .Content }}</article>
</main>
{{ if .FooterLinks }}<footer>
<ul class="event-page-footer">
{{- range .FooterLinks }}
<li><a href="{{ .URL }}">{{ .Label }}</a></li>
{{- end }}
</ul>
</footer>{{ end }}
</body>
</html>`))

type publicPageData struct {
	Lang        string
	Title       string
	EventName   string
	Content     template.HTML
	HeadHTML    template.HTML
	FooterLinks []footerLinkView
}

type footerLinkView struct {
	Label string
	URL   string
}

// ShowPage resolves a page by (event, slug) and renders its sanitized content
// for site visitors.
func (a *API) ShowPage(c *gin.Context) {
	event, ok := a.eventFromPath(c)
	if !ok {
		return
	}

	page, err := a.pages.GetBySlug(event.ID, c.Param("slug"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	lang := locale.Pick(c.Query("lang"), c.GetHeader("Accept-Language"))

	content, err := a.pages.Sanitizer().RenderContent(page.Text, lang, page.ContentType)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "页面渲染失败")
		return
	}

	links, err := a.hooks.FooterLinks(event, lang)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	footer := make([]footerLinkView, 0, len(links))
	for _, link := range links {
		footer = append(footer, footerLinkView{Label: link.Label, URL: link.URL})
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := publicPageTemplate.Execute(c.Writer, publicPageData{
		Lang:        lang,
		Title:       page.Title.Localize(lang),
		EventName:   event.Name,
		Content:     content,
		HeadHTML:    a.hooks.PresaleHeadHTML(),
		FooterLinks: footer,
	}); err != nil {
		c.Error(err)
	}
}
