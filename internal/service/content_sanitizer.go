package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log"
	"strings"

	"github.com/eventpages/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/image/webp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(ghtml.WithHardWraps(), ghtml.WithXHTML()),
	)
	markdownPolicy = bluemonday.UGCPolicy()
	pagePolicy     = newPagePolicy()
)

// newPagePolicy 在 UGC 基线上放开页面排版所需的标签与属性。
// data 协议保留给存储阶段未改写的内嵌图片。
func newPagePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("p", "br", "s", "sup", "sub", "u", "h3", "h4", "h5", "h6", "img")
	p.AllowAttrs("href", "title", "target").OnElements("a")
	p.AllowAttrs("class").OnElements("p", "li")
	p.AllowAttrs("src").OnElements("img")
	p.AllowURLSchemes("http", "https", "mailto", "data")
	return p
}

// 存储阶段会改写的内嵌图片类型及其落盘扩展名。
var inlineImageExtensions = map[string]string{
	"image/gif":  ".gif",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ContentSanitizer runs the two-phase pipeline: a destructive rewrite at save
// time that moves data-URI images into the asset store, and a non-destructive
// allow-list pass at render time.
type ContentSanitizer struct {
	store AssetStore
}

// NewContentSanitizer returns a sanitizer backed by the given asset store.
func NewContentSanitizer(store AssetStore) *ContentSanitizer {
	return &ContentSanitizer{store: store}
}

// SanitizeForStorage rewrites every locale of an HTML text so that supported
// data-URI images point at durable assets instead. Markdown text passes
// through unchanged. A fragment that cannot be parsed yields a field error on
// "text".
func (s *ContentSanitizer) SanitizeForStorage(text db.I18nString, contentType, organizer string) (db.I18nString, error) {
	if contentType != db.ContentTypeHTML {
		return text, nil
	}

	out := make(db.I18nString, len(text))
	for locale, fragment := range text {
		rewritten, err := s.extractInlineImages(fragment, organizer)
		if err != nil {
			return nil, newValidationError("text", "页面内容不是合法的 HTML 片段")
		}
		out[locale] = rewritten
	}
	return out, nil
}

// RenderContent 将已存储的文本净化为可直接嵌入模板的 HTML。
func (s *ContentSanitizer) RenderContent(text db.I18nString, locale, contentType string) (template.HTML, error) {
	localized := text.Localize(locale)

	if contentType == db.ContentTypeMarkdown {
		var buf bytes.Buffer
		if err := markdownEngine.Convert([]byte(localized), &buf); err != nil {
			return "", err
		}
		return template.HTML(markdownPolicy.SanitizeBytes(buf.Bytes())), nil
	}

	return template.HTML(pagePolicy.Sanitize(localized)), nil
}

// extractInlineImages parses one HTML fragment, stores every supported
// data-URI image and rewrites its src. The parsed tree is private to this
// call, so the function stays a pure mapping from input to output.
func (s *ContentSanitizer) extractInlineImages(fragment, organizer string) (string, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for _, node := range nodes {
		s.rewriteImages(node, organizer)
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (s *ContentSanitizer) rewriteImages(node *html.Node, organizer string) {
	if node.Type == html.ElementNode && node.DataAtom == atom.Img {
		for i, attr := range node.Attr {
			if attr.Key != "src" {
				continue
			}
			if rewritten, ok := s.storeInlineImage(attr.Val, organizer); ok {
				node.Attr[i].Val = rewritten
			}
		}
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		s.rewriteImages(child, organizer)
	}
}

// storeInlineImage 只处理受支持类型的 data URI；其余 src 原样保留。
// 单张图片落盘失败时跳过改写并继续处理后续内容，保存流程不因此中断。
func (s *ContentSanitizer) storeInlineImage(src, organizer string) (string, bool) {
	mime, payload, ok := parseDataURI(src)
	if !ok {
		return "", false
	}

	ext, supported := inlineImageExtensions[mime]
	if !supported {
		return "", false
	}

	if err := verifyImagePayload(mime, payload); err != nil {
		log.Printf("eventpages: inline image rejected (%s): %v", mime, err)
		return "", false
	}

	path := fmt.Sprintf("%s/pages/img/%s%s", organizer, randomAssetName(), ext)
	url, err := s.store.Save(path, payload)
	if err != nil {
		log.Printf("eventpages: storing inline image failed, keeping data URI: %v", err)
		return "", false
	}
	return url, true
}

// parseDataURI 解析 data:<mime>;base64,<payload> 形式的地址。
func parseDataURI(src string) (string, []byte, bool) {
	if !strings.HasPrefix(src, "data:") {
		return "", nil, false
	}

	comma := strings.Index(src, ",")
	if comma < 0 {
		return "", nil, false
	}

	meta := src[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	mime := strings.ToLower(strings.TrimSuffix(meta, ";base64"))

	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(src[comma+1:]))
	if err != nil {
		return "", nil, false
	}
	return mime, payload, true
}

// verifyImagePayload 确认负载确实能按声明的类型解码，防止伪造 MIME 落盘。
func verifyImagePayload(mime string, payload []byte) error {
	reader := bytes.NewReader(payload)
	var err error
	switch mime {
	case "image/gif":
		_, err = gif.DecodeConfig(reader)
	case "image/jpeg":
		_, err = jpeg.DecodeConfig(reader)
	case "image/png":
		_, err = png.DecodeConfig(reader)
	case "image/webp":
		_, err = webp.DecodeConfig(reader)
	default:
		return fmt.Errorf("unsupported mime type %q", mime)
	}
	return err
}
