// Package locale 负责从请求中确定页面文本的展示语言。
// 页面字段本身可以携带任意 locale，这里只做键的归一化与选择。
package locale

import "strings"

// Default 是多语言字段的兜底语言。
const Default = "en"

// Normalize maps a raw language tag ("zh-CN", "en_US", "de") to the bare
// language key used by the i18n page fields.
func Normalize(raw string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" {
		return ""
	}
	for _, sep := range []string{"-", "_", ";"} {
		if i := strings.Index(tag, sep); i >= 0 {
			tag = tag[:i]
		}
	}
	return tag
}

// FromAcceptLanguage picks the first usable tag of an Accept-Language header.
func FromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		if normalized := Normalize(part); normalized != "" {
			return normalized
		}
	}
	return ""
}

// Pick 依次尝试显式参数与 Accept-Language，最后回退到默认语言。
func Pick(query, acceptLanguage string) string {
	if normalized := Normalize(query); normalized != "" {
		return normalized
	}
	if normalized := FromAcceptLanguage(acceptLanguage); normalized != "" {
		return normalized
	}
	return Default
}
