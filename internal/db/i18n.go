package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// I18nString 以 locale -> 文本 的形式保存多语言字段，序列化为 JSON 存库。
type I18nString map[string]string

const fallbackLocale = "en"

// Localize returns the text for the requested locale, falling back to English
// and then to the lexicographically first locale that has content.
func (s I18nString) Localize(locale string) string {
	if len(s) == 0 {
		return ""
	}
	if v, ok := s[locale]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	if v, ok := s[fallbackLocale]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	locales := make([]string, 0, len(s))
	for k, v := range s {
		if strings.TrimSpace(v) != "" {
			locales = append(locales, k)
		}
	}
	if len(locales) == 0 {
		return ""
	}
	sort.Strings(locales)
	return s[locales[0]]
}

// String uses the fallback chain so sorting and log output stay deterministic.
func (s I18nString) String() string {
	return s.Localize(fallbackLocale)
}

// IsEmpty reports whether no locale carries non-blank content.
func (s I18nString) IsEmpty() bool {
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Value implements driver.Valuer for gorm.
func (s I18nString) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for gorm.
func (s *I18nString) Scan(src interface{}) error {
	if src == nil {
		*s = I18nString{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into I18nString", src)
	}

	if len(raw) == 0 {
		*s = I18nString{}
		return nil
	}

	decoded := map[string]string{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return errors.New("malformed i18n column payload")
	}
	*s = decoded
	return nil
}
