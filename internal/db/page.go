package db

import "gorm.io/gorm"

// 页面内容的源格式，创建后不可修改。
const (
	ContentTypeHTML     = "html"
	ContentTypeMarkdown = "markdown"
)

// Page represents one static content page (FAQ, terms, ...) of an event.
type Page struct {
	gorm.Model
	// 级联只在活动被硬删除时触发，见 Event 的删除说明
	EventID uint  `gorm:"uniqueIndex:idx_pages_event_slug;not null"`
	Event   Event `gorm:"constraint:OnDelete:CASCADE"`

	// Slug 决定页面的公开 URL，创建后不可修改。
	Slug     string     `gorm:"uniqueIndex:idx_pages_event_slug;not null"`
	Position int        `gorm:"default:0"`
	Title    I18nString `gorm:"type:text"`
	Text     I18nString `gorm:"type:text"`

	ContentType string `gorm:"not null;default:html"`

	LinkOnFrontpage     bool `gorm:"default:false"`
	LinkInFooter        bool `gorm:"default:false"`
	RequireConfirmation bool `gorm:"default:false"`
}
