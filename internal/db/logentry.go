package db

import "gorm.io/gorm"

// 审计日志动作标识，宿主系统用它查询可读描述。
const (
	ActionPageAdded   = "pages.page.added"
	ActionPageChanged = "pages.page.changed"
	ActionPageDeleted = "pages.page.deleted"
)

// LogEntry records one audited page mutation. Entries are written inside the
// same transaction as the mutation itself so the two can never diverge.
type LogEntry struct {
	gorm.Model
	EventID    uint   `gorm:"index;not null"`
	PageID     uint   `gorm:"index"`
	ActionType string `gorm:"not null"`
	UserID     uint
	Data       string `gorm:"type:text"`
}
