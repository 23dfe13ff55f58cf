package db

import "gorm.io/gorm"

// Event 是宿主系统中活动的最小映射：页面归属与公开路径解析只需要这些字段。
// 活动的报名、票务等数据仍由宿主系统管理。
//
// 下线一个活动要用 Unscoped 硬删除。普通 Delete 只是软删除，
// 不会触发数据库层面对页面的级联删除。
type Event struct {
	gorm.Model
	Slug          string `gorm:"uniqueIndex:idx_events_org_slug;not null"`
	OrganizerSlug string `gorm:"uniqueIndex:idx_events_org_slug;not null"`
	Name          string `gorm:"not null"`
}
