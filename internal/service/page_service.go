package service

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/eventpages/internal/cache"
	"github.com/eventpages/internal/db"
	"gorm.io/gorm"
)

var (
	ErrPageNotFound  = errors.New("page not found")
	ErrEventNotFound = errors.New("event not found")
)

// PageService owns the page lifecycle of an event: CRUD with audit logging,
// manual ordering and the cache invalidation that keeps derived aggregates
// (footer links, front page block, confirmation list) honest.
type PageService struct {
	db        *gorm.DB
	sanitizer *ContentSanitizer
	cache     *cache.EventCache

	// 同进程内的排序操作串行执行；跨进程的并发排序仍依赖数据库事务，
	// 结果是最后提交者生效。
	reorderMu sync.Mutex
}

// NewPageService returns a new PageService instance.
func NewPageService(gdb *gorm.DB, sanitizer *ContentSanitizer, eventCache *cache.EventCache) *PageService {
	return &PageService{db: gdb, sanitizer: sanitizer, cache: eventCache}
}

// PageInput 为创建页面提交的全部字段。
type PageInput struct {
	Slug                string
	Title               db.I18nString
	Text                db.I18nString
	ContentType         string
	LinkOnFrontpage     bool
	LinkInFooter        bool
	RequireConfirmation bool
}

// PageUpdateInput 为编辑页面提交的字段。Slug 与 ContentType 仅用于
// 检测非法修改，二者在创建后不可变。
type PageUpdateInput struct {
	Slug                string
	Title               db.I18nString
	Text                db.I18nString
	ContentType         string
	LinkOnFrontpage     bool
	LinkInFooter        bool
	RequireConfirmation bool
}

// GetEvent resolves an event by organizer and event slug.
func (s *PageService) GetEvent(organizer, event string) (*db.Event, error) {
	var record db.Event
	err := s.db.Where("organizer_slug = ? AND slug = ?", organizer, event).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &record, nil
}

// List returns the event's pages in canonical display order.
func (s *PageService) List(eventID uint) ([]db.Page, error) {
	var pages []db.Page
	if err := s.db.Where("event_id = ?", eventID).Find(&pages).Error; err != nil {
		return nil, err
	}
	sortPages(pages)
	return pages, nil
}

// Get fetches one page of the event by id.
func (s *PageService) Get(eventID, pageID uint) (*db.Page, error) {
	var page db.Page
	err := s.db.Where("event_id = ? AND id = ?", eventID, pageID).First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

// GetBySlug fetches one page of the event by its public slug.
func (s *PageService) GetBySlug(eventID uint, slug string) (*db.Page, error) {
	var page db.Page
	err := s.db.Where("event_id = ? AND slug = ?", eventID, slug).First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

// Create validates the input, runs the storage-time sanitization and persists
// the page together with its audit log entry. The new page lands at the end
// of the display order.
func (s *PageService) Create(eventID, userID uint, input PageInput) (*db.Page, error) {
	var event db.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		return nil, newValidationError("slug", "请填写页面的 URL 标识")
	}
	if !validSlug(slug) {
		return nil, newValidationError("slug", "URL 标识只能包含字母、数字、点和连字符")
	}
	if input.Title.IsEmpty() {
		return nil, newValidationError("title", "请填写页面标题")
	}
	if input.ContentType != db.ContentTypeHTML && input.ContentType != db.ContentTypeMarkdown {
		return nil, newValidationError("content_type", "内容格式只支持 html 或 markdown")
	}

	text, err := s.sanitizer.SanitizeForStorage(input.Text, input.ContentType, event.OrganizerSlug)
	if err != nil {
		return nil, err
	}

	page := db.Page{
		EventID:             eventID,
		Slug:                slug,
		Title:               input.Title,
		Text:                text,
		ContentType:         input.ContentType,
		LinkOnFrontpage:     input.LinkOnFrontpage,
		LinkInFooter:        input.LinkInFooter,
		RequireConfirmation: input.RequireConfirmation,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var duplicates int64
		if err := tx.Model(&db.Page{}).
			Where("event_id = ? AND slug = ?", eventID, slug).
			Count(&duplicates).Error; err != nil {
			return err
		}
		if duplicates > 0 {
			return newValidationError("slug", "该活动下已存在同名 URL 标识的页面")
		}

		// 删除不回填 position 序列，末尾追加要看最大值而不是行数
		var maxPosition int
		if err := tx.Model(&db.Page{}).
			Where("event_id = ?", eventID).
			Select("COALESCE(MAX(position), -1)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}
		page.Position = maxPosition + 1

		if err := tx.Create(&page).Error; err != nil {
			return asSlugConflict(err)
		}
		return writeLogEntry(tx, eventID, page.ID, userID, db.ActionPageAdded, map[string]interface{}{
			"slug":                 page.Slug,
			"title":                page.Title,
			"content_type":         page.ContentType,
			"link_on_frontpage":    page.LinkOnFrontpage,
			"link_in_footer":       page.LinkInFooter,
			"require_confirmation": page.RequireConfirmation,
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(eventID)
	return &page, nil
}

// Update saves the mutable fields of a page. Attempts to change the slug or
// the content type fail with a field error; the audit log entry records only
// the fields that actually changed.
func (s *PageService) Update(eventID, pageID, userID uint, input PageUpdateInput) (*db.Page, error) {
	page, err := s.Get(eventID, pageID)
	if err != nil {
		return nil, err
	}

	if slug := strings.TrimSpace(input.Slug); slug != "" && slug != page.Slug {
		return nil, newValidationError("slug", "URL 标识创建后不可修改")
	}
	if ct := strings.TrimSpace(input.ContentType); ct != "" && ct != page.ContentType {
		return nil, newValidationError("content_type", "内容格式创建后不可修改")
	}
	if input.Title.IsEmpty() {
		return nil, newValidationError("title", "请填写页面标题")
	}

	var event db.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		return nil, err
	}

	text, err := s.sanitizer.SanitizeForStorage(input.Text, page.ContentType, event.OrganizerSlug)
	if err != nil {
		return nil, err
	}

	changed := map[string]interface{}{}
	if !equalI18n(page.Title, input.Title) {
		changed["title"] = input.Title
	}
	if !equalI18n(page.Text, text) {
		changed["text"] = text
	}
	if page.LinkOnFrontpage != input.LinkOnFrontpage {
		changed["link_on_frontpage"] = input.LinkOnFrontpage
	}
	if page.LinkInFooter != input.LinkInFooter {
		changed["link_in_footer"] = input.LinkInFooter
	}
	if page.RequireConfirmation != input.RequireConfirmation {
		changed["require_confirmation"] = input.RequireConfirmation
	}

	page.Title = input.Title
	page.Text = text
	page.LinkOnFrontpage = input.LinkOnFrontpage
	page.LinkInFooter = input.LinkInFooter
	page.RequireConfirmation = input.RequireConfirmation

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(page).Error; err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		return writeLogEntry(tx, eventID, page.ID, userID, db.ActionPageChanged, changed)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(eventID)
	return page, nil
}

// Delete removes a page and records the deletion in the audit log.
func (s *PageService) Delete(eventID, pageID, userID uint) error {
	page, err := s.Get(eventID, pageID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := writeLogEntry(tx, eventID, page.ID, userID, db.ActionPageDeleted, map[string]interface{}{
			"slug": page.Slug,
		}); err != nil {
			return err
		}
		return tx.Unscoped().Delete(page).Error
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(eventID)
	return nil
}

// MoveUp swaps a page with its predecessor in display order. Moving the first
// page is a no-op.
func (s *PageService) MoveUp(eventID, pageID uint) error {
	return s.move(eventID, pageID, -1)
}

// MoveDown swaps a page with its successor in display order. Moving the last
// page is a no-op.
func (s *PageService) MoveDown(eventID, pageID uint) error {
	return s.move(eventID, pageID, +1)
}

func (s *PageService) move(eventID, pageID uint, delta int) error {
	s.reorderMu.Lock()
	defer s.reorderMu.Unlock()

	pages, err := s.List(eventID)
	if err != nil {
		return err
	}

	index := -1
	for i := range pages {
		if pages[i].ID == pageID {
			index = i
			break
		}
	}
	if index < 0 {
		return ErrPageNotFound
	}

	target := index + delta
	if target >= 0 && target < len(pages) {
		pages[index], pages[target] = pages[target], pages[index]
	}

	// 无论是否发生交换都把 position 归一化为 0..n-1 的密集序列
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range pages {
			if pages[i].Position == i {
				continue
			}
			if err := tx.Model(&db.Page{}).
				Where("id = ?", pages[i].ID).
				Update("position", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(eventID)
	return nil
}

// CopyPages duplicates every page of one event onto another, preserving order
// and flags. Used by the host when an event is cloned.
func (s *PageService) CopyPages(srcEventID, dstEventID uint) error {
	pages, err := s.List(srcEventID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, page := range pages {
			clone := db.Page{
				EventID:             dstEventID,
				Slug:                page.Slug,
				Position:            page.Position,
				Title:               page.Title,
				Text:                page.Text,
				ContentType:         page.ContentType,
				LinkOnFrontpage:     page.LinkOnFrontpage,
				LinkInFooter:        page.LinkInFooter,
				RequireConfirmation: page.RequireConfirmation,
			}
			if err := tx.Create(&clone).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(dstEventID)
	return nil
}

// Sanitizer exposes the pipeline for the rendering surface.
func (s *PageService) Sanitizer() *ContentSanitizer {
	return s.sanitizer
}

// DB exposes the underlying gorm instance for bootstrap paths.
func (s *PageService) DB() *gorm.DB {
	return s.db
}

// sortPages 按 (position, 标题文本) 排序，与公开展示顺序一致。
func sortPages(pages []db.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Position != pages[j].Position {
			return pages[i].Position < pages[j].Position
		}
		return pages[i].Title.String() < pages[j].Title.String()
	})
}

// asSlugConflict 把唯一索引冲突映射成字段错误。并发创建可能在事务内的
// 重复检查之后才撞上 (event_id, slug) 索引，这里兜底。
func asSlugConflict(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return newValidationError("slug", "该活动下已存在同名 URL 标识的页面")
	}
	return err
}

func equalI18n(a, b db.I18nString) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func writeLogEntry(tx *gorm.DB, eventID, pageID, userID uint, action string, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.Create(&db.LogEntry{
		EventID:    eventID,
		PageID:     pageID,
		ActionType: action,
		UserID:     userID,
		Data:       string(payload),
	}).Error
}
