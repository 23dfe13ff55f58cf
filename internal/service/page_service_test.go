package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/eventpages/internal/cache"
	"github.com/eventpages/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupPageServiceTest(t *testing.T) (*PageService, *cache.EventCache, func()) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.Event{}, &db.Page{}, &db.LogEntry{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	store := NewLocalAssetStore(t.TempDir(), "https://cdn.example.com/assets")
	eventCache := cache.New()
	svc := NewPageService(gdb, NewContentSanitizer(store), eventCache)

	return svc, eventCache, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func createTestEvent(t *testing.T, svc *PageService, organizer, slug string) *db.Event {
	t.Helper()
	event := db.Event{Slug: slug, OrganizerSlug: organizer, Name: "Demo Conf"}
	if err := svc.db.Create(&event).Error; err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	return &event
}

func htmlPageInput(slug, title string) PageInput {
	return PageInput{
		Slug:        slug,
		Title:       db.I18nString{"en": title},
		Text:        db.I18nString{"en": "<p>" + title + "</p>"},
		ContentType: db.ContentTypeHTML,
	}
}

func TestCreatePagePersistsAndLogs(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	page, err := svc.Create(event.ID, 7, htmlPageInput("faq", "FAQ"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if page.Slug != "faq" || page.Position != 0 {
		t.Fatalf("unexpected page: slug=%q position=%d", page.Slug, page.Position)
	}

	var entry db.LogEntry
	if err := svc.db.Where("page_id = ?", page.ID).First(&entry).Error; err != nil {
		t.Fatalf("expected audit entry: %v", err)
	}
	if entry.ActionType != db.ActionPageAdded || entry.UserID != 7 || entry.EventID != event.ID {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

func TestCreatePageValidatesSlug(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	for _, slug := range []string{"", "has space", "has/slash", "uml%aut"} {
		input := htmlPageInput(slug, "FAQ")
		_, err := svc.Create(event.ID, 1, input)
		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("slug %q: expected validation error, got %v", slug, err)
		}
		if validation.Field != "slug" {
			t.Fatalf("slug %q: expected field slug, got %q", slug, validation.Field)
		}
	}

	// 点和连字符是合法的
	if _, err := svc.Create(event.ID, 1, htmlPageInput("terms-of.service", "Terms")); err != nil {
		t.Fatalf("dots and dashes must be allowed: %v", err)
	}
}

func TestCreatePageRejectsDuplicateSlugWithinEvent(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")
	other := createTestEvent(t, svc, "org", "other")

	if _, err := svc.Create(event.ID, 1, htmlPageInput("faq", "FAQ")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := svc.Create(event.ID, 1, htmlPageInput("faq", "FAQ again"))
	var validation *ValidationError
	if !errors.As(err, &validation) || validation.Field != "slug" {
		t.Fatalf("expected slug validation error, got %v", err)
	}

	// 同一个 slug 在另一个活动下可用
	if _, err := svc.Create(other.ID, 1, htmlPageInput("faq", "FAQ")); err != nil {
		t.Fatalf("same slug under another event must succeed: %v", err)
	}
}

func TestCreatePageRequiresTitleAndContentType(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	input := htmlPageInput("faq", "FAQ")
	input.Title = db.I18nString{}
	if _, err := svc.Create(event.ID, 1, input); err == nil {
		t.Fatal("expected error for empty title")
	}

	input = htmlPageInput("faq", "FAQ")
	input.ContentType = "rst"
	var validation *ValidationError
	_, err := svc.Create(event.ID, 1, input)
	if !errors.As(err, &validation) || validation.Field != "content_type" {
		t.Fatalf("expected content_type validation error, got %v", err)
	}
}

func TestCreatePageAppendsToEndOfOrder(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	first, _ := svc.Create(event.ID, 1, htmlPageInput("a", "A"))
	second, err := svc.Create(event.ID, 1, htmlPageInput("b", "B"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if first.Position != 0 || second.Position != 1 {
		t.Fatalf("expected positions 0 and 1, got %d and %d", first.Position, second.Position)
	}
}

func TestCreatePageAppendsToEndAfterDeletion(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	alpha, err := svc.Create(event.ID, 1, htmlPageInput("alpha", "Alpha"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Create(event.ID, 1, htmlPageInput("mike", "Mike")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Create(event.ID, 1, htmlPageInput("zulu", "Zulu")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Delete(event.ID, alpha.ID, 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	// 删除后 position 序列有空洞，新页面仍然追加到末尾
	brandNew, err := svc.Create(event.ID, 1, htmlPageInput("brand-new", "Brand New"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if brandNew.Position != 3 {
		t.Fatalf("expected position 3 past the gap, got %d", brandNew.Position)
	}
	assertOrder(t, svc, event.ID, "mike", "zulu", "brand-new")
}

func TestSlugUniqueIndexViolationMapsToFieldError(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	if _, err := svc.Create(event.ID, 1, htmlPageInput("faq", "FAQ")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 绕过服务层直接插入同名行，模拟并发创建越过重复检查后撞上唯一索引
	dup := db.Page{EventID: event.ID, Slug: "faq", ContentType: db.ContentTypeHTML}
	rawErr := svc.db.Create(&dup).Error
	if rawErr == nil {
		t.Fatal("expected unique index violation")
	}

	var validation *ValidationError
	if !errors.As(asSlugConflict(rawErr), &validation) || validation.Field != "slug" {
		t.Fatalf("expected slug field error, got %v", rawErr)
	}
}

func TestUpdatePageKeepsSlugAndContentTypeImmutable(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	page, err := svc.Create(event.ID, 1, htmlPageInput("faq", "FAQ"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, err = svc.Update(event.ID, page.ID, 1, PageUpdateInput{
		Slug:  "renamed",
		Title: page.Title,
		Text:  page.Text,
	})
	var validation *ValidationError
	if !errors.As(err, &validation) || validation.Field != "slug" {
		t.Fatalf("expected slug immutability error, got %v", err)
	}

	_, err = svc.Update(event.ID, page.ID, 1, PageUpdateInput{
		ContentType: db.ContentTypeMarkdown,
		Title:       page.Title,
		Text:        page.Text,
	})
	if !errors.As(err, &validation) || validation.Field != "content_type" {
		t.Fatalf("expected content_type immutability error, got %v", err)
	}
}

func TestUpdatePageLogsOnlyChangedFields(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	page, err := svc.Create(event.ID, 1, htmlPageInput("faq", "FAQ"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := svc.Update(event.ID, page.ID, 3, PageUpdateInput{
		Title:        page.Title,
		Text:         page.Text,
		LinkInFooter: true,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !updated.LinkInFooter {
		t.Fatal("expected footer flag to be saved")
	}

	var entry db.LogEntry
	err = svc.db.Where("page_id = ? AND action_type = ?", page.ID, db.ActionPageChanged).
		First(&entry).Error
	if err != nil {
		t.Fatalf("expected change audit entry: %v", err)
	}

	changed := map[string]interface{}{}
	if err := json.Unmarshal([]byte(entry.Data), &changed); err != nil {
		t.Fatalf("audit data is not json: %v", err)
	}
	if len(changed) != 1 {
		t.Fatalf("expected exactly one changed field, got %v", changed)
	}
	if _, ok := changed["link_in_footer"]; !ok {
		t.Fatalf("expected link_in_footer in audit data, got %v", changed)
	}
}

func TestUpdateWithoutChangesWritesNoAuditEntry(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	page, err := svc.Create(event.ID, 1, htmlPageInput("faq", "FAQ"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.Update(event.ID, page.ID, 1, PageUpdateInput{
		Title: page.Title,
		Text:  page.Text,
	}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	var count int64
	svc.db.Model(&db.LogEntry{}).
		Where("page_id = ? AND action_type = ?", page.ID, db.ActionPageChanged).
		Count(&count)
	if count != 0 {
		t.Fatalf("expected no change entry for no-op update, got %d", count)
	}
}

func TestDeletePageRemovesRowAndLogs(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	page, err := svc.Create(event.ID, 1, htmlPageInput("faq", "FAQ"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Delete(event.ID, page.ID, 2); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := svc.Get(event.ID, page.ID); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound after delete, got %v", err)
	}

	var entry db.LogEntry
	err = svc.db.Where("page_id = ? AND action_type = ?", page.ID, db.ActionPageDeleted).
		First(&entry).Error
	if err != nil {
		t.Fatalf("expected delete audit entry: %v", err)
	}
}

func TestDeleteMissingPageReturnsNotFound(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	if err := svc.Delete(event.ID, 999, 1); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestCopyPagesDuplicatesAllPages(t *testing.T) {
	svc, _, cleanup := setupPageServiceTest(t)
	defer cleanup()
	src := createTestEvent(t, svc, "org", "conf")
	dst := createTestEvent(t, svc, "org", "conf-copy")

	input := htmlPageInput("terms", "Terms")
	input.RequireConfirmation = true
	if _, err := svc.Create(src.ID, 1, input); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Create(src.ID, 1, htmlPageInput("faq", "FAQ")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.CopyPages(src.ID, dst.ID); err != nil {
		t.Fatalf("CopyPages returned error: %v", err)
	}

	copied, err := svc.List(dst.ID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(copied) != 2 {
		t.Fatalf("expected 2 copied pages, got %d", len(copied))
	}
	if copied[0].Slug != "terms" || !copied[0].RequireConfirmation {
		t.Fatalf("copy lost fields: %+v", copied[0])
	}

	// 原活动的页面保持不变
	originals, _ := svc.List(src.ID)
	if len(originals) != 2 {
		t.Fatalf("source pages must survive the copy, got %d", len(originals))
	}
}

func TestMutationsInvalidateAggregateCache(t *testing.T) {
	svc, eventCache, cleanup := setupPageServiceTest(t)
	defer cleanup()
	event := createTestEvent(t, svc, "org", "conf")

	eventCache.Set(event.ID, "footer", "stale")
	page, err := svc.Create(event.ID, 1, htmlPageInput("faq", "FAQ"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, ok := eventCache.Get(event.ID, "footer"); ok {
		t.Fatal("create must invalidate aggregates")
	}

	eventCache.Set(event.ID, "footer", "stale")
	if _, err := svc.Update(event.ID, page.ID, 1, PageUpdateInput{
		Title: page.Title, Text: page.Text, LinkInFooter: true,
	}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if _, ok := eventCache.Get(event.ID, "footer"); ok {
		t.Fatal("update must invalidate aggregates")
	}

	eventCache.Set(event.ID, "footer", "stale")
	if err := svc.Delete(event.ID, page.ID, 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok := eventCache.Get(event.ID, "footer"); ok {
		t.Fatal("delete must invalidate aggregates")
	}
}
