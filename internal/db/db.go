package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 eventpages.db。
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "eventpages.db"
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	// sqlite 默认不启用外键，活动下线时对页面的级联删除依赖它。
	// 写进 DSN 让连接池里的每条连接都生效，单独 Exec PRAGMA 只作用于一条连接。
	var err error
	DB, err = gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{})
	if err != nil {
		return err
	}

	// 自动迁移模式，为核心模型创建表
	if err = DB.AutoMigrate(
		&User{},
		&Event{},
		&Page{},
		&LogEntry{},
	); err != nil {
		return err
	}

	// 早期版本在 slug 上建过全局唯一索引，现在唯一性限定在活动内
	migrator := DB.Migrator()
	if migrator.HasIndex(&Page{}, "idx_pages_slug") {
		if dropErr := migrator.DropIndex(&Page{}, "idx_pages_slug"); dropErr != nil {
			return dropErr
		}
	}

	if err := DB.Model(&Page{}).
		Where("content_type = '' OR content_type IS NULL").
		Update("content_type", ContentTypeHTML).Error; err != nil {
		return err
	}

	return nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
