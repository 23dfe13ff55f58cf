package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AssetStore persists extracted page images and hands back a durable URL.
// 生产环境里这由宿主的对象存储实现，本服务自带一个本地磁盘版本。
type AssetStore interface {
	Save(path string, data []byte) (string, error)
}

// LocalAssetStore writes assets below a base directory and serves them from a
// static URL prefix, the same layout the image upload endpoint uses.
type LocalAssetStore struct {
	baseDir   string
	urlPrefix string
}

// NewLocalAssetStore returns a store rooted at baseDir, serving under urlPrefix.
func NewLocalAssetStore(baseDir, urlPrefix string) *LocalAssetStore {
	return &LocalAssetStore{baseDir: baseDir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

// Save 将文件写入磁盘并返回对外可访问的 URL。
func (s *LocalAssetStore) Save(path string, data []byte) (string, error) {
	clean := filepath.Clean("/" + path)
	target := filepath.Join(s.baseDir, clean)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create asset directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}

	return s.urlPrefix + strings.ReplaceAll(clean, string(filepath.Separator), "/"), nil
}

// randomAssetName 生成 32 位十六进制文件名，避免可猜测的资源路径。
func randomAssetName() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
