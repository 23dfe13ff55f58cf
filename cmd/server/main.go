package main

import (
	"log"

	"github.com/eventpages/internal/cache"
	"github.com/eventpages/internal/config"
	"github.com/eventpages/internal/db"
	"github.com/eventpages/internal/handler"
	"github.com/eventpages/internal/plugin"
	"github.com/eventpages/internal/router"
	"github.com/eventpages/internal/service"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 按需创建初始操作员账号
	if err := db.EnsureUser(cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatalf("failed to ensure root user: %v", err)
	}

	assets := service.NewLocalAssetStore(cfg.AssetDir, cfg.SiteBaseURL+cfg.AssetURLPath)
	sanitizer := service.NewContentSanitizer(assets)
	eventCache := cache.New()
	pages := service.NewPageService(db.DB, sanitizer, eventCache)
	hooks := plugin.NewHooks(pages, eventCache, cfg.SiteBaseURL)

	api := handler.NewAPI(db.DB, pages, hooks)

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
