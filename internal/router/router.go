package router

import (
	"github.com/eventpages/internal/config"
	"github.com/eventpages/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg config.AppConfig) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("eventpages_session", store))

	// 提取出来的内嵌图片走静态文件服务
	r.Static(cfg.AssetURLPath, cfg.AssetDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.POST("/control/login", handler.Login)
	r.GET("/control/logout", handler.Logout)

	// 后台管理路由，需要操作员会话
	control := r.Group("/control/event/:organizer/:event")
	control.Use(handler.AuthRequired())
	{
		pages := control.Group("/pages")
		{
			pages.GET("", api.ListPages)
			pages.POST("", api.CreatePage)
			pages.GET("/:page", api.GetPage)
			pages.PUT("/:page", api.UpdatePage)
			pages.DELETE("/:page", api.DeletePage)
			pages.POST("/:page/up", api.MovePageUp)
			pages.POST("/:page/down", api.MovePageDown)
		}
	}

	// 宿主系统消费的集成接口
	integration := r.Group("/integration")
	{
		integration.GET("/event/:organizer/:event/nav", api.GetNavEntries)
		integration.GET("/event/:organizer/:event/footer-links", api.GetFooterLinks)
		integration.GET("/event/:organizer/:event/front-page-bottom", api.GetFrontPageBottom)
		integration.GET("/event/:organizer/:event/confirm-messages", api.GetConfirmMessages)
		integration.GET("/logentry-description", api.GetLogEntryDescription)
		integration.POST("/copy-event", api.CopyEventPages)
	}

	// 公开站点路由
	r.GET("/:organizer/:event/page/:slug", api.ShowPage)

	return r
}
