package handler

import (
	"github.com/eventpages/internal/plugin"
	"github.com/eventpages/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db    *gorm.DB
	pages *service.PageService
	hooks *plugin.Hooks
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, pages *service.PageService, hooks *plugin.Hooks) *API {
	return &API{
		db:    gdb,
		pages: pages,
		hooks: hooks,
	}
}

// DB exposes the underlying gorm instance for bootstrap paths.
func (a *API) DB() *gorm.DB {
	return a.db
}
