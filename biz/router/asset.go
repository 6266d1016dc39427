package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/yi-nology/asset_harbor/biz/handler"
	"github.com/yi-nology/asset_harbor/biz/middleware"
)

// RegisterAssetRoutes configures HTTP routes for the asset APIs. Write
// endpoints pick up the optional global write lock.
func RegisterAssetRoutes(r *server.Hertz, h *handler.AssetHandler) {
	if h == nil {
		return
	}

	writeMw := middleware.WriteLockMw()

	api := r.Group("/api")
	api.GET("/asset/:sku", h.GetAsset)
	api.POST("/asset/:sku", append(writeMw, h.Upload)...)
	api.PUT("/asset/:sku/tags", append(writeMw, h.UpdateTags)...)
	api.DELETE("/asset/:sku", append(writeMw, h.Delete)...)
	api.GET("/asset-list/:sku", h.List)
	api.GET("/asset-history/:sku", h.History)
	api.GET("/config/client", h.ClientConfig)
	api.GET("/tags", h.Tags)

	r.GET("/assets/*path", h.ServeAssetPath)
	r.GET("/ping", handler.Ping)
}
