package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/asset_harbor/pkg/config"
)

// CORS applies the configured cross-origin headers and short-circuits
// preflight requests with 204. A nil config means permissive defaults.
func CORS(cfg *config.CORSConfig) app.HandlerFunc {
	origin := "*"
	methods := "GET,POST,PUT,DELETE,OPTIONS"
	headers := "*"
	credentials := "false"

	if cfg != nil {
		if cfg.AllowOrigin != "" {
			origin = cfg.AllowOrigin
		}
		if cfg.AllowMethods != "" {
			methods = cfg.AllowMethods
		}
		if cfg.AllowHeaders != "" {
			headers = cfg.AllowHeaders
		}
		if cfg.AllowCredentials {
			credentials = "true"
		}
	}

	return func(ctx context.Context, c *app.RequestContext) {
		c.Response.Header.Set("Access-Control-Allow-Origin", origin)
		c.Response.Header.Set("Access-Control-Allow-Methods", methods)
		c.Response.Header.Set("Access-Control-Allow-Headers", headers)
		c.Response.Header.Set("Access-Control-Allow-Credentials", credentials)

		if string(c.Request.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}

		c.Next(ctx)
	}
}
