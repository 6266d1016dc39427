package middleware

import (
	"context"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/asset_harbor/pkg/common"
)

// Recovery converts handler panics into a 500 envelope. The panic value and
// stack are logged server-side only; the response never carries them.
func Recovery() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				hlog.CtxErrorf(ctx, "panic serving %s %s: %v\n%s",
					c.Request.Method(), c.Request.URI().Path(), r, debug.Stack())

				c.JSON(consts.StatusInternalServerError, common.CommonResponse{
					Message: "internal server error",
				})
				c.Abort()
			}
		}()

		c.Next(ctx)
	}
}
