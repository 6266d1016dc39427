package handler

import (
	"bytes"
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/klauspost/compress/gzip"

	"github.com/yi-nology/asset_harbor/pkg/common"
	"github.com/yi-nology/asset_harbor/pkg/config"
)

// Ping is the liveness endpoint.
func Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]string{"message": "pong"})
}

// writeError sends the envelope with a real status code. Error detail is
// withheld in production configuration.
func writeError(c *app.RequestContext, cfg *config.Config, status int, message string, err error) {
	resp := common.CommonResponse{Message: message}
	if err != nil && !cfg.Production() {
		resp.Error = err.Error()
	}
	c.JSON(status, resp)
}

// gzipResponse compresses body when compression is enabled and the client
// advertises gzip support. It returns the bytes to send and sets the
// Content-Encoding and Vary headers when it compresses.
func gzipResponse(c *app.RequestContext, cfg config.CompressionConfig, body []byte) []byte {
	if !cfg.Enabled {
		return body
	}
	if !strings.Contains(string(c.GetHeader("Accept-Encoding")), "gzip") {
		return body
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, cfg.Level)
	if err != nil {
		w = gzip.NewWriter(&buf)
	}
	if _, err := w.Write(body); err != nil {
		hlog.Warnf("gzip encode failed, sending identity: %v", err)
		return body
	}
	if err := w.Close(); err != nil {
		hlog.Warnf("gzip encode failed, sending identity: %v", err)
		return body
	}

	c.Response.Header.Set("Content-Encoding", "gzip")
	c.Response.Header.Set("Vary", "Accept-Encoding")
	return buf.Bytes()
}
