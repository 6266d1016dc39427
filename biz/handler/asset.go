package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	assetservice "github.com/yi-nology/asset_harbor/biz/service/asset"
	"github.com/yi-nology/asset_harbor/pkg/common"
	"github.com/yi-nology/asset_harbor/pkg/config"
	"github.com/yi-nology/asset_harbor/pkg/derivative"
	"github.com/yi-nology/asset_harbor/pkg/ledger"
	"github.com/yi-nology/asset_harbor/pkg/mediatype"
	"github.com/yi-nology/asset_harbor/pkg/shard"
	"github.com/yi-nology/asset_harbor/pkg/stream"
	"github.com/yi-nology/asset_harbor/pkg/validator"
)

// derivativeCacheControl is sent with resized variants; derivatives are
// immutable for a given source file and width.
const derivativeCacheControl = "public, max-age=31536000"

// AssetHandler exposes the asset store over HTTP.
type AssetHandler struct {
	service     *assetservice.Service
	derivatives *derivative.Cache
	tags        *validator.TagSet
	uploads     *validator.UploadConfig
	cfg         *config.Config
}

func NewAssetHandler(service *assetservice.Service, derivatives *derivative.Cache, cfg *config.Config) *AssetHandler {
	return &AssetHandler{
		service:     service,
		derivatives: derivatives,
		tags:        validator.NewTagSet(cfg.Media.AllowedTags),
		uploads:     validator.NewUploadConfig(cfg.Media.MaxFileSizeBytes(), cfg.Media.AllowedTypes),
		cfg:         cfg,
	}
}

// GetAsset serves the representative file of a SKU, or a specific file when
// ?filename= is given. Images honor ?w= through the derivative cache, video
// is range-streamed, everything else is passed through.
func (h *AssetHandler) GetAsset(ctx context.Context, c *app.RequestContext) {
	sku := c.Param("sku")

	var (
		path string
		err  error
	)
	if filename := c.Query("filename"); filename != "" {
		path, err = h.service.ResolveNamed(ctx, sku, filename)
	} else {
		path, err = h.service.Resolve(ctx, sku)
	}
	if err != nil {
		h.writeServiceError(c, err, "failed to resolve asset")
		return
	}

	h.serveFile(ctx, c, path)
}

// Upload accepts a multipart batch of files for a SKU and responds 201 with
// the created ledger entries. Files that fail to store are reported without
// failing the batch.
func (h *AssetHandler) Upload(ctx context.Context, c *app.RequestContext) {
	sku := c.Param("sku")

	form, err := c.MultipartForm()
	if err != nil {
		writeError(c, h.cfg, consts.StatusBadRequest, "invalid multipart form", err)
		return
	}

	var headers []*multipart.FileHeader
	for _, fhs := range form.File {
		headers = append(headers, fhs...)
	}
	if len(headers) == 0 {
		writeError(c, h.cfg, consts.StatusBadRequest, "no files uploaded", nil)
		return
	}

	tags := parseTags(form.Value["tags"])
	if err := h.tags.Validate(tags); err != nil {
		writeError(c, h.cfg, consts.StatusBadRequest, err.Error(), nil)
		return
	}

	files := make([]assetservice.UploadFile, 0, len(headers))
	for _, fh := range headers {
		contentType := fh.Header.Get("Content-Type")
		if err := h.uploads.Validate(fh.Size, contentType); err != nil {
			writeError(c, h.cfg, consts.StatusBadRequest, fmt.Sprintf("%s: %v", fh.Filename, err), nil)
			return
		}

		data, err := readMultipartFile(fh)
		if err != nil {
			writeError(c, h.cfg, consts.StatusInternalServerError, "failed to read upload", err)
			return
		}
		files = append(files, assetservice.UploadFile{
			Name:        filepath.Base(fh.Filename),
			ContentType: contentType,
			Data:        data,
		})
	}

	entries, err := h.service.Upload(ctx, sku, files, tags)
	if err != nil && len(entries) == 0 {
		h.writeServiceError(c, err, "upload failed")
		return
	}
	if err != nil {
		hlog.CtxWarnf(ctx, "partial upload for sku %s: %v", sku, err)
	}

	c.JSON(consts.StatusCreated, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%d file(s) uploaded", len(entries)),
		"count":   len(entries),
		"assets":  entries,
	})
}

// List returns every asset of the SKU with tags and delivery URLs.
func (h *AssetHandler) List(ctx context.Context, c *app.RequestContext) {
	sku := c.Param("sku")

	infos, err := h.service.List(ctx, sku)
	if err != nil {
		h.writeServiceError(c, err, "failed to list assets")
		return
	}

	c.JSON(consts.StatusOK, map[string]any{
		"success": true,
		"count":   len(infos),
		"assets":  infos,
	})
}

type updateTagsRequest struct {
	Filename string   `json:"filename"`
	Tags     []string `json:"tags"`
}

// UpdateTags replaces the tags of one asset.
func (h *AssetHandler) UpdateTags(ctx context.Context, c *app.RequestContext) {
	sku := c.Param("sku")

	var req updateTagsRequest
	if err := c.BindAndValidate(&req); err != nil {
		writeError(c, h.cfg, consts.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Filename == "" {
		writeError(c, h.cfg, consts.StatusBadRequest, "filename is required", nil)
		return
	}
	if err := h.tags.Validate(req.Tags); err != nil {
		writeError(c, h.cfg, consts.StatusBadRequest, err.Error(), nil)
		return
	}

	entry, err := h.service.UpdateTags(ctx, sku, req.Filename, req.Tags)
	if err != nil {
		h.writeServiceError(c, err, "failed to update tags")
		return
	}

	c.JSON(consts.StatusOK, map[string]any{
		"success": true,
		"message": "tags updated",
		"asset":   entry,
	})
}

// Delete removes one asset file, its derivatives, and its ledger entry.
func (h *AssetHandler) Delete(ctx context.Context, c *app.RequestContext) {
	sku := c.Param("sku")

	filename := c.Query("filename")
	if filename == "" {
		writeError(c, h.cfg, consts.StatusBadRequest, "filename is required", nil)
		return
	}

	if err := h.service.Delete(ctx, sku, filename); err != nil {
		h.writeServiceError(c, err, "failed to delete asset")
		return
	}

	c.JSON(consts.StatusOK, common.CommonResponse{
		Success: true,
		Message: fmt.Sprintf("%s deleted", filename),
	})
}

// History returns the upload audit trail for a SKU, newest first.
func (h *AssetHandler) History(ctx context.Context, c *app.RequestContext) {
	sku := c.Param("sku")

	records, err := h.service.History(ctx, sku)
	if err != nil {
		h.writeServiceError(c, err, "failed to load history")
		return
	}

	c.JSON(consts.StatusOK, map[string]any{
		"success": true,
		"count":   len(records),
		"records": records,
	})
}

// ClientConfig echoes the upload and resize constraints clients must honor.
// maxFileSize is the configured limit in megabytes, not bytes.
func (h *AssetHandler) ClientConfig(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]any{
		"success":     true,
		"tags":        h.tags.Names(),
		"widths":      h.cfg.Media.AllowedWidths,
		"accept":      h.cfg.Media.AllowedTypes,
		"maxFileSize": h.cfg.Media.MaxFileSizeMB,
	})
}

// Tags returns the allowed tag list.
func (h *AssetHandler) Tags(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]any{
		"success": true,
		"tags":    h.tags.Names(),
	})
}

// ServeAssetPath delivers a file addressed by its path under the asset root,
// with the same derivative and range-streaming interception as GetAsset.
func (h *AssetHandler) ServeAssetPath(ctx context.Context, c *app.RequestContext) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	if rel == "" {
		writeError(c, h.cfg, consts.StatusBadRequest, "path is required", nil)
		return
	}

	root, err := filepath.Abs(h.service.Root())
	if err != nil {
		writeError(c, h.cfg, consts.StatusInternalServerError, "failed to resolve asset root", err)
		return
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		writeError(c, h.cfg, consts.StatusBadRequest, "invalid path", nil)
		return
	}
	if filepath.Base(full) == ledger.FileName {
		writeError(c, h.cfg, consts.StatusNotFound, "asset not found", nil)
		return
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		writeError(c, h.cfg, consts.StatusNotFound, "asset not found", err)
		return
	}

	h.serveFile(ctx, c, full)
}

// serveFile picks the delivery path by media class. Derivative failures other
// than parameter rejections degrade to raw delivery.
func (h *AssetHandler) serveFile(ctx context.Context, c *app.RequestContext, path string) {
	name := filepath.Base(path)

	switch {
	case mediatype.IsImage(name):
		widthStr := c.Query("w")
		if widthStr == "" {
			widthStr = c.Query("width")
		}
		if widthStr == "" {
			h.serveRaw(c, path)
			return
		}

		width, err := strconv.Atoi(widthStr)
		if err != nil {
			writeError(c, h.cfg, consts.StatusBadRequest, fmt.Sprintf("invalid width %q", widthStr), nil)
			return
		}

		result, err := h.derivatives.Resolve(path, width)
		if err != nil {
			if errors.Is(err, derivative.ErrWidthNotAllowed) || errors.Is(err, derivative.ErrExceedsOriginal) {
				writeError(c, h.cfg, consts.StatusBadRequest, err.Error(), nil)
				return
			}
			hlog.CtxWarnf(ctx, "derivative for %s failed, serving original: %v", name, err)
			h.serveRaw(c, path)
			return
		}

		c.Response.Header.Set("Cache-Control", derivativeCacheControl)
		body := gzipResponse(c, h.cfg.Compression, result.Data)
		c.Data(consts.StatusOK, result.ContentType, body)

	case mediatype.IsVideo(name):
		result, err := stream.Open(path, string(c.GetHeader("Range")))
		if err != nil {
			if errors.Is(err, stream.ErrInvalidRange) {
				writeError(c, h.cfg, consts.StatusRequestedRangeNotSatisfiable, "invalid byte range", err)
				return
			}
			if errors.Is(err, os.ErrNotExist) {
				writeError(c, h.cfg, consts.StatusNotFound, "asset not found", err)
				return
			}
			writeError(c, h.cfg, consts.StatusInternalServerError, "failed to open asset", err)
			return
		}

		for k, v := range result.Headers {
			c.Response.Header.Set(k, v)
		}
		c.SetBodyStream(result.Body, int(result.ContentLength))
		c.SetStatusCode(result.Status)

	default:
		h.serveRaw(c, path)
	}
}

func (h *AssetHandler) serveRaw(c *app.RequestContext, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(c, h.cfg, consts.StatusNotFound, "asset not found", err)
			return
		}
		writeError(c, h.cfg, consts.StatusInternalServerError, "failed to read asset", err)
		return
	}
	c.Data(consts.StatusOK, mediatype.ByName(path), data)
}

func (h *AssetHandler) writeServiceError(c *app.RequestContext, err error, message string) {
	switch {
	case errors.Is(err, assetservice.ErrAssetNotFound):
		writeError(c, h.cfg, consts.StatusNotFound, "asset not found", err)
	case errors.Is(err, shard.ErrEmptySKU):
		writeError(c, h.cfg, consts.StatusBadRequest, "sku is required", err)
	case errors.Is(err, ledger.ErrCorrupted):
		writeError(c, h.cfg, consts.StatusInternalServerError, "asset metadata is corrupted", err)
	default:
		writeError(c, h.cfg, consts.StatusInternalServerError, message, err)
	}
}

// parseTags flattens repeated and comma-separated tag form values.
func parseTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
