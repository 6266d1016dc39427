// Package derivative produces and memoizes resized image variants.
//
// Derivatives are cached on disk under the asset directory itself, one
// subdirectory per requested width. Each cache entry carries two variants: a
// webp conversion served to modern clients and a same-format resize kept for
// compatibility. Cache writes are idempotent, so a race on first write costs
// a duplicate transform but never corrupts the cache.
package derivative

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/yi-nology/asset_harbor/pkg/mediatype"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// legacyCacheDir is the cache layout used by earlier deployments; delete
// cascades still sweep it.
const legacyCacheDir = "cache"

var (
	// ErrWidthNotAllowed reports a width outside the configured whitelist.
	ErrWidthNotAllowed = errors.New("width not allowed")
	// ErrExceedsOriginal reports a request at or beyond the intrinsic width
	// of the source image. Upscaling is rejected, never silently clamped.
	ErrExceedsOriginal = errors.New("width exceeds original image")
)

// Result is a resolved derivative ready to serve.
type Result struct {
	Data        []byte
	ContentType string
	// CacheHit is true when the bytes came from disk without recomputation.
	CacheHit bool
}

// Cache resolves derivative requests against an on-disk cache.
type Cache struct {
	widths  map[int]bool
	quality float32
}

// New creates a Cache restricted to the given width whitelist.
func New(widths []int, quality int) *Cache {
	allowed := make(map[int]bool, len(widths))
	for _, w := range widths {
		allowed[w] = true
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Cache{widths: allowed, quality: float32(quality)}
}

// Resolve returns the derivative of the image at originalPath for the given
// width, computing and persisting it on first request.
//
// Width validation failures (whitelist, upscaling) are terminal; any other
// failure is returned for the caller to degrade to raw-file delivery.
func (c *Cache) Resolve(originalPath string, width int) (*Result, error) {
	if !c.widths[width] {
		return nil, fmt.Errorf("%w: %d", ErrWidthNotAllowed, width)
	}

	intrinsic, err := imageWidth(originalPath)
	if err != nil {
		return nil, fmt.Errorf("read image dimensions: %w", err)
	}
	if width >= intrinsic {
		return nil, fmt.Errorf("%w: requested %dpx, original %dpx", ErrExceedsOriginal, width, intrinsic)
	}

	dir := filepath.Dir(originalPath)
	filename := filepath.Base(originalPath)
	cacheDir := filepath.Join(dir, strconv.Itoa(width))
	webpPath := filepath.Join(cacheDir, webpName(filename))
	samePath := filepath.Join(cacheDir, filename)

	// Converted variant first, then the same-format resize.
	if data, err := os.ReadFile(webpPath); err == nil {
		return &Result{Data: data, ContentType: "image/webp", CacheHit: true}, nil
	}
	if data, err := os.ReadFile(samePath); err == nil {
		return &Result{Data: data, ContentType: mediatype.ByName(filename), CacheHit: true}, nil
	}

	img, err := decodeImage(originalPath)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	resized := imaging.Resize(img, width, 0, imaging.Lanczos)

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	var webpBuf bytes.Buffer
	if err := webp.Encode(&webpBuf, resized, &webp.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	if err := os.WriteFile(webpPath, webpBuf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("cache webp variant: %w", err)
	}

	// Same-format fallback; for webp originals the converted variant already
	// is the same format.
	if !strings.EqualFold(filepath.Ext(filename), ".webp") {
		format, err := imaging.FormatFromFilename(filename)
		if err != nil {
			return nil, fmt.Errorf("cache fallback variant: %w", err)
		}
		var sameBuf bytes.Buffer
		if err := imaging.Encode(&sameBuf, resized, format); err != nil {
			return nil, fmt.Errorf("encode fallback variant: %w", err)
		}
		if err := os.WriteFile(samePath, sameBuf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("cache fallback variant: %w", err)
		}
	}

	return &Result{Data: webpBuf.Bytes(), ContentType: "image/webp"}, nil
}

// RemoveAll deletes every cached derivative of filename in dir: both format
// variants, across all per-width subdirectories and the legacy cache layout.
// Best effort; a failed unlink never blocks the delete of the original.
func RemoveAll(dir, filename string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	alt := webpName(filename)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if entry.Name() == legacyCacheDir {
			widthDirs, err := os.ReadDir(sub)
			if err != nil {
				continue
			}
			for _, wd := range widthDirs {
				os.Remove(filepath.Join(sub, wd.Name(), filename))
				os.Remove(filepath.Join(sub, wd.Name(), alt))
			}
			continue
		}
		os.Remove(filepath.Join(sub, filename))
		os.Remove(filepath.Join(sub, alt))
	}
}

func webpName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + ".webp"
}

// imageWidth reads the intrinsic pixel width without decoding the full image.
func imageWidth(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var cfg image.Config
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		cfg, err = webp.DecodeConfig(f)
	} else {
		cfg, _, err = image.DecodeConfig(f)
	}
	if err != nil {
		return 0, err
	}
	return cfg.Width, nil
}

func decodeImage(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return webp.Decode(f)
	}
	return imaging.Open(path)
}
