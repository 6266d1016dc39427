// Package mediatype classifies stored files by extension and resolves their
// MIME types. Classification decides the delivery path: images go through the
// derivative cache, video through range streaming, everything else is passed
// through unchanged.
package mediatype

import (
	"path/filepath"
	"strings"
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".m4v":  "video/x-m4v",
}

var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
}

func ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsImage reports whether the file is a resizable image.
func IsImage(name string) bool {
	_, ok := imageTypes[ext(name)]
	return ok
}

// IsVideo reports whether the file should be delivered with byte-range
// streaming.
func IsVideo(name string) bool {
	_, ok := videoTypes[ext(name)]
	return ok
}

// IsDocument reports whether the file is a known document type.
func IsDocument(name string) bool {
	_, ok := documentTypes[ext(name)]
	return ok
}

// ByName returns the MIME type for a file name, falling back to
// application/octet-stream.
func ByName(name string) string {
	e := ext(name)
	if mt, ok := imageTypes[e]; ok {
		return mt
	}
	if mt, ok := videoTypes[e]; ok {
		return mt
	}
	if mt, ok := documentTypes[e]; ok {
		return mt
	}
	return "application/octet-stream"
}
