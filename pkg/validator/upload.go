package validator

import (
	"errors"
	"fmt"
	"strings"
)

// UploadConfig defines constraints for file uploads.
type UploadConfig struct {
	MaxFileSize      int64
	AllowedMimeTypes map[string]bool
}

// NewUploadConfig builds upload constraints from the configured type list
// and size limit in bytes.
func NewUploadConfig(maxFileSize int64, allowedTypes []string) *UploadConfig {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[normalizeMime(t)] = true
	}
	return &UploadConfig{MaxFileSize: maxFileSize, AllowedMimeTypes: allowed}
}

// ValidateFileSize checks if the file size is within the allowed limit.
func (c *UploadConfig) ValidateFileSize(size int64) error {
	if size <= 0 {
		return errors.New("file is empty")
	}
	if size > c.MaxFileSize {
		return fmt.Errorf("file too large: %d bytes exceeds limit of %d", size, c.MaxFileSize)
	}
	return nil
}

// ValidateMimeType checks if the MIME type is in the allowed whitelist.
func (c *UploadConfig) ValidateMimeType(mimeType string) error {
	normalized := normalizeMime(mimeType)
	if normalized == "" {
		return errors.New("missing content type")
	}
	if !c.AllowedMimeTypes[normalized] {
		return fmt.Errorf("file type %s is not allowed", normalized)
	}
	return nil
}

// Validate performs full validation on an upload.
func (c *UploadConfig) Validate(size int64, mimeType string) error {
	if err := c.ValidateFileSize(size); err != nil {
		return err
	}
	return c.ValidateMimeType(mimeType)
}

// normalizeMime lowercases and strips parameters such as
// "text/plain; charset=utf-8".
func normalizeMime(mimeType string) string {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(normalized, ";"); idx > 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}
