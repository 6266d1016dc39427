package model

import (
	"time"

	"gorm.io/gorm"
)

// UploadRecord is the audit-trail row written for every upload. The sidecar
// ledger on disk remains the source of truth for tags; records here only
// track who stored what and when, and survive asset deletion as history.
type UploadRecord struct {
	ID           uint           `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
	UpdatedAt    time.Time      `json:"-"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	RecordID     string         `gorm:"column:record_id;uniqueIndex:idx_record" json:"record_id,omitempty"`
	SKU          string         `gorm:"column:sku;index:idx_upload_sku" json:"sku,omitempty"`
	Filename     string         `gorm:"column:filename" json:"filename,omitempty"`
	OriginalName string         `gorm:"column:original_name" json:"original_name,omitempty"`
	ContentType  string         `gorm:"column:content_type" json:"content_type,omitempty"`
	SizeBytes    int64          `gorm:"column:size_bytes" json:"size_bytes,omitempty"`
	Tags         string         `gorm:"column:tags;type:varchar(512)" json:"tags,omitempty"`
	Deleted      bool           `gorm:"column:deleted" json:"deleted"`
}

// TableName overrides gorm to use the upload_record table.
func (UploadRecord) TableName() string {
	return "upload_record"
}
