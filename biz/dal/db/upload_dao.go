package db

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yi-nology/asset_harbor/biz/dal/model"
)

// UploadDAO handles CRUD operations for the upload audit trail.
type UploadDAO struct{}

func NewUploadDAO() *UploadDAO { return &UploadDAO{} }

func (dao *UploadDAO) Create(ctx context.Context, db *gorm.DB, record *model.UploadRecord) error {
	if record == nil {
		return nil
	}
	if record.RecordID == "" {
		record.RecordID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(record).Error
}

// MarkDeleted flags every live record of the filename under the SKU. The
// rows stay in place as history.
func (dao *UploadDAO) MarkDeleted(ctx context.Context, db *gorm.DB, sku, filename string) error {
	return db.WithContext(ctx).
		Model(&model.UploadRecord{}).
		Where("sku = ? AND filename = ?", sku, filename).
		Update("deleted", true).Error
}

func (dao *UploadDAO) ListBySKU(ctx context.Context, db *gorm.DB, sku string) ([]model.UploadRecord, error) {
	var records []model.UploadRecord
	if err := db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
