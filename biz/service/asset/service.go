// Package asset orchestrates upload, listing, tag-update, and delete
// operations against the sharded asset tree and its sidecar ledgers.
package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gorm.io/gorm"

	dal "github.com/yi-nology/asset_harbor/biz/dal/db"
	"github.com/yi-nology/asset_harbor/biz/dal/model"
	"github.com/yi-nology/asset_harbor/pkg/derivative"
	"github.com/yi-nology/asset_harbor/pkg/ledger"
	"github.com/yi-nology/asset_harbor/pkg/mediatype"
	"github.com/yi-nology/asset_harbor/pkg/shard"
	"github.com/yi-nology/asset_harbor/pkg/storage"
)

// ErrAssetNotFound reports a missing directory, file, or ledger.
var ErrAssetNotFound = errors.New("asset not found")

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Info is one listed asset: the ledger entry joined with filesystem reality.
type Info struct {
	Name         string    `json:"name"`
	OriginalName string    `json:"originalname"`
	Path         string    `json:"path"`
	URL          string    `json:"url,omitempty"`
	Size         int64     `json:"size"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
	ModifiedAt   time.Time `json:"modifiedAt"`
	UploadDate   time.Time `json:"uploadDate"`
}

// Service is the asset store. The local filesystem under root is the single
// source of truth; the optional mirror replicates originals off-host and the
// optional audit database records upload history.
type Service struct {
	root      string
	ledger    *ledger.Store
	primary   storage.Storage
	mirror    storage.Storage
	auditDB   *gorm.DB
	uploadDAO *dal.UploadDAO
}

// NewService creates the asset store. mirror and auditDB may be nil.
func NewService(root string, primary storage.Storage, mirror storage.Storage, auditDB *gorm.DB) *Service {
	return &Service{
		root:      root,
		ledger:    ledger.NewStore(),
		primary:   primary,
		mirror:    mirror,
		auditDB:   auditDB,
		uploadDAO: dal.NewUploadDAO(),
	}
}

// Root returns the asset tree root directory.
func (s *Service) Root() string { return s.root }

// Dir resolves the asset directory for a SKU.
func (s *Service) Dir(sku string) (string, error) {
	return shard.Dir(s.root, sku)
}

func (s *Service) objectKey(sku, filename string) (string, error) {
	rel, err := shard.Path(sku)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(filepath.Join(rel, filename)), nil
}

// Upload stores a batch of files under the SKU. Each file is written
// independently: a failure on one file does not roll back the others. The
// ledger is persisted once per batch. The returned error, when entries are
// also returned, describes the files that failed.
func (s *Service) Upload(ctx context.Context, sku string, files []UploadFile, tags []string) ([]ledger.Entry, error) {
	dir, err := s.Dir(sku)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entries := make([]ledger.Entry, 0, len(files))
	var failures []error

	for _, f := range files {
		filename := resolveCollision(dir, f.Name)
		key, err := s.objectKey(sku, filename)
		if err != nil {
			return nil, err
		}

		contentType := f.ContentType
		if contentType == "" {
			contentType = mediatype.ByName(filename)
		}

		if err := s.primary.PutObject(ctx, key, bytes.NewReader(f.Data), contentType, int64(len(f.Data))); err != nil {
			failures = append(failures, fmt.Errorf("store %s: %w", f.Name, err))
			continue
		}

		entries = append(entries, ledger.Entry{
			ID:           sku,
			Filename:     filename,
			OriginalName: f.Name,
			Path:         filepath.ToSlash(filepath.Join(dir, filename)),
			Tags:         append([]string{}, tags...),
			UploadDate:   now,
		})

		if s.mirror != nil {
			if err := s.mirror.PutObject(ctx, key, bytes.NewReader(f.Data), contentType, int64(len(f.Data))); err != nil {
				hlog.CtxWarnf(ctx, "mirror upload of %s failed: %v", key, err)
			}
		}
		s.recordUpload(ctx, sku, filename, f, tags)
	}

	if len(entries) > 0 {
		if err := s.ledger.Append(dir, entries); err != nil {
			failures = append(failures, fmt.Errorf("persist ledger: %w", err))
		}
	}
	return entries, errors.Join(failures...)
}

// Resolve picks the representative file of a SKU: the first whose name
// contains "default", else the first regular file in directory order.
func (s *Service) Resolve(ctx context.Context, sku string) (string, error) {
	dir, err := s.Dir(sku)
	if err != nil {
		return "", err
	}

	names, err := eligibleFiles(dir)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrAssetNotFound
	}

	for _, name := range names {
		if strings.Contains(name, "default") {
			return filepath.Join(dir, name), nil
		}
	}
	return filepath.Join(dir, names[0]), nil
}

// ResolveNamed returns the path of a specific file under the SKU.
func (s *Service) ResolveNamed(ctx context.Context, sku, filename string) (string, error) {
	dir, err := s.Dir(sku)
	if err != nil {
		return "", err
	}
	if filename != filepath.Base(filename) || filename == ledger.FileName {
		return "", ErrAssetNotFound
	}
	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", ErrAssetNotFound
	}
	return path, nil
}

// List returns every asset of the SKU with its tags. Ledger entries whose
// file is gone are filtered out; files with no ledger entry are listed with
// empty tags. The directory itself must exist.
func (s *Service) List(ctx context.Context, sku string) ([]Info, error) {
	dir, err := s.Dir(sku)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}

	lf, err := s.ledger.Load(dir)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(lf.Assets))
	tracked := make(map[string]bool, len(lf.Assets))

	for _, entry := range lf.Assets {
		if entry.Filename == "" {
			continue
		}
		tracked[entry.Filename] = true
		info, err := s.fileInfo(ctx, sku, dir, entry.Filename, entry)
		if err != nil {
			// Stale entry: the file is gone, the listing moves on.
			continue
		}
		infos = append(infos, info)
	}

	names, err := eligibleFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if tracked[name] {
			continue
		}
		info, err := s.fileInfo(ctx, sku, dir, name, ledger.Entry{})
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// UpdateTags replaces the tags of one asset.
func (s *Service) UpdateTags(ctx context.Context, sku, filename string, tags []string) (*ledger.Entry, error) {
	dir, err := s.Dir(sku)
	if err != nil {
		return nil, err
	}

	entry, err := s.ledger.UpsertTags(dir, sku, filename, tags)
	if err != nil {
		if errors.Is(err, ledger.ErrEntryNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Delete removes one asset file, every cached derivative of it, and its
// ledger entry. Both the file and the ledger must exist; a missing ledger
// entry after a successful file delete is tolerated.
func (s *Service) Delete(ctx context.Context, sku, filename string) error {
	dir, err := s.Dir(sku)
	if err != nil {
		return err
	}
	if filename != filepath.Base(filename) || filename == ledger.FileName {
		return ErrAssetNotFound
	}

	filePath := filepath.Join(dir, filename)
	if _, err := os.Stat(filePath); err != nil {
		return ErrAssetNotFound
	}
	if !s.ledger.Exists(dir) {
		return ErrAssetNotFound
	}

	key, err := s.objectKey(sku, filename)
	if err != nil {
		return err
	}
	if err := s.primary.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}

	derivative.RemoveAll(dir, filename)

	if err := s.ledger.Remove(dir, filename); err != nil {
		return err
	}

	if s.mirror != nil {
		if err := s.mirror.DeleteObject(ctx, key); err != nil {
			hlog.CtxWarnf(ctx, "mirror delete of %s failed: %v", key, err)
		}
	}
	if s.auditDB != nil {
		if err := s.uploadDAO.MarkDeleted(ctx, s.auditDB, sku, filename); err != nil {
			hlog.CtxWarnf(ctx, "audit mark-deleted for %s/%s failed: %v", sku, filename, err)
		}
	}
	return nil
}

// History returns the upload audit trail for a SKU, newest first.
func (s *Service) History(ctx context.Context, sku string) ([]model.UploadRecord, error) {
	if s.auditDB == nil {
		return []model.UploadRecord{}, nil
	}
	return s.uploadDAO.ListBySKU(ctx, s.auditDB, sku)
}

func (s *Service) recordUpload(ctx context.Context, sku, filename string, f UploadFile, tags []string) {
	if s.auditDB == nil {
		return
	}
	record := &model.UploadRecord{
		SKU:          sku,
		Filename:     filename,
		OriginalName: f.Name,
		ContentType:  f.ContentType,
		SizeBytes:    int64(len(f.Data)),
		Tags:         strings.Join(tags, ","),
	}
	if err := s.uploadDAO.Create(ctx, s.auditDB, record); err != nil {
		hlog.CtxWarnf(ctx, "audit record for %s/%s failed: %v", sku, filename, err)
	}
}

func (s *Service) fileInfo(ctx context.Context, sku, dir, name string, entry ledger.Entry) (Info, error) {
	path := filepath.Join(dir, name)
	stat, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}

	originalName := entry.OriginalName
	if originalName == "" {
		originalName = name
	}
	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}
	uploadDate := entry.UploadDate
	if uploadDate.IsZero() {
		uploadDate = stat.ModTime()
	}

	info := Info{
		Name:         name,
		OriginalName: originalName,
		Path:         filepath.ToSlash(path),
		Size:         stat.Size(),
		Tags:         tags,
		CreatedAt:    stat.ModTime(),
		ModifiedAt:   stat.ModTime(),
		UploadDate:   uploadDate,
	}
	if key, err := s.objectKey(sku, name); err == nil {
		if url, err := s.primary.GenerateURL(ctx, key); err == nil {
			info.URL = url
		}
	}
	return info, nil
}

// eligibleFiles lists the regular files of dir, excluding the sidecar.
// Derivative cache subdirectories are skipped by construction.
func eligibleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || e.Name() == ledger.FileName {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// resolveCollision keeps the original filename unless it already exists in
// dir, in which case a timestamp and random suffix make it unique.
func resolveCollision(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s-%d-%d%s", base, time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}
