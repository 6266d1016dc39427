package asset_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yi-nology/asset_harbor/biz/dal/model"
	assetservice "github.com/yi-nology/asset_harbor/biz/service/asset"
	"github.com/yi-nology/asset_harbor/pkg/ledger"
	"github.com/yi-nology/asset_harbor/pkg/storage/local"
)

func newTestService(t *testing.T) (*assetservice.Service, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "assets")

	primary, err := local.New(root)
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.UploadRecord{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	return assetservice.NewService(root, primary, nil, db), root
}

func TestUploadListRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, root := newTestService(t)

	data := []byte("jpeg bytes")
	entries, err := svc.Upload(ctx, "ABCDEF", []assetservice.UploadFile{
		{Name: "front.jpg", ContentType: "image/jpeg", Data: data},
	}, []string{"front"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(entries) != 1 || entries[0].Filename != "front.jpg" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	// Scenario from the sharding scheme: ABCDEF lands in AB/CD/EF/ABCDEF.
	storedPath := filepath.Join(root, "AB", "CD", "EF", "ABCDEF", "front.jpg")
	stored, err := os.ReadFile(storedPath)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Fatal("stored data mismatch")
	}

	infos, err := svc.List(ctx, "ABCDEF")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(infos))
	}
	if len(infos[0].Tags) != 1 || infos[0].Tags[0] != "front" {
		t.Fatalf("tags not preserved: %v", infos[0].Tags)
	}
	if infos[0].Size != int64(len(data)) {
		t.Errorf("size = %d, want %d", infos[0].Size, len(data))
	}
	if infos[0].URL == "" {
		t.Error("expected delivery URL on listing")
	}
}

func TestUploadShortSKUPadsShards(t *testing.T) {
	ctx := context.Background()
	svc, root := newTestService(t)

	if _, err := svc.Upload(ctx, "AB12", []assetservice.UploadFile{
		{Name: "x.png", Data: []byte("png")},
	}, nil); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "00", "AB", "12", "AB12", "x.png")); err != nil {
		t.Fatalf("short SKU not padded into shard dirs: %v", err)
	}
}

func TestUploadCollisionRename(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.Upload(ctx, "SKU42", []assetservice.UploadFile{{Name: "photo.jpg", Data: []byte("a")}}, nil)
	if err != nil {
		t.Fatalf("first Upload: %v", err)
	}
	second, err := svc.Upload(ctx, "SKU42", []assetservice.UploadFile{{Name: "photo.jpg", Data: []byte("b")}}, nil)
	if err != nil {
		t.Fatalf("second Upload: %v", err)
	}

	if first[0].Filename != "photo.jpg" {
		t.Fatalf("first upload renamed unexpectedly: %s", first[0].Filename)
	}
	renamed := regexp.MustCompile(`^photo-\d+-\d+\.jpg$`)
	if !renamed.MatchString(second[0].Filename) {
		t.Fatalf("collision filename %q does not match <base>-<millis>-<random><ext>", second[0].Filename)
	}

	infos, err := svc.List(ctx, "SKU42")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected both files listed, got %d", len(infos))
	}
}

func TestResolvePrefersDefault(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Upload(ctx, "SKU9", []assetservice.UploadFile{
		{Name: "alt.jpg", Data: []byte("a")},
		{Name: "default.jpg", Data: []byte("d")},
	}, nil); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	path, err := svc.Resolve(ctx, "SKU9")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(path) != "default.jpg" {
		t.Fatalf("Resolve picked %s, want default.jpg", filepath.Base(path))
	}
}

func TestResolveMissingSKU(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Resolve(context.Background(), "NOPE"); !errors.Is(err, assetservice.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestListFiltersStaleAndSurfacesUntracked(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Upload(ctx, "SKU7", []assetservice.UploadFile{
		{Name: "tracked.jpg", Data: []byte("t")},
		{Name: "gone.jpg", Data: []byte("g")},
	}, []string{"front"}); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	dir, err := svc.Dir("SKU7")
	if err != nil {
		t.Fatal(err)
	}
	// Entry-without-file: remove the file behind the ledger's back.
	if err := os.Remove(filepath.Join(dir, "gone.jpg")); err != nil {
		t.Fatal(err)
	}
	// File-without-entry: drop one in directly.
	if err := os.WriteFile(filepath.Join(dir, "stray.png"), []byte("s"), 0o644); err != nil {
		t.Fatal(err)
	}

	infos, err := svc.List(ctx, "SKU7")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	byName := map[string]assetservice.Info{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	if _, ok := byName["gone.jpg"]; ok {
		t.Error("stale ledger entry not filtered from listing")
	}
	if info, ok := byName["stray.png"]; !ok {
		t.Error("untracked file missing from listing")
	} else if len(info.Tags) != 0 {
		t.Errorf("untracked file must list empty tags, got %v", info.Tags)
	}
	if _, ok := byName["tracked.jpg"]; !ok {
		t.Error("tracked file missing from listing")
	}
}

func TestListCorruptLedgerSurfaces(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Upload(ctx, "SKU8", []assetservice.UploadFile{{Name: "a.jpg", Data: []byte("a")}}, nil); err != nil {
		t.Fatal(err)
	}
	dir, _ := svc.Dir("SKU8")
	if err := os.WriteFile(filepath.Join(dir, ledger.FileName), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.List(ctx, "SKU8"); !errors.Is(err, ledger.ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}
}

func TestUpdateTags(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Upload(ctx, "SKU5", []assetservice.UploadFile{{Name: "img.jpg", Data: []byte("i")}}, []string{"front"}); err != nil {
		t.Fatal(err)
	}

	entry, err := svc.UpdateTags(ctx, "SKU5", "img.jpg", []string{"back", "spine"})
	if err != nil {
		t.Fatalf("UpdateTags: %v", err)
	}
	if strings.Join(entry.Tags, ",") != "back,spine" {
		t.Fatalf("tags = %v", entry.Tags)
	}

	if _, err := svc.UpdateTags(ctx, "SKU5", "missing.jpg", []string{"front"}); !errors.Is(err, assetservice.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestDeleteCascadesDerivatives(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Upload(ctx, "SKU3", []assetservice.UploadFile{{Name: "x.jpg", Data: []byte("x")}}, nil); err != nil {
		t.Fatal(err)
	}
	dir, _ := svc.Dir("SKU3")

	// Plant cached derivatives in both layouts.
	for _, sub := range []string{"200", "400", filepath.Join("cache", "75")} {
		cacheDir := filepath.Join(dir, sub)
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{"x.jpg", "x.webp"} {
			if err := os.WriteFile(filepath.Join(cacheDir, name), []byte("d"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}

	if err := svc.Delete(ctx, "SKU3", "x.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "x.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Error("original not deleted")
	}
	for _, sub := range []string{"200", "400", filepath.Join("cache", "75")} {
		for _, name := range []string{"x.jpg", "x.webp"} {
			if _, err := os.Stat(filepath.Join(dir, sub, name)); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("derivative %s/%s survived delete", sub, name)
			}
		}
	}

	infos, err := svc.List(ctx, "SKU3")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, info := range infos {
		if info.Name == "x.jpg" {
			t.Error("deleted asset still listed")
		}
	}
}

func TestDeleteRequiresFileAndLedger(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.Delete(ctx, "SKU2", "nope.jpg"); !errors.Is(err, assetservice.ErrAssetNotFound) {
		t.Fatalf("missing file: expected ErrAssetNotFound, got %v", err)
	}

	if _, err := svc.Upload(ctx, "SKU2", []assetservice.UploadFile{{Name: "y.jpg", Data: []byte("y")}}, nil); err != nil {
		t.Fatal(err)
	}
	dir, _ := svc.Dir("SKU2")
	if err := os.Remove(filepath.Join(dir, ledger.FileName)); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, "SKU2", "y.jpg"); !errors.Is(err, assetservice.ErrAssetNotFound) {
		t.Fatalf("missing ledger: expected ErrAssetNotFound, got %v", err)
	}
}

func TestHistoryRecordsUploadsAndDeletes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Upload(ctx, "SKU1", []assetservice.UploadFile{{Name: "h.jpg", ContentType: "image/jpeg", Data: []byte("h")}}, []string{"front"}); err != nil {
		t.Fatal(err)
	}

	records, err := svc.History(ctx, "SKU1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 1 || records[0].Filename != "h.jpg" || records[0].Deleted {
		t.Fatalf("unexpected history: %+v", records)
	}
	if records[0].Tags != "front" {
		t.Errorf("tags = %q", records[0].Tags)
	}

	if err := svc.Delete(ctx, "SKU1", "h.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	records, err = svc.History(ctx, "SKU1")
	if err != nil {
		t.Fatalf("History after delete: %v", err)
	}
	if len(records) != 1 || !records[0].Deleted {
		t.Fatalf("delete not reflected in history: %+v", records)
	}
}

func TestUploadEmptySKU(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Upload(context.Background(), "", []assetservice.UploadFile{{Name: "a.jpg", Data: []byte("a")}}, nil); err == nil {
		t.Fatal("expected error for empty SKU")
	}
}
