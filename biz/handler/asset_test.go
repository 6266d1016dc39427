package handler

import (
	"encoding/json"
	"testing"

	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"

	assetservice "github.com/yi-nology/asset_harbor/biz/service/asset"
	"github.com/yi-nology/asset_harbor/pkg/config"
	"github.com/yi-nology/asset_harbor/pkg/derivative"
	"github.com/yi-nology/asset_harbor/pkg/storage/local"
)

func newTestHandler(t *testing.T, cfg *config.Config) *AssetHandler {
	t.Helper()
	primary, err := local.New(cfg.Media.RootDir)
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	svc := assetservice.NewService(cfg.Media.RootDir, primary, nil, nil)
	return NewAssetHandler(svc, derivative.New(cfg.Media.AllowedWidths, cfg.Media.WebpQuality), cfg)
}

func TestClientConfigEchoesConfiguredUnits(t *testing.T) {
	cfg := &config.Config{
		Env: "development",
		Media: config.MediaConfig{
			RootDir:       t.TempDir(),
			AllowedTags:   []string{"front", "back"},
			AllowedWidths: []int{200, 400},
			AllowedTypes:  []string{"image/jpeg"},
			MaxFileSizeMB: 25,
			WebpQuality:   80,
		},
	}
	h := newTestHandler(t, cfg)

	engine := route.NewEngine(hertzconfig.NewOptions(nil))
	engine.GET("/api/config/client", h.ClientConfig)

	w := ut.PerformRequest(engine, "GET", "/api/config/client", nil)
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode())
	}

	var body struct {
		Success     bool     `json:"success"`
		Tags        []string `json:"tags"`
		Widths      []int    `json:"widths"`
		Accept      []string `json:"accept"`
		MaxFileSize int64    `json:"maxFileSize"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success {
		t.Error("expected success envelope")
	}
	// The limit is echoed in megabytes, the unit the config speaks.
	if body.MaxFileSize != 25 {
		t.Errorf("maxFileSize = %d, want 25", body.MaxFileSize)
	}
	if len(body.Tags) != 2 || len(body.Widths) != 2 || len(body.Accept) != 1 {
		t.Errorf("unexpected echo: %+v", body)
	}
}
