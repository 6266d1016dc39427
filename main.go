package main

import (
	"log"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gorm.io/gorm"

	"github.com/yi-nology/asset_harbor/biz/dal/model"
	"github.com/yi-nology/asset_harbor/biz/handler"
	"github.com/yi-nology/asset_harbor/biz/middleware"
	"github.com/yi-nology/asset_harbor/biz/router"
	assetservice "github.com/yi-nology/asset_harbor/biz/service/asset"
	"github.com/yi-nology/asset_harbor/pkg/config"
	"github.com/yi-nology/asset_harbor/pkg/database"
	"github.com/yi-nology/asset_harbor/pkg/derivative"
	"github.com/yi-nology/asset_harbor/pkg/lock"
	"github.com/yi-nology/asset_harbor/pkg/redis"
	"github.com/yi-nology/asset_harbor/pkg/storage"
	"github.com/yi-nology/asset_harbor/pkg/storage/local"
)

const writeLockKey = "asset_harbor:write_lock"

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	primary, err := local.New(cfg.Media.RootDir)
	if err != nil {
		log.Fatalf("init asset root: %v", err)
	}

	var mirror storage.Storage
	if cfg.Mirror.Enabled {
		mirror, err = storage.New(cfg.Mirror.Storage)
		if err != nil {
			log.Fatalf("init mirror storage: %v", err)
		}
		hlog.Infof("mirroring originals to %s storage", mirror.Type())
	}

	var auditDB *gorm.DB
	if cfg.Audit.Enabled {
		auditDB, err = database.Open(cfg.Database)
		if err != nil {
			log.Fatalf("open audit database: %v", err)
		}
		if err := auditDB.AutoMigrate(&model.UploadRecord{}); err != nil {
			log.Fatalf("migrate audit database: %v", err)
		}
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	if redisClient != nil {
		middleware.InitWriteLock(lock.New(redisClient, writeLockKey, 30*time.Second, 10*time.Second))
		hlog.Infof("cross-process write lock enabled")
	}

	svc := assetservice.NewService(cfg.Media.RootDir, primary, mirror, auditDB)
	derivatives := derivative.New(cfg.Media.AllowedWidths, cfg.Media.WebpQuality)
	assetHandler := handler.NewAssetHandler(svc, derivatives, cfg)

	srv := server.Default(server.WithHostPorts(cfg.Server.Address))
	srv.Use(middleware.Recovery(), middleware.Logging(), middleware.CORS(&cfg.CORS))
	router.RegisterAssetRoutes(srv, assetHandler)

	hlog.Infof("asset harbor listening on %s (env=%s root=%s)", cfg.Server.Address, cfg.Env, cfg.Media.RootDir)
	srv.Spin()
}
