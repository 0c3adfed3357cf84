package main

import (
	"context"
	"time"

	"github.com/cppla/qaforum/config"
	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/routes"
	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(models.All()...)

	local, err := utils.NewLocalCache(cfg.SettingsCacheMB, time.Duration(cfg.SettingsCacheTTLSeconds)*time.Second)
	if err != nil {
		// settings fall back to redis/db reads
		utils.Sugar.Warnf("local cache disabled: %v", err)
	}
	defer local.Close()

	if err := utils.PingRedis(context.Background()); err != nil {
		utils.Sugar.Warnf("redis unreachable, caches degrade to database reads: %v", err)
	}
	defer utils.CloseRedis()

	svc := services.New(db, local, cfg)
	r := routes.SetupRouter(db, svc, cfg)

	utils.Sugar.Infof("Starting %s on port %s (graceful)", cfg.AppName, cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
