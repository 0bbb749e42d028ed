// @title Worksheet 后端 API
// @version 1.0
// @description 练习卷组卷服务：生成服务与题库混合出题。
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"
	"worksheet_backend/internal/app"
	"worksheet_backend/internal/config"
	"worksheet_backend/pkg/logger"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	checkConfig := flag.Bool("check-config", false, "只校验配置文件，打印关键项后退出")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *checkConfig {
		log.Printf("config ok: database=%s redis=%t storage=%s ai=%t generation_timeout=%s max_task_count=%d",
			cfg.Database.Driver, cfg.Redis.Enabled, cfg.Storage.Type, cfg.AI.APIKey != "",
			cfg.Sourcing.GenerationTimeout(), cfg.Sourcing.MaxTaskCount)
		return
	}
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg, *configDir)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
