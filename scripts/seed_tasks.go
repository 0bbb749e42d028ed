// 题库导入脚本
//
// 从 YAML 文件批量导入题目，导入前按组卷时的转换规则逐题校验，
// 任意一题不合法则整体放弃。
//
// 用法: go run scripts/seed_tasks.go -file configs/tasks.sample.yaml

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"worksheet_backend/internal/config"
	"worksheet_backend/internal/repository"
	"worksheet_backend/internal/seed"
	"worksheet_backend/pkg/database"
	"worksheet_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	file := flag.String("file", "configs/tasks.sample.yaml", "题目 YAML 文件")
	dryRun := flag.Bool("dry-run", false, "只校验不写入")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("无法打开题目文件: %v", err)
	}
	defer f.Close()

	tasks, err := seed.Load(f)
	if err != nil {
		log.Fatalf("题目文件校验失败: %v", err)
	}
	log.Printf("校验通过，共 %d 道题", len(tasks))
	if *dryRun {
		return
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Printf("Redis 不可用，跳过缓存失效: %v", err)
		rdb = nil
	}

	repo := repository.NewTaskRepository(db, rdb, cfg.Sourcing.CandidateCacheTTL())
	if err := repo.CreateBatch(context.Background(), tasks); err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	log.Println("完成！")
}
