// @title E-Learning 后端 API
// @version 1.0
// @description 在线课程与测验平台的后端服务，包含课程、选课支付、测验作答与学习分析。

// @contact.name API支持
// @contact.email support@example.com

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"elearning_backend/internal/app"
	"elearning_backend/internal/config"
	"elearning_backend/pkg/logger"
	"flag"
	"log"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移（和种子导入），完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	seedFile := flag.String("seed", "", "启动时导入的 YAML 种子文件")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly || *seedFile != ""
	cfg.MigrateOnly = *migrateOnly
	cfg.SeedFile = *seedFile

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if cfg.MigrateOnly {
		logger.Log.Info("Migration finished, exiting")
		return
	}

	application.Run()
}
