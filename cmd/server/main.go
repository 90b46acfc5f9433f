package main

import (
	"log"
	"strconv"

	"github.com/avatarhub/backend-go/app/bootstrap"
	"github.com/avatarhub/backend-go/app/router"
	"github.com/avatarhub/backend-go/internal/config"
	"github.com/avatarhub/backend-go/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	if err := bootstrap.Init(); err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer bootstrap.Shutdown()

	router.Init()

	// 配置Beego全局设置
	web.BConfig.AppName = "Avatar Chat Backend"
	web.BConfig.CopyRequestBody = true
	web.BConfig.MaxMemory = config.GetAppConfig().Knowledge.MaxUploadSize

	if port, err := strconv.Atoi(config.GetAppConfig().Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	} else {
		web.BConfig.Listen.HTTPPort = 3001
	}

	logger.Info("🚀 Starting Avatar Chat Backend", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
