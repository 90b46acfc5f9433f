package bootstrap

import (
	"fmt"

	"github.com/avatarhub/backend-go/internal/config"
	"github.com/avatarhub/backend-go/internal/di"
	"github.com/avatarhub/backend-go/internal/heygen"
	"github.com/avatarhub/backend-go/internal/logger"
	"github.com/avatarhub/backend-go/internal/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// App 聚合所有已初始化的业务服务
type App struct {
	Chat       *services.ChatService
	Knowledge  *services.KnowledgeService
	Connection *services.ConnectionService
	Metrics    *services.MetricsService
	Avatar     *heygen.Service
}

var globalApp *App

// Init 初始化应用：环境变量、日志、配置、依赖容器
func Init() error {
	// .env文件可选，缺失时使用进程环境变量
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	if err := logger.InitLogger(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := config.LoadConfig(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container := di.InitContainer()
	if err := di.RegisterProviders(container); err != nil {
		return fmt.Errorf("register providers: %w", err)
	}

	app := &App{}
	if err := container.Invoke(func(
		chat *services.ChatService,
		knowledge *services.KnowledgeService,
		connection *services.ConnectionService,
		metrics *services.MetricsService,
		avatar *heygen.Service,
	) {
		app.Chat = chat
		app.Knowledge = knowledge
		app.Connection = connection
		app.Metrics = metrics
		app.Avatar = avatar
	}); err != nil {
		return fmt.Errorf("resolve services: %w", err)
	}

	globalApp = app
	logger.Info("application bootstrap complete",
		zap.String("vector_store", config.GetAppConfig().VectorStore.Provider))
	return nil
}

// GetApp 获取全局应用实例
func GetApp() *App {
	return globalApp
}

// Shutdown 释放应用资源
func Shutdown() {
	logger.Sync()
}
