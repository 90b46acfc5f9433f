package router

import (
	"github.com/avatarhub/backend-go/app/controllers"
	"github.com/avatarhub/backend-go/app/middleware"
	"github.com/beego/beego/v2/server/web"
)

// Init registers all routes. Must be called after bootstrap completes.
func Init() {
	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.RootController{}, "get:Health")

	// 聊天路由
	web.Router("/api/chat", &controllers.ChatController{}, "post:Chat")

	// 知识库路由
	knowledgeController := &controllers.KnowledgeController{}
	web.Router("/api/knowledge-base/upload", knowledgeController, "post:Upload")
	web.Router("/api/knowledge-base/list", knowledgeController, "get:List")
	web.Router("/api/knowledge-base/delete", knowledgeController, "delete:Delete;post:Delete")

	// 连接自检与数字人路由
	web.Router("/api/test-connections", &controllers.ConnectionController{}, "get:Test;post:Test")
	web.Router("/api/heygen-token", &controllers.AvatarController{}, "get:Token;post:Token")

	// 运行指标
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")
}
