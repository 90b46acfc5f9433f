package controllers

import (
	"github.com/avatarhub/backend-go/internal/config"
)

// RootController 服务根路径与健康检查
type RootController struct {
	BaseController
}

// Index 返回服务基本信息
func (c *RootController) Index() {
	c.JSON(200, map[string]interface{}{
		"service": "avatarhub-backend",
		"status":  "running",
		"vector_store": map[string]string{
			"provider": config.GetAppConfig().VectorStore.Provider,
		},
	})
}

// Health 健康检查
func (c *RootController) Health() {
	c.JSON(200, map[string]interface{}{
		"status": "ok",
	})
}
