package controllers

import (
	"github.com/avatarhub/backend-go/app/bootstrap"
)

// MetricsController Prometheus指标暴露接口
type MetricsController struct {
	BaseController
}

// Metrics 以Prometheus文本格式输出运行指标
func (c *MetricsController) Metrics() {
	bootstrap.GetApp().Metrics.ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
