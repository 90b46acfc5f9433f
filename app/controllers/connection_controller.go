package controllers

import (
	"github.com/avatarhub/backend-go/app/bootstrap"
)

// ConnectionController 外部服务连通性自检接口
type ConnectionController struct {
	BaseController
}

// Test 按type参数测试指定上游服务，缺省测试全部
func (c *ConnectionController) Test() {
	testType := c.GetString("type", "all")

	results := bootstrap.GetApp().Connection.Test(c.Ctx.Request.Context(), testType)
	if len(results) == 0 {
		c.JSONError(400, "Unknown connection type: "+testType)
		return
	}

	c.JSON(200, map[string]interface{}{
		"success": true,
		"results": results,
	})
}
