package controllers

import (
	"strings"

	apperrors "github.com/avatarhub/backend-go/internal/errors"
	"github.com/beego/beego/v2/server/web"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 将应用错误映射到对应的HTTP状态码
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.GetAppError(err)
	payload := map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
	}
	if appErr.Cause != nil {
		payload["details"] = appErr.Cause.Error()
	}
	c.JSON(appErr.HTTPCode, payload)
}

// getClientIP 获取客户端真实IP地址
func (c *BaseController) getClientIP() string {
	// X-Forwarded-For可能包含多个IP，取第一个
	if xForwardedFor := c.Ctx.Input.Header("X-Forwarded-For"); xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	if xRealIP := c.Ctx.Input.Header("X-Real-IP"); xRealIP != "" {
		return xRealIP
	}

	return c.Ctx.Input.IP()
}
