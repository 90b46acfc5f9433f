package controllers

import (
	"github.com/avatarhub/backend-go/app/bootstrap"
	"github.com/avatarhub/backend-go/internal/config"
	"github.com/avatarhub/backend-go/internal/logger"
	"go.uber.org/zap"
)

// AvatarController 数字人会话接口
type AvatarController struct {
	BaseController
}

// Token 创建HeyGen流式会话令牌
func (c *AvatarController) Token() {
	token, err := bootstrap.GetApp().Avatar.CreateSessionToken(c.Ctx.Request.Context())
	if err != nil {
		logger.Error("create avatar session token failed", zap.Error(err))
		c.JSONAppError(err)
		return
	}

	// 前端用avatarId指定数字人形象，和token一并返回
	c.JSON(200, map[string]interface{}{
		"token":    token,
		"avatarId": config.GetAppConfig().Avatar.AvatarID,
	})
}
