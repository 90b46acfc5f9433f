package controllers

import (
	"encoding/json"

	"github.com/avatarhub/backend-go/app/bootstrap"
	apperrors "github.com/avatarhub/backend-go/internal/errors"
	"github.com/avatarhub/backend-go/internal/llm"
	"github.com/avatarhub/backend-go/internal/logger"
	"github.com/avatarhub/backend-go/internal/services"
	"go.uber.org/zap"
)

// 生成失败时返回给前端的兜底文案
const chatFallbackReply = "I'm sorry, I couldn't process your request at the moment. Please try again."

// 未显式指定时的知识库混合比例
const defaultVectorRatio = 75

// ChatController 聊天接口
type ChatController struct {
	BaseController
}

type chatPayload struct {
	Messages      []llm.Message `json:"messages"`
	VectorRatio   *int          `json:"vectorRatio"`
	SummaryLength string        `json:"summaryLength"`
}

// Chat 处理对话请求，按vectorRatio混合知识库检索与通用生成
func (c *ChatController) Chat() {
	var payload chatPayload
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &payload); err != nil {
		c.JSONError(400, "Invalid request body")
		return
	}

	mixRatio := defaultVectorRatio
	if payload.VectorRatio != nil {
		mixRatio = *payload.VectorRatio
	}

	req := services.ChatRequest{
		Messages:      payload.Messages,
		MixRatio:      mixRatio,
		SummaryLength: payload.SummaryLength,
	}

	reply, err := bootstrap.GetApp().Chat.Respond(c.Ctx.Request.Context(), req)
	if err != nil {
		appErr := apperrors.GetAppError(err)
		if appErr.Code == apperrors.ErrCodeValidationFailed {
			c.JSONError(appErr.HTTPCode, appErr.Message)
			return
		}

		// 生成失败不向前端暴露内部错误，返回兜底回复
		logger.Error("chat generation failed",
			zap.String("error_code", string(appErr.Code)),
			zap.String("client_ip", c.getClientIP()),
			zap.Error(err))
		c.JSON(200, map[string]interface{}{
			"success": false,
			"reply":   chatFallbackReply,
		})
		return
	}

	c.JSON(200, map[string]interface{}{
		"success": true,
		"reply":   reply,
	})
}
