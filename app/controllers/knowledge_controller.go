package controllers

import (
	"fmt"
	"io"

	"github.com/avatarhub/backend-go/app/bootstrap"
	"github.com/avatarhub/backend-go/internal/config"
	apperrors "github.com/avatarhub/backend-go/internal/errors"
	"github.com/avatarhub/backend-go/internal/knowledge"
	"github.com/avatarhub/backend-go/internal/logger"
	"go.uber.org/zap"
)

// KnowledgeController 知识库文件管理接口
type KnowledgeController struct {
	BaseController
}

// Upload 接收上传文件，切分并写入向量库
func (c *KnowledgeController) Upload() {
	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(400, "No file uploaded")
		return
	}
	defer file.Close()

	maxSize := config.GetAppConfig().Knowledge.MaxUploadSize
	if header.Size > maxSize {
		c.JSONError(400, fmt.Sprintf("File exceeds maximum size of %d bytes", maxSize))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSONError(400, "Failed to read uploaded file")
		return
	}

	upload := knowledge.UploadFile{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  string(content),
	}

	result, err := bootstrap.GetApp().Knowledge.Upload(c.Ctx.Request.Context(), upload)
	if err != nil {
		logger.Error("file upload failed",
			zap.String("file_name", header.Filename),
			zap.String("client_ip", c.getClientIP()),
			zap.Error(err))
		c.JSONAppError(err)
		return
	}

	c.JSON(200, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Successfully processed %s", header.Filename),
		"chunks":  result.ChunkCount,
		"fileId":  result.FileID,
	})
}

// List 返回知识库内全部文件及统计信息
func (c *KnowledgeController) List() {
	catalog, err := bootstrap.GetApp().Knowledge.List(c.Ctx.Request.Context())
	if err != nil {
		logger.Error("list knowledge base failed", zap.Error(err))
		c.JSONAppError(err)
		return
	}

	c.JSON(200, map[string]interface{}{
		"success": true,
		"files":   catalog.Files,
		"stats":   catalog.Stats,
	})
}

// Delete 按文件ID删除其全部向量
func (c *KnowledgeController) Delete() {
	fileID := c.GetString("id")
	if fileID == "" {
		c.JSONError(400, "File ID is required")
		return
	}

	deleted, err := bootstrap.GetApp().Knowledge.Delete(c.Ctx.Request.Context(), fileID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSONError(404, fmt.Sprintf("No vectors found for file %s", fileID))
			return
		}
		logger.Error("delete knowledge file failed",
			zap.String("file_id", fileID),
			zap.Error(err))
		c.JSONAppError(err)
		return
	}

	c.JSON(200, map[string]interface{}{
		"success":        true,
		"message":        fmt.Sprintf("Deleted file %s", fileID),
		"deletedVectors": deleted,
	})
}
