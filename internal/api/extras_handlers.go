// internal/api/extras_handlers.go
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/gin-gonic/gin"
)

// SynthesizeStoryAudio 为故事全部章节生成朗读音频
func (h *Handler) SynthesizeStoryAudio(c *gin.Context) {
	record, err := h.Library.GetStory(c.Param("id"))
	if err != nil {
		ResponseError(c, err)
		return
	}

	var req struct {
		Voice string `json:"voice"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := h.TTS.SynthesizeStory(c.Request.Context(), record, req.Voice); err != nil {
		ResponseError(c, err)
		return
	}

	ResponseSuccess(c, record)
}

// GetStoryReport 返回故事的可读性与安全性报告
func (h *Handler) GetStoryReport(c *gin.Context) {
	record, err := h.Library.GetStory(c.Param("id"))
	if err != nil {
		ResponseError(c, err)
		return
	}

	ResponseSuccess(c, h.Report.BuildReport(record))
}

// GetLearningPack 返回已保存的学习材料
func (h *Handler) GetLearningPack(c *gin.Context) {
	pack, err := h.Library.GetLearningPack(c.Param("id"))
	if err != nil {
		ResponseError(c, err)
		return
	}
	ResponseSuccess(c, pack)
}

// GenerateLearningPack 生成并保存学习材料
func (h *Handler) GenerateLearningPack(c *gin.Context) {
	record, err := h.Library.GetStory(c.Param("id"))
	if err != nil {
		ResponseError(c, err)
		return
	}

	pack, err := h.Learning.GenerateLearningPack(c.Request.Context(), record)
	if err != nil {
		ResponseError(c, err)
		return
	}

	if err := h.Library.SaveLearningPack(pack); err != nil {
		ResponseError(c, err)
		return
	}

	ResponseSuccess(c, pack)
}

// SaveManualLearningPack 保存手工编辑的学习材料
func (h *Handler) SaveManualLearningPack(c *gin.Context) {
	record, err := h.Library.GetStory(c.Param("id"))
	if err != nil {
		ResponseError(c, err)
		return
	}

	var pack models.LearningPack
	if err := c.ShouldBindJSON(&pack); err != nil {
		ResponseValidationError(c, "请求体格式错误")
		return
	}

	validated, err := h.Learning.BuildManualLearningPack(record, pack)
	if err != nil {
		ResponseError(c, err)
		return
	}

	if err := h.Library.SaveLearningPack(validated); err != nil {
		ResponseError(c, err)
		return
	}

	ResponseSuccess(c, validated)
}

// CreateShare 为故事创建分享令牌
func (h *Handler) CreateShare(c *gin.Context) {
	var req struct {
		ExpiresHours int `json:"expires_hours"`
	}
	_ = c.ShouldBindJSON(&req)

	var ttl time.Duration
	if req.ExpiresHours > 0 {
		ttl = time.Duration(req.ExpiresHours) * time.Hour
	}

	share, err := h.Library.CreateShare(c.Param("id"), ttl)
	if err != nil {
		ResponseError(c, err)
		return
	}

	ResponseCreated(c, share)
}

// GetSharedStory 按分享令牌返回故事
func (h *Handler) GetSharedStory(c *gin.Context) {
	record, err := h.Library.ResolveShare(c.Param("token"))
	if err != nil {
		ResponseError(c, err)
		return
	}
	ResponseSuccess(c, record)
}

// exportStoryZip 打包故事并写出下载响应
func (h *Handler) exportStoryZip(c *gin.Context, record *models.StoryRecord) {
	data, err := h.Export.BuildZip(record)
	if err != nil {
		ResponseError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="story_%s.zip"`, record.ID))
	c.Data(http.StatusOK, "application/zip", data)
}

// ExportStoryZip 导出故事压缩包
func (h *Handler) ExportStoryZip(c *gin.Context) {
	record, err := h.Library.GetStory(c.Param("id"))
	if err != nil {
		ResponseError(c, err)
		return
	}
	h.exportStoryZip(c, record)
}

// ExportSharedStoryZip 按分享令牌导出故事压缩包
func (h *Handler) ExportSharedStoryZip(c *gin.Context) {
	record, err := h.Library.ResolveShare(c.Param("token"))
	if err != nil {
		ResponseError(c, err)
		return
	}
	h.exportStoryZip(c, record)
}
