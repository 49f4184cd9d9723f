// internal/api/story_handlers.go
package api

import (
	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/Corphon/KidStoryMCP/internal/services"
	"github.com/gin-gonic/gin"
)

// CreateStoryRequest 故事创建请求体
type CreateStoryRequest struct {
	Prompt         string `json:"prompt"`
	AgeGroup       string `json:"age_group"`
	Language       string `json:"language"`
	Style          string `json:"style"`
	Sections       int    `json:"sections"`
	TitleHint      string `json:"title_hint"`
	ChildID        string `json:"child_id"`
	GenerateImages bool   `json:"generate_images"`
	ImageSize      string `json:"image_size"`
	ImageStyle     string `json:"image_style"`
}

// CreateStory 生成并保存新故事
func (h *Handler) CreateStory(c *gin.Context) {
	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseValidationError(c, "请求体格式错误")
		return
	}

	if req.Prompt == "" {
		ResponseValidationError(c, "prompt 不能为空")
		return
	}

	if req.Sections == 0 {
		req.Sections = 5
	}
	if req.Sections < services.MinSections || req.Sections > services.MaxSections {
		ResponseValidationError(c, "sections 必须在 1 到 10 之间")
		return
	}

	// 儿童安全检查
	if err := services.CheckPromptSafety(req.Prompt); err != nil {
		ResponseError(c, err)
		return
	}

	draft, err := h.Story.GenerateStoryDraft(c.Request.Context(), services.GenerateStoryRequest{
		Prompt:    req.Prompt,
		AgeGroup:  req.AgeGroup,
		Language:  req.Language,
		Style:     req.Style,
		Sections:  req.Sections,
		TitleHint: req.TitleHint,
	})
	if err != nil {
		ResponseError(c, err)
		return
	}

	record := &models.StoryRecord{
		Title:    draft.Title,
		Prompt:   req.Prompt,
		AgeGroup: req.AgeGroup,
		Language: req.Language,
		Style:    req.Style,
		ChildID:  req.ChildID,
		Status:   models.StoryStatusReady,
		Sections: draft.Sections,
		Usage:    draft.Usage,
	}

	if err := h.Library.SaveStory(record); err != nil {
		ResponseError(c, err)
		return
	}

	response := gin.H{"story": record}
	if req.GenerateImages {
		taskID := h.startIllustrationTask(record, req.ImageSize, req.ImageStyle)
		response["image_task_id"] = taskID
	}

	ResponseCreated(c, response)
}

// GetStory 按ID返回故事
func (h *Handler) GetStory(c *gin.Context) {
	record, err := h.Library.GetStory(c.Param("id"))
	if err != nil {
		ResponseError(c, err)
		return
	}
	ResponseSuccess(c, record)
}

// ListStories 返回全部故事
func (h *Handler) ListStories(c *gin.Context) {
	records, err := h.Library.ListStories()
	if err != nil {
		ResponseError(c, err)
		return
	}
	ResponseSuccess(c, records)
}

// DeleteStory 删除故事及其媒体
func (h *Handler) DeleteStory(c *gin.Context) {
	if err := h.Library.DeleteStory(c.Param("id")); err != nil {
		ResponseError(c, err)
		return
	}
	ResponseSuccess(c, gin.H{"deleted": true})
}
