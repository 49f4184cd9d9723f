// internal/api/image_handlers.go
package api

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/Corphon/KidStoryMCP/internal/services"
	"github.com/gin-gonic/gin"
)

const illustrationTaskTimeout = 10 * time.Minute

// imageOptions 插图请求的公共参数
type imageOptions struct {
	Size  string `json:"size"`
	Style string `json:"style"`
}

// startIllustrationTask 后台为全部章节生成插图，返回任务ID
func (h *Handler) startIllustrationTask(story *models.StoryRecord, size, style string) string {
	taskID := h.Progress.StartTask(len(story.Sections))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), illustrationTaskTimeout)
		defer cancel()

		story.Status = models.StoryStatusGeneratingImages
		if err := h.Library.SaveStory(story); err != nil {
			h.Progress.Fail(taskID, err.Error())
			return
		}

		// onResult 可能从多个goroutine调用
		var mu sync.Mutex
		err := h.Image.IllustrateSections(ctx, story.Sections, size, style,
			func(result services.SectionImageResult) error {
				url, saveErr := h.Library.SaveSectionImage(
					story.ID, story.Sections[result.Index].ID, result.Image.Data)
				if saveErr != nil {
					return saveErr
				}

				mu.Lock()
				story.Sections[result.Index].ImageURL = url
				mu.Unlock()
				return nil
			},
			func(done, total int) {
				h.Progress.Update(taskID, done, fmt.Sprintf("%d/%d 章节完成", done, total))
			})

		story.Status = models.StoryStatusReady
		if saveErr := h.Library.SaveStory(story); saveErr != nil && err == nil {
			err = saveErr
		}

		if err != nil {
			h.logger.Error("批量插图任务失败", map[string]interface{}{
				"story_id": story.ID,
				"task_id":  taskID,
				"error":    err.Error(),
			})
			h.Progress.Fail(taskID, err.Error())
			return
		}

		h.Progress.Complete(taskID, "全部章节插图完成")
	}()

	return taskID
}

// GenerateStoryImages 批量生成故事插图（异步）
func (h *Handler) GenerateStoryImages(c *gin.Context) {
	record, err := h.Library.GetStory(c.Param("id"))
	if err != nil {
		ResponseError(c, err)
		return
	}

	var opts imageOptions
	_ = c.ShouldBindJSON(&opts)

	taskID := h.startIllustrationTask(record, opts.Size, opts.Style)
	ResponseSuccess(c, gin.H{
		"task_id": taskID,
		"total":   len(record.Sections),
	})
}

// GenerateSectionImage 重新生成单个章节的插图
func (h *Handler) GenerateSectionImage(c *gin.Context) {
	record, err := h.Library.GetStory(c.Param("id"))
	if err != nil {
		ResponseError(c, err)
		return
	}

	sectionID, err := strconv.Atoi(c.Param("sid"))
	if err != nil {
		ResponseValidationError(c, "章节ID必须是整数")
		return
	}

	var opts imageOptions
	_ = c.ShouldBindJSON(&opts)

	for i := range record.Sections {
		if record.Sections[i].ID != sectionID {
			continue
		}

		image, err := h.Image.GenerateIllustration(
			c.Request.Context(), record.Sections[i].ImagePrompt, opts.Size, opts.Style)
		if err != nil {
			ResponseError(c, err)
			return
		}

		url, err := h.Library.SaveSectionImage(record.ID, sectionID, image.Data)
		if err != nil {
			ResponseError(c, err)
			return
		}

		record.Sections[i].ImageURL = url
		if err := h.Library.SaveStory(record); err != nil {
			ResponseError(c, err)
			return
		}

		ResponseSuccess(c, gin.H{
			"section": record.Sections[i],
			"model":   image.Model,
		})
		return
	}

	ResponseValidationError(c, fmt.Sprintf("章节 %d 不存在", sectionID))
}

// OneOffImageRequest 一次性插图请求体
type OneOffImageRequest struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	Style  string `json:"style"`
}

// GenerateImage 与故事无关的一次性插图
func (h *Handler) GenerateImage(c *gin.Context) {
	var req OneOffImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseValidationError(c, "请求体格式错误")
		return
	}
	if req.Prompt == "" {
		ResponseValidationError(c, "prompt 不能为空")
		return
	}

	image, err := h.Image.GenerateIllustration(c.Request.Context(), req.Prompt, req.Size, req.Style)
	if err != nil {
		ResponseError(c, err)
		return
	}

	url, err := h.Library.SaveOneOffImage(image.Data)
	if err != nil {
		ResponseError(c, err)
		return
	}

	ResponseSuccess(c, gin.H{
		"url":   url,
		"model": image.Model,
	})
}
