// internal/api/handlers.go
package api

import (
	"github.com/Corphon/KidStoryMCP/internal/services"
	"github.com/Corphon/KidStoryMCP/internal/utils"
	"github.com/gin-gonic/gin"
)

// Handler 聚合全部API依赖
type Handler struct {
	LLM      *services.LLMService
	Story    *services.StoryService
	Image    *services.ImageService
	Learning *services.LearningService
	Report   *services.ReportService
	TTS      *services.TTSService
	Library  *services.LibraryService
	Export   *services.ExportService
	Progress *services.ProgressService

	logger *utils.Logger
}

// NewHandler 创建API处理器
func NewHandler(
	llmService *services.LLMService,
	story *services.StoryService,
	image *services.ImageService,
	learning *services.LearningService,
	report *services.ReportService,
	tts *services.TTSService,
	library *services.LibraryService,
	export *services.ExportService,
	progress *services.ProgressService,
) *Handler {
	return &Handler{
		LLM:      llmService,
		Story:    story,
		Image:    image,
		Learning: learning,
		Report:   report,
		TTS:      tts,
		Library:  library,
		Export:   export,
		Progress: progress,
		logger:   utils.GetLogger(),
	}
}

// HealthCheck 服务健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	ResponseSuccess(c, gin.H{
		"status":    "ok",
		"llm_ready": h.LLM.IsReady(),
	})
}
