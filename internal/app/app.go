// internal/app/app.go
package app

import (
	"fmt"

	"github.com/Corphon/KidStoryMCP/internal/api"
	"github.com/Corphon/KidStoryMCP/internal/config"
	"github.com/Corphon/KidStoryMCP/internal/services"
	"github.com/Corphon/KidStoryMCP/internal/utils"

	// 提供者通过init注册
	_ "github.com/Corphon/KidStoryMCP/internal/llm/providers/openai"
	_ "github.com/Corphon/KidStoryMCP/internal/llm/providers/openrouter"
)

// InitServices 按依赖顺序初始化全部服务并返回API处理器
func InitServices() (*api.Handler, error) {
	cfg := config.GetCurrentConfig()
	logger := utils.GetLogger()

	if cfg.DebugMode {
		logger.SetLogLevel(utils.DEBUG)
	}

	llmService, err := services.NewLLMService()
	if err != nil {
		return nil, fmt.Errorf("初始化LLM服务失败: %w", err)
	}

	library, err := services.NewLibraryService(cfg.DataDir, cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("初始化故事库失败: %w", err)
	}

	storyService := services.NewStoryService(llmService)
	imageService := services.NewImageService(llmService)
	learningService := services.NewLearningService(llmService)
	reportService := services.NewReportService()
	ttsService := services.NewTTSService(llmService, library)
	exportService := services.NewExportService(library)
	progressService := services.NewProgressService()

	logger.Info("服务初始化完成", map[string]interface{}{
		"provider":    cfg.LLMProvider,
		"story_model": cfg.StoryModel,
		"image_model": cfg.ImageModel,
	})

	return api.NewHandler(
		llmService,
		storyService,
		imageService,
		learningService,
		reportService,
		ttsService,
		library,
		exportService,
		progressService,
	), nil
}
