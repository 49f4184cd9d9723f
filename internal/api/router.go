// internal/api/router.go
package api

import (
	"github.com/Corphon/KidStoryMCP/internal/config"
	"github.com/gin-gonic/gin"
)

// SetupRouter 注册全部路由
func SetupRouter(h *Handler) *gin.Engine {
	cfg := config.GetCurrentConfig()

	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(requestLoggerMiddleware())

	// ===========================================
	// 健康检查与静态媒体
	// ===========================================
	router.GET("/health", h.HealthCheck)
	router.Static("/media", h.Library.MediaRoot())

	// ===========================================
	// 故事生成与管理
	// ===========================================
	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/story", h.CreateStory)
		apiGroup.GET("/story/:id", h.GetStory)
		apiGroup.GET("/stories", h.ListStories)
		apiGroup.DELETE("/story/:id", h.DeleteStory)

		// 插图
		apiGroup.POST("/story/:id/images", h.GenerateStoryImages)
		apiGroup.POST("/story/:id/sections/:sid/image", h.GenerateSectionImage)
		apiGroup.POST("/image", h.GenerateImage)

		// 音频
		apiGroup.POST("/story/:id/tts", h.SynthesizeStoryAudio)

		// 学习材料与报告
		apiGroup.GET("/story/:id/report", h.GetStoryReport)
		apiGroup.GET("/story/:id/learning", h.GetLearningPack)
		apiGroup.POST("/story/:id/learning", h.GenerateLearningPack)
		apiGroup.POST("/story/:id/learning/manual", h.SaveManualLearningPack)

		// 分享与导出
		apiGroup.POST("/story/:id/share", h.CreateShare)
		apiGroup.GET("/share/:token", h.GetSharedStory)
		apiGroup.GET("/share/:token/export/zip", h.ExportSharedStoryZip)
		apiGroup.GET("/story/:id/export/zip", h.ExportStoryZip)
	}

	// ===========================================
	// 进度推送
	// ===========================================
	router.GET("/ws/progress/:task_id", h.ProgressWebSocket)

	return router
}
