// internal/services/tts_service.go
package services

import (
	"context"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/Corphon/KidStoryMCP/internal/llm"
	"github.com/Corphon/KidStoryMCP/internal/models"
	"github.com/Corphon/KidStoryMCP/internal/utils"
)

// TTSService 章节朗读音频生成
type TTSService struct {
	llm     *LLMService
	library *LibraryService
	logger  *utils.Logger
}

// NewTTSService 创建语音服务
func NewTTSService(llmService *LLMService, library *LibraryService) *TTSService {
	return &TTSService{
		llm:     llmService,
		library: library,
		logger:  utils.GetLogger(),
	}
}

// SynthesizeStory 为故事的每个章节生成朗读音频并更新记录
//
// 章节串行合成，单个章节失败即中止并返回已完成的进度。
func (s *TTSService) SynthesizeStory(ctx context.Context, story *models.StoryRecord, voice string) error {
	speechProvider, err := s.llm.SpeechProvider()
	if err != nil {
		return apperrors.NewProcessingError("语音提供者不可用", err)
	}

	story.Status = models.StoryStatusGeneratingAudio
	if err := s.library.SaveStory(story); err != nil {
		return err
	}

	for i := range story.Sections {
		audio, err := speechProvider.SynthesizeSpeech(ctx, llm.SpeechRequest{
			Voice: voice,
			Input: story.Sections[i].Text,
		})
		if err != nil {
			story.Status = models.StoryStatusReady
			_ = s.library.SaveStory(story)
			return apperrors.NewProcessingError("章节音频合成失败", err)
		}

		url, err := s.library.SaveSectionAudio(story.ID, story.Sections[i].ID, audio)
		if err != nil {
			story.Status = models.StoryStatusReady
			_ = s.library.SaveStory(story)
			return err
		}
		story.Sections[i].AudioURL = url

		s.logger.Info("章节音频已生成", map[string]interface{}{
			"story_id": story.ID,
			"section":  story.Sections[i].ID,
		})
	}

	story.Status = models.StoryStatusReady
	return s.library.SaveStory(story)
}
